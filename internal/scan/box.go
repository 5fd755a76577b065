package scan

import (
	"time"

	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/margin"
	"schwab-trader/internal/models"
)

// boxFamily sells synthetic boxes: borrow the face value now, repay
// width x 100 at expiry. Only the sell direction is evaluated.
type boxFamily struct{}

func (boxFamily) kind() models.StrategyKind {
	return models.StrategyBoxSpread
}

// buildLegs pairs strikes that have both calls and puts quoted on both
// sides: sell call K1, buy call K2, sell put K2, buy put K1.
func (boxFamily) buildLegs(snapshot *models.Snapshot, expiration time.Time, asset config.AssetConfig) [][]models.SpreadLeg {
	strikes := snapshot.Strikes(expiration, models.Call)

	var legSets [][]models.SpreadLeg
	for _, pair := range strikePairs(strikes, asset.StrikeWidth) {
		lowCall, ok1 := snapshot.Contract(expiration, pair[0], models.Call)
		highCall, ok2 := snapshot.Contract(expiration, pair[1], models.Call)
		lowPut, ok3 := snapshot.Contract(expiration, pair[0], models.Put)
		highPut, ok4 := snapshot.Contract(expiration, pair[1], models.Put)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		legSets = append(legSets, []models.SpreadLeg{
			{Contract: lowCall, Instruction: models.SellToOpen, Quantity: 1},
			{Contract: highCall, Instruction: models.BuyToOpen, Quantity: 1},
			{Contract: highPut, Instruction: models.SellToOpen, Quantity: 1},
			{Contract: lowPut, Instruction: models.BuyToOpen, Quantity: 1},
		})
	}
	return legSets
}

// validate requires a true sell: credit received strictly between zero
// and the face value, so repayment always exceeds the amount borrowed.
func (boxFamily) validate(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig) error {
	credit := boxNetCredit(legs)
	width := models.SpreadCandidate{Legs: legs}.StrikeWidth()
	if width <= 0 {
		return errors.NewCandidateError("box_spread", "strike_width", width)
	}
	if credit <= 0 || credit >= width {
		return errors.NewCandidateError("box_spread", "net_credit", credit)
	}
	return nil
}

func (f boxFamily) score(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig, days int, rules config.MarginRules) (scored, error) {
	credit := boxNetCredit(legs)
	width := models.SpreadCandidate{Legs: legs}.StrikeWidth()

	req, err := margin.Compute(margin.Input{
		Strategy:    models.StrategyBoxSpread,
		Asset:       asset.AssetClass(),
		StrikeWidth: width,
		NetCredit:   credit,
		Contracts:   1,
	}, rules)
	if err != nil {
		return scored{}, err
	}

	// Annualized borrowing cost: (repayment - borrowed) / borrowed on a
	// 365-day basis. Stored negated so the shared descending sort puts
	// the cheapest borrow first.
	upfront := credit * models.ContractMultiplier
	face := width * models.ContractMultiplier
	cost, err := margin.AnnualizedReturn(face-upfront, upfront, days)
	if err != nil {
		return scored{}, err
	}

	return scored{netPrice: credit, annualized: -cost, margin: req}, nil
}

// boxNetCredit prices the box at the midpoint: sold legs collect their
// mid, bought legs pay theirs.
func boxNetCredit(legs []models.SpreadLeg) float64 {
	var credit float64
	for _, leg := range legs {
		if leg.Instruction.IsBuy() {
			credit -= leg.Contract.Mid()
		} else {
			credit += leg.Contract.Mid()
		}
	}
	return credit
}
