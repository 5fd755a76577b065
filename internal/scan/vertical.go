package scan

import (
	"time"

	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/margin"
	"schwab-trader/internal/models"
)

// verticalFamily builds bull call spreads: buy the lower strike call,
// sell the higher one, same expiration.
type verticalFamily struct{}

func (verticalFamily) kind() models.StrategyKind {
	return models.StrategyVertical
}

func (verticalFamily) buildLegs(snapshot *models.Snapshot, expiration time.Time, asset config.AssetConfig) [][]models.SpreadLeg {
	strikes := snapshot.Strikes(expiration, models.Call)

	var legSets [][]models.SpreadLeg
	for _, pair := range strikePairs(strikes, asset.StrikeWidth) {
		low, ok1 := snapshot.Contract(expiration, pair[0], models.Call)
		high, ok2 := snapshot.Contract(expiration, pair[1], models.Call)
		if !ok1 || !ok2 {
			continue
		}
		legSets = append(legSets, []models.SpreadLeg{
			{Contract: low, Instruction: models.BuyToOpen, Quantity: 1},
			{Contract: high, Instruction: models.SellToOpen, Quantity: 1},
		})
	}
	return legSets
}

// validate requires a debit strictly inside the width, and downside
// protection past the configured cushion when one is set.
func (verticalFamily) validate(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig) error {
	debit := verticalNetDebit(legs)
	width := models.SpreadCandidate{Legs: legs}.StrikeWidth()
	if width <= 0 {
		return errors.NewCandidateError("vertical", "strike_width", width)
	}
	if debit <= 0 || debit >= width {
		return errors.NewCandidateError("vertical", "net_debit", debit)
	}
	if asset.DownsideProtection > 0 && snapshot.UnderlyingPrice > 0 {
		breakEven := legs[0].Contract.Strike + debit
		protection := 1 - breakEven/snapshot.UnderlyingPrice
		if protection <= asset.DownsideProtection {
			return errors.NewCandidateError("vertical", "downside_protection", protection)
		}
	}
	return nil
}

func (verticalFamily) score(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig, days int, rules config.MarginRules) (scored, error) {
	debit := verticalNetDebit(legs)
	width := models.SpreadCandidate{Legs: legs}.StrikeWidth()

	req, err := margin.Compute(margin.Input{
		Strategy:    models.StrategyVertical,
		Asset:       asset.AssetClass(),
		StrikeWidth: width,
		NetCredit:   -debit,
		Contracts:   1,
	}, rules)
	if err != nil {
		return scored{}, err
	}

	maxProfit := (width - debit) * models.ContractMultiplier
	annualized, err := margin.AnnualizedReturn(maxProfit, req.Amount, days)
	if err != nil {
		return scored{}, err
	}

	return scored{netPrice: -debit, annualized: annualized, margin: req}, nil
}

func verticalNetDebit(legs []models.SpreadLeg) float64 {
	var debit float64
	for _, leg := range legs {
		if leg.Instruction.IsBuy() {
			debit += leg.Contract.Mid()
		} else {
			debit -= leg.Contract.Mid()
		}
	}
	return debit
}
