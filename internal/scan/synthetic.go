package scan

import (
	"time"

	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/margin"
	"schwab-trader/internal/models"
)

// syntheticFamily approximates a covered call without holding shares:
// buy a call near the money, sell the put at the same strike, and sell
// an out-of-the-money call against the pair.
type syntheticFamily struct{}

func (syntheticFamily) kind() models.StrategyKind {
	return models.StrategySyntheticCC
}

// buildLegs anchors the long strike at the first call strike at or above
// spot and pairs it with every higher call strike that has quotes.
func (syntheticFamily) buildLegs(snapshot *models.Snapshot, expiration time.Time, asset config.AssetConfig) [][]models.SpreadLeg {
	strikes := snapshot.Strikes(expiration, models.Call)

	var anchor float64
	for _, k := range strikes {
		if k >= snapshot.UnderlyingPrice {
			anchor = k
			break
		}
	}
	if anchor == 0 {
		return nil
	}

	longCall, ok := snapshot.Contract(expiration, anchor, models.Call)
	if !ok {
		return nil
	}
	shortPut, ok := snapshot.Contract(expiration, anchor, models.Put)
	if !ok {
		return nil
	}

	var legSets [][]models.SpreadLeg
	for _, k := range strikes {
		if k <= anchor {
			continue
		}
		if asset.StrikeWidth > 0 && k-anchor != asset.StrikeWidth {
			continue
		}
		shortCall, ok := snapshot.Contract(expiration, k, models.Call)
		if !ok {
			continue
		}
		legSets = append(legSets, []models.SpreadLeg{
			{Contract: longCall, Instruction: models.BuyToOpen, Quantity: 1},
			{Contract: shortCall, Instruction: models.SellToOpen, Quantity: 1},
			{Contract: shortPut, Instruction: models.SellToOpen, Quantity: 1},
		})
	}
	return legSets
}

// validate requires a debit inside the width and a margin treatment
// strictly better than the equivalent actual covered call.
func (syntheticFamily) validate(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig) error {
	debit := syntheticNetDebit(legs)
	width := models.SpreadCandidate{Legs: legs}.StrikeWidth()
	if width <= 0 {
		return errors.NewCandidateError("synthetic_covered_call", "strike_width", width)
	}
	if debit <= 0 || debit >= width {
		return errors.NewCandidateError("synthetic_covered_call", "net_debit", debit)
	}
	return nil
}

func (syntheticFamily) score(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig, days int, rules config.MarginRules) (scored, error) {
	debit := syntheticNetDebit(legs)
	width := models.SpreadCandidate{Legs: legs}.StrikeWidth()
	put := putLeg(legs)

	synthetic, err := margin.Compute(margin.Input{
		Strategy:        models.StrategySyntheticCC,
		Asset:           asset.AssetClass(),
		UnderlyingPrice: snapshot.UnderlyingPrice,
		Strike:          put.Contract.Strike,
		Premium:         put.Contract.Bid,
		Contracts:       1,
	}, rules)
	if err != nil {
		return scored{}, err
	}

	covered, err := margin.Compute(margin.Input{
		Strategy:        models.StrategyCoveredCall,
		Asset:           asset.AssetClass(),
		UnderlyingPrice: snapshot.UnderlyingPrice,
		Premium:         shortCallLeg(legs).Contract.Bid,
		Contracts:       1,
	}, rules)
	if err != nil {
		return scored{}, err
	}

	// The synthetic only earns its keep when the brokerage treats it
	// more favorably than simply owning the shares.
	if synthetic.Amount >= covered.Amount {
		return scored{}, errors.NewCandidateError("synthetic_covered_call", "margin_vs_covered", synthetic.Amount)
	}

	maxProfit := (width - debit) * models.ContractMultiplier
	annualized, err := margin.AnnualizedReturn(maxProfit, synthetic.Amount, days)
	if err != nil {
		return scored{}, err
	}

	return scored{netPrice: -debit, annualized: annualized, margin: synthetic}, nil
}

func syntheticNetDebit(legs []models.SpreadLeg) float64 {
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

func putLeg(legs []models.SpreadLeg) models.SpreadLeg {
	for _, leg := range legs {
		if leg.Contract.Right == models.Put {
			return leg
		}
	}
	return models.SpreadLeg{}
}

func shortCallLeg(legs []models.SpreadLeg) models.SpreadLeg {
	for _, leg := range legs {
		if leg.Contract.Right == models.Call && !leg.Instruction.IsBuy() {
			return leg
		}
	}
	return models.SpreadLeg{}
}
