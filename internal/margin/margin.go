// Package margin computes margin requirements and returns for option
// strategies. All functions are pure; malformed inputs yield
// ErrInvalidCandidate instead of panics or divide-by-zero.
package margin

import (
	"math"

	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/models"
)

// Input holds the numbers a margin computation needs. Premium, NetCredit
// and StrikeWidth are per share; the contract multiplier is applied here.
type Input struct {
	Strategy        models.StrategyKind
	Asset           models.AssetClass
	UnderlyingPrice float64
	Strike          float64
	StrikeWidth     float64
	Premium         float64
	NetCredit       float64 // credit positive, debit negative
	Contracts       int
	Leverage        float64 // leveraged ETFs only, 2 or 3
}

// Compute returns the margin requirement for a candidate or position.
func Compute(in Input, rules config.MarginRules) (models.MarginRequirement, error) {
	if in.Contracts <= 0 {
		in.Contracts = 1
	}

	var amount float64
	var err error

	switch in.Strategy {
	case models.StrategyShortCall:
		amount, err = shortCall(in, rules)
	case models.StrategyBoxSpread:
		amount, err = boxSpread(in)
	case models.StrategyVertical:
		amount, err = vertical(in)
	case models.StrategySyntheticCC:
		amount, err = shortPut(in, rules)
	case models.StrategyCoveredCall:
		amount, err = coveredCall(in, rules)
	default:
		return models.MarginRequirement{}, errors.NewCandidateError(string(in.Strategy), "strategy", 0)
	}
	if err != nil {
		return models.MarginRequirement{}, err
	}

	return models.MarginRequirement{
		Strategy: in.Strategy,
		Asset:    in.Asset,
		Amount:   amount,
		Inputs: models.MarginInputs{
			UnderlyingPrice: in.UnderlyingPrice,
			Strike:          in.Strike,
			StrikeWidth:     in.StrikeWidth,
			Premium:         in.Premium,
			NetCredit:       in.NetCredit,
			Contracts:       in.Contracts,
			Leverage:        in.Leverage,
		},
	}, nil
}

// shortCall applies the naked call formula: the greater of the broad
// percentage method and the minimum percentage method, with a per-class
// floor. Leveraged ETFs scale both percentages by the leverage factor.
func shortCall(in Input, rules config.MarginRules) (float64, error) {
	if in.UnderlyingPrice <= 0 {
		return 0, errors.NewCandidateError("short_call", "underlying_price", in.UnderlyingPrice)
	}

	initialPct, minPct, floor := classPercentages(in.Asset, rules)
	if in.Asset == models.AssetLeveragedETF {
		leverage := in.Leverage
		if leverage < 2 {
			leverage = 2
		}
		initialPct *= leverage
		minPct *= leverage
	}

	notional := in.UnderlyingPrice * models.ContractMultiplier
	otm := math.Max(0, in.Strike-in.UnderlyingPrice) * models.ContractMultiplier
	premium := in.Premium * models.ContractMultiplier

	perContract := math.Max(initialPct*notional-otm+premium, minPct*notional+premium)
	perContract = math.Max(perContract, floor)

	return perContract * float64(in.Contracts), nil
}

// shortPut applies the naked put treatment used for the short put leg of
// a synthetic covered call, keyed off the put strike rather than spot.
func shortPut(in Input, rules config.MarginRules) (float64, error) {
	if in.Strike <= 0 {
		return 0, errors.NewCandidateError("synthetic_covered_call", "strike", in.Strike)
	}

	initialPct, minPct, floor := classPercentages(in.Asset, rules)

	strikeNotional := in.Strike * models.ContractMultiplier
	otm := math.Max(0, in.Strike-in.UnderlyingPrice) * models.ContractMultiplier
	premium := in.Premium * models.ContractMultiplier

	perContract := math.Max(initialPct*strikeNotional-otm+premium, minPct*strikeNotional+premium)
	perContract = math.Max(perContract, floor)

	return perContract * float64(in.Contracts), nil
}

// boxSpread margin is the face value: strike width times the multiplier.
// Risk is capped, so no percentage methods apply.
func boxSpread(in Input) (float64, error) {
	if in.StrikeWidth <= 0 {
		return 0, errors.NewCandidateError("box_spread", "strike_width", in.StrikeWidth)
	}
	return in.StrikeWidth * models.ContractMultiplier * float64(in.Contracts), nil
}

// vertical margin is width minus the credit received, floored at zero.
// Debit verticals require the full cost instead.
func vertical(in Input) (float64, error) {
	if in.StrikeWidth < 0 {
		return 0, errors.NewCandidateError("vertical", "strike_width", in.StrikeWidth)
	}
	if in.NetCredit < 0 {
		// debit spread: 100% of cost
		return -in.NetCredit * models.ContractMultiplier * float64(in.Contracts), nil
	}
	face := in.StrikeWidth * models.ContractMultiplier
	perContract := math.Max(0, face-in.NetCredit*models.ContractMultiplier)
	return perContract * float64(in.Contracts), nil
}

// coveredCall uses the Reg-T treatment of the long stock less the call
// premium received, for comparison against the synthetic variant.
func coveredCall(in Input, rules config.MarginRules) (float64, error) {
	if in.UnderlyingPrice <= 0 {
		return 0, errors.NewCandidateError("covered_call", "underlying_price", in.UnderlyingPrice)
	}
	notional := in.UnderlyingPrice * models.ContractMultiplier
	perContract := math.Max(0, rules.CoveredCallRegTPct*notional-in.Premium*models.ContractMultiplier)
	return perContract * float64(in.Contracts), nil
}

func classPercentages(class models.AssetClass, rules config.MarginRules) (initial, min, floor float64) {
	switch class {
	case models.AssetIndex:
		return rules.IndexInitialPct, rules.IndexMinPct, rules.FloorPerContract
	default:
		return rules.EquityInitialPct, rules.EquityMinPct, rules.EquityFloor
	}
}

// AnnualizedReturn scales profit over margin to a 365-day basis.
func AnnualizedReturn(profit, marginReq float64, days int) (float64, error) {
	if days <= 0 {
		return 0, errors.NewCandidateError("return", "days", float64(days))
	}
	if marginReq <= 0 {
		return 0, errors.NewCandidateError("return", "margin", marginReq)
	}
	return (profit / marginReq) * (365.0 / float64(days)), nil
}

// CAGR computes compound annual growth with guards against overflow and
// degenerate inputs, returning 0 rather than an error for display math.
func CAGR(investment, returns float64, days int) float64 {
	if investment <= 0 || returns <= 0 || days <= 0 {
		return 0
	}
	ratio := math.Min(returns/investment, 1e6)
	cagr := math.Pow(ratio, 365.0/float64(days)) - 1
	if math.IsNaN(cagr) || math.IsInf(cagr, 0) || cagr > 1e6 {
		return 0
	}
	if cagr > 10 {
		return 10
	}
	return cagr
}
