package models

import "time"

// MarginRequirement represents a computed margin requirement. The formula
// inputs are retained for audit logging.
type MarginRequirement struct {
	Strategy StrategyKind
	Asset    AssetClass
	Amount   float64
	Inputs   MarginInputs
}

// MarginInputs holds the raw numbers a margin figure was derived from.
type MarginInputs struct {
	UnderlyingPrice float64
	Strike          float64
	StrikeWidth     float64
	Premium         float64
	NetCredit       float64
	Contracts       int
	Leverage        float64
}

// RollCandidate is a proposed roll of an expiring short call into a later
// expiration. Candidates live for a single evaluation cycle.
type RollCandidate struct {
	Source    Position
	Target    OptionContract
	NetCredit float64 // negative = debit paid to roll
	DaysOut   int     // days to the target expiration
	Score     float64 // net credit per day held
	Urgent    bool    // at/past expiration cutoff with the market open
	SameStrike bool   // fallback roll-out at the current strike
}

// SpreadLeg is one leg of a spread candidate.
type SpreadLeg struct {
	Contract    OptionContract
	Instruction Instruction
	Quantity    int
}

// SpreadCandidate is a scored multi-leg candidate. Immutable once scored.
type SpreadCandidate struct {
	Kind             StrategyKind
	Underlying       string
	Expiration       time.Time
	Legs             []SpreadLeg
	NetPrice         float64 // credit positive, debit negative
	AnnualizedReturn float64
	Margin           MarginRequirement
	DaysToExpiry     int
	SpreadWidth      float64 // summed leg bid-ask spread, liquidity proxy
}

// StrikeWidth returns the distance between the lowest and highest leg strike.
func (c SpreadCandidate) StrikeWidth() float64 {
	if len(c.Legs) == 0 {
		return 0
	}
	lo, hi := c.Legs[0].Contract.Strike, c.Legs[0].Contract.Strike
	for _, leg := range c.Legs[1:] {
		if leg.Contract.Strike < lo {
			lo = leg.Contract.Strike
		}
		if leg.Contract.Strike > hi {
			hi = leg.Contract.Strike
		}
	}
	return hi - lo
}
