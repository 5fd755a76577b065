package models

import "time"

// Position represents a position in the account view. Quantity is signed;
// negative means short. OptionSymbol is empty for stock positions.
type Position struct {
	Underlying   string
	OptionSymbol string
	Quantity     int
	CostBasis    float64
	Strike       float64
	Right        OptionRight
	Expiration   time.Time
}

// IsOption reports whether the position is an option position.
func (p Position) IsOption() bool {
	return p.OptionSymbol != ""
}

// IsShortCall reports whether the position is a short call.
func (p Position) IsShortCall() bool {
	return p.IsOption() && p.Right == Call && p.Quantity < 0
}

// DaysToExpiry returns whole days until expiration, floored at 0.
func (p Position) DaysToExpiry(now time.Time) int {
	d := int(p.Expiration.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
