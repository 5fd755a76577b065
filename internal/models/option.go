package models

import (
	"sort"
	"time"
)

// OptionContract represents a single option contract inside a snapshot.
// Contracts are immutable once the snapshot is built.
type OptionContract struct {
	Symbol       string
	Underlying   string
	Expiration   time.Time
	Strike       float64
	Right        OptionRight
	Bid          float64
	Ask          float64
	Last         float64
	OpenInterest int64
}

// Mid returns the bid-ask midpoint.
func (c OptionContract) Mid() float64 {
	return (c.Bid + c.Ask) / 2
}

// SpreadWidth returns the bid-ask spread, a liquidity proxy.
func (c OptionContract) SpreadWidth() float64 {
	return c.Ask - c.Bid
}

// HasQuote reports whether the contract carries a usable two-sided quote.
func (c OptionContract) HasQuote() bool {
	return c.Bid > 0 && c.Ask > 0 && c.Bid <= c.Ask
}

// DaysToExpiry returns whole days from now until expiration, floored at 0.
func (c OptionContract) DaysToExpiry(now time.Time) int {
	d := int(c.Expiration.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ContractKey identifies a contract within a snapshot.
type ContractKey struct {
	Expiration time.Time
	Strike     float64
	Right      OptionRight
}

// Snapshot is a normalized option chain plus underlying quote at a point
// in time. It is read-only after construction; a new market poll produces
// a new Snapshot.
type Snapshot struct {
	Underlying      string
	UnderlyingPrice float64
	Taken           time.Time

	contracts   map[ContractKey]OptionContract
	expirations []time.Time
}

// NewSnapshot builds a snapshot from a contract list. Later duplicates of
// the same (expiration, strike, right) key are dropped.
func NewSnapshot(underlying string, price float64, taken time.Time, contracts []OptionContract) *Snapshot {
	s := &Snapshot{
		Underlying:      underlying,
		UnderlyingPrice: price,
		Taken:           taken,
		contracts:       make(map[ContractKey]OptionContract, len(contracts)),
	}

	seen := make(map[time.Time]bool)
	for _, c := range contracts {
		key := ContractKey{Expiration: c.Expiration, Strike: c.Strike, Right: c.Right}
		if _, ok := s.contracts[key]; ok {
			continue
		}
		s.contracts[key] = c
		if !seen[c.Expiration] {
			seen[c.Expiration] = true
			s.expirations = append(s.expirations, c.Expiration)
		}
	}
	sort.Slice(s.expirations, func(i, j int) bool {
		return s.expirations[i].Before(s.expirations[j])
	})
	return s
}

// Contract looks up a contract by key.
func (s *Snapshot) Contract(expiration time.Time, strike float64, right OptionRight) (OptionContract, bool) {
	c, ok := s.contracts[ContractKey{Expiration: expiration, Strike: strike, Right: right}]
	return c, ok
}

// Expirations returns expiration dates in ascending order.
func (s *Snapshot) Expirations() []time.Time {
	out := make([]time.Time, len(s.expirations))
	copy(out, s.expirations)
	return out
}

// Strikes returns the sorted strikes quoted for an expiration and right.
func (s *Snapshot) Strikes(expiration time.Time, right OptionRight) []float64 {
	var strikes []float64
	for key := range s.contracts {
		if key.Right == right && key.Expiration.Equal(expiration) {
			strikes = append(strikes, key.Strike)
		}
	}
	sort.Float64s(strikes)
	return strikes
}

// Chain returns the contracts for an expiration and right, sorted by strike.
func (s *Snapshot) Chain(expiration time.Time, right OptionRight) []OptionContract {
	var chain []OptionContract
	for key, c := range s.contracts {
		if key.Right == right && key.Expiration.Equal(expiration) {
			chain = append(chain, c)
		}
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].Strike < chain[j].Strike })
	return chain
}

// FindBySymbol scans the snapshot for a contract by brokerage symbol.
func (s *Snapshot) FindBySymbol(symbol string) (OptionContract, bool) {
	for _, c := range s.contracts {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return OptionContract{}, false
}

// Len returns the number of contracts held.
func (s *Snapshot) Len() int {
	return len(s.contracts)
}
