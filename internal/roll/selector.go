// Package roll proposes roll targets for short call positions nearing
// expiration.
package roll

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"schwab-trader/internal/config"
	"schwab-trader/internal/models"
)

// Selector searches a snapshot for replacement contracts for expiring
// short calls. It holds only read-only references; a new snapshot means
// a new evaluation cycle.
type Selector struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewSelector creates a new roll selector.
func NewSelector(cfg *config.Config, logger zerolog.Logger) *Selector {
	return &Selector{cfg: cfg, logger: logger, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// Propose returns roll candidates for every short call position within
// its configured day-count window, ordered highest score first. An empty
// result is valid: no positions need rolling.
func (s *Selector) Propose(snapshot *models.Snapshot, positions []models.Position, marketOpen bool) []models.RollCandidate {
	now := s.now()
	var candidates []models.RollCandidate

	for _, pos := range positions {
		if !pos.IsShortCall() || pos.Underlying != snapshot.Underlying {
			continue
		}
		asset := s.cfg.Asset(pos.Underlying)
		dte := pos.DaysToExpiry(now)
		if dte > asset.DaysWindow {
			continue
		}

		urgent := dte == 0 && marketOpen
		found := s.targetsFor(snapshot, pos, asset, now, urgent, false)
		if len(found) == 0 && asset.AllowSameStrike {
			found = s.targetsFor(snapshot, pos, asset, now, urgent, true)
		}
		if len(found) == 0 {
			s.logger.Info().
				Str("symbol", pos.Underlying).
				Str("option", pos.OptionSymbol).
				Msg("No roll target within configured gap, skipping")
			continue
		}
		candidates = append(candidates, found...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DaysOut != b.DaysOut {
			return a.DaysOut < b.DaysOut
		}
		return a.Target.Strike > b.Target.Strike
	})
	return candidates
}

// targetsFor enumerates target contracts for one position. sameStrike
// relaxes the roll-up gap to the current strike only, the configured
// fallback when nothing above the gap exists.
func (s *Selector) targetsFor(snapshot *models.Snapshot, pos models.Position, asset config.AssetConfig, now time.Time, urgent, sameStrike bool) []models.RollCandidate {
	buyback, ok := s.buybackCost(snapshot, pos)
	if !ok {
		s.logger.Warn().
			Str("option", pos.OptionSymbol).
			Msg("Short contract not quoted in snapshot, cannot price roll")
		return nil
	}

	minStrike := pos.Strike + asset.MinRollupGap
	if sameStrike {
		minStrike = pos.Strike
	}

	var out []models.RollCandidate
	for _, exp := range snapshot.Expirations() {
		if !exp.After(pos.Expiration) {
			continue
		}
		daysOut := int(exp.Sub(now).Hours() / 24)
		if daysOut <= 0 {
			continue
		}
		if daysOut < asset.MinRollOutWindow || daysOut > asset.MaxRollOutWindow {
			continue
		}
		for _, target := range snapshot.Chain(exp, models.Call) {
			if target.Strike < minStrike {
				continue
			}
			if sameStrike && target.Strike != pos.Strike {
				continue
			}
			if asset.MinStrike > 0 && target.Strike < asset.MinStrike {
				continue
			}
			if !target.HasQuote() {
				continue
			}

			// Credit of the new short at its bid, less what closing
			// the old one costs. Negative means paying a debit.
			netCredit := target.Bid - buyback
			if netCredit < -asset.MaxDebit {
				continue
			}

			out = append(out, models.RollCandidate{
				Source:     pos,
				Target:     target,
				NetCredit:  netCredit,
				DaysOut:    daysOut,
				Score:      netCredit / float64(daysOut),
				Urgent:     urgent,
				SameStrike: sameStrike,
			})
		}
	}
	return out
}

// buybackCost prices closing the existing short at the midpoint, the
// same basis the original premium was tracked at.
func (s *Selector) buybackCost(snapshot *models.Snapshot, pos models.Position) (float64, bool) {
	if c, ok := snapshot.Contract(pos.Expiration, pos.Strike, models.Call); ok && c.HasQuote() {
		return c.Mid(), true
	}
	if c, ok := snapshot.FindBySymbol(pos.OptionSymbol); ok && c.HasQuote() {
		return c.Mid(), true
	}
	return 0, false
}
