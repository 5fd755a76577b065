// Package scan enumerates and ranks box spreads, bull call verticals and
// synthetic covered calls from an option chain snapshot.
package scan

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/logging"
	"schwab-trader/internal/models"
)

// family is the capability contract every strategy family implements:
// enumerate leg sets for an expiration, validate a leg set, and score it.
type family interface {
	kind() models.StrategyKind
	buildLegs(snapshot *models.Snapshot, expiration time.Time, asset config.AssetConfig) [][]models.SpreadLeg
	validate(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig) error
	score(legs []models.SpreadLeg, snapshot *models.Snapshot, asset config.AssetConfig, days int, rules config.MarginRules) (scored, error)
}

// scored is the result of pricing one leg set.
type scored struct {
	netPrice   float64
	annualized float64
	margin     models.MarginRequirement
}

// Scanner runs all families over a snapshot in a single pass each.
type Scanner struct {
	cfg      *config.Config
	logger   zerolog.Logger
	now      func() time.Time
	families []family
}

// NewScanner creates a scanner with the three standard families.
func NewScanner(cfg *config.Config, logger zerolog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		families: []family{
			boxFamily{},
			verticalFamily{},
			syntheticFamily{},
		},
	}
}

// WithClock overrides the clock, for tests.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Scan returns, per strategy family, candidates ranked by annualized
// return descending with tighter combined bid-ask spreads breaking ties.
// Malformed candidates are dropped and the scan continues.
func (s *Scanner) Scan(snapshot *models.Snapshot) map[models.StrategyKind][]models.SpreadCandidate {
	asset := s.cfg.Asset(snapshot.Underlying)
	now := s.now()

	out := make(map[models.StrategyKind][]models.SpreadCandidate, len(s.families))
	for _, f := range s.families {
		out[f.kind()] = s.scanFamily(f, snapshot, asset, now)
	}
	return out
}

func (s *Scanner) scanFamily(f family, snapshot *models.Snapshot, asset config.AssetConfig, now time.Time) []models.SpreadCandidate {
	var candidates []models.SpreadCandidate

	for _, exp := range snapshot.Expirations() {
		days := int(exp.Sub(now).Hours() / 24)
		if days <= 1 {
			continue
		}
		if asset.MinDays > 0 && days < asset.MinDays {
			continue
		}
		if asset.ScanDays > 0 && days > asset.ScanDays {
			continue
		}

		for _, legs := range f.buildLegs(snapshot, exp, asset) {
			if !s.liquid(legs) {
				continue
			}
			if err := f.validate(legs, snapshot, asset); err != nil {
				s.dropCandidate(f, err)
				continue
			}
			sc, err := f.score(legs, snapshot, asset, days, s.cfg.Margin)
			if err != nil {
				s.dropCandidate(f, err)
				continue
			}
			if s.belowReturnFloor(f, sc.annualized) {
				continue
			}

			c := models.SpreadCandidate{
				Kind:             f.kind(),
				Underlying:       snapshot.Underlying,
				Expiration:       exp,
				Legs:             legs,
				NetPrice:         sc.netPrice,
				AnnualizedReturn: sc.annualized,
				Margin:           sc.margin,
				DaysToExpiry:     days,
				SpreadWidth:      combinedSpread(legs),
			}
			logging.LogCandidate(s.logger, string(c.Kind), c.Underlying, c.NetPrice, c.AnnualizedReturn)
			candidates = append(candidates, c)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].AnnualizedReturn != candidates[j].AnnualizedReturn {
			return candidates[i].AnnualizedReturn > candidates[j].AnnualizedReturn
		}
		return candidates[i].SpreadWidth < candidates[j].SpreadWidth
	})

	if max := s.cfg.Scanner.MaxCandidates; max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// liquid applies the per-leg bid-ask cutoff shared by all families.
func (s *Scanner) liquid(legs []models.SpreadLeg) bool {
	for _, leg := range legs {
		if !leg.Contract.HasQuote() {
			return false
		}
		if s.cfg.Scanner.MaxLegSpread > 0 && leg.Contract.SpreadWidth() > s.cfg.Scanner.MaxLegSpread {
			return false
		}
	}
	return len(legs) > 0
}

// belowReturnFloor applies the shared minimum annualized-return filter.
// Box spreads are exempt: their annualized figure is a financing cost
// carried with a negative sign, not a return to be maximized.
func (s *Scanner) belowReturnFloor(f family, annualized float64) bool {
	if f.kind() == models.StrategyBoxSpread {
		return false
	}
	return annualized < s.cfg.Scanner.MinAnnualizedReturn
}

func (s *Scanner) dropCandidate(f family, err error) {
	if errors.Is(err, errors.ErrInvalidCandidate) {
		s.logger.Debug().Err(err).Str("family", string(f.kind())).Msg("Dropping candidate")
		return
	}
	s.logger.Warn().Err(err).Str("family", string(f.kind())).Msg("Dropping candidate")
}

func combinedSpread(legs []models.SpreadLeg) float64 {
	var total float64
	for _, leg := range legs {
		total += leg.Contract.SpreadWidth()
	}
	return total
}

// strikePairs returns (low, high) index pairs over sorted strikes. When
// width > 0 only pairs exactly that far apart qualify; otherwise
// adjacent pairs are used.
func strikePairs(strikes []float64, width float64) [][2]float64 {
	var pairs [][2]float64
	if width > 0 {
		for i := 0; i < len(strikes); i++ {
			for j := i + 1; j < len(strikes); j++ {
				if strikes[j]-strikes[i] == width {
					pairs = append(pairs, [2]float64{strikes[i], strikes[j]})
				}
			}
		}
		return pairs
	}
	for i := 0; i+1 < len(strikes); i++ {
		pairs = append(pairs, [2]float64{strikes[i], strikes[i+1]})
	}
	return pairs
}
