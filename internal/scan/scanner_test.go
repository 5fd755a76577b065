package scan

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schwab-trader/internal/config"
	"schwab-trader/internal/models"
)

var scanNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func scanConfig(asset config.AssetConfig) *config.Config {
	return &config.Config{
		Assets: map[string]config.AssetConfig{"XYZ": asset},
		Scanner: config.ScannerConfig{
			MinAnnualizedReturn: 0.20,
			MaxLegSpread:        2.0,
			MaxCandidates:       10,
		},
		Margin: config.MarginRules{
			IndexInitialPct:    0.15,
			IndexMinPct:        0.10,
			EquityInitialPct:   0.20,
			EquityMinPct:       0.10,
			FloorPerContract:   100,
			EquityFloor:        2000,
			CoveredCallRegTPct: 0.50,
		},
	}
}

func scanContract(strike float64, exp time.Time, right models.OptionRight, bid, ask float64) models.OptionContract {
	return models.OptionContract{
		Symbol:     fmt.Sprintf("XYZ %s%05.0f%s", exp.Format("060102"), strike, right),
		Underlying: "XYZ",
		Expiration: exp,
		Strike:     strike,
		Right:      right,
		Bid:        bid,
		Ask:        ask,
	}
}

func newScanner(cfg *config.Config) *Scanner {
	return NewScanner(cfg, zerolog.Nop()).WithClock(func() time.Time { return scanNow })
}

func TestScanVerticalSpread(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 30)

	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(95, exp, models.Call, 6.90, 7.10),
		scanContract(100, exp, models.Call, 4.90, 5.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	require.Len(t, out[models.StrategyVertical], 1)

	c := out[models.StrategyVertical][0]
	assert.Equal(t, models.StrategyVertical, c.Kind)
	assert.InDelta(t, -2.00, c.NetPrice, 1e-9)
	assert.InDelta(t, 200.0, c.Margin.Amount, 1e-9)
	// 300 profit on 200 margin over 30 days, annualized.
	assert.InDelta(t, 18.25, c.AnnualizedReturn, 1e-9)
	assert.Equal(t, 30, c.DaysToExpiry)
	assert.InDelta(t, 5.0, c.StrikeWidth(), 1e-9)
}

func TestScanVerticalRespectsDownsideProtection(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5, DownsideProtection: 0.05})
	exp := scanNow.AddDate(0, 0, 30)

	// Break-even 97 on a 100 underlying gives only 3% of cushion.
	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(95, exp, models.Call, 6.90, 7.10),
		scanContract(100, exp, models.Call, 4.90, 5.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	assert.Empty(t, out[models.StrategyVertical])
}

func TestScanBoxSpreadSurvivesReturnFloor(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "broad_based_index", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 30)

	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(95, exp, models.Call, 6.90, 7.10),
		scanContract(100, exp, models.Call, 4.90, 5.10),
		scanContract(95, exp, models.Put, 0.90, 1.10),
		scanContract(100, exp, models.Put, 3.70, 3.90),
	})

	out := newScanner(cfg).Scan(snapshot)
	require.Len(t, out[models.StrategyBoxSpread], 1)

	c := out[models.StrategyBoxSpread][0]
	// Collect 4.80 now, repay 5.00 at expiry.
	assert.InDelta(t, 4.80, c.NetPrice, 1e-9)
	assert.InDelta(t, 500.0, c.Margin.Amount, 1e-9)
	// Financing cost is carried with a negative sign and is exempt from
	// the minimum-return filter.
	assert.InDelta(t, -(20.0/480.0)*(365.0/30.0), c.AnnualizedReturn, 1e-9)
}

func TestScanDropsInvertedBox(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "broad_based_index", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 30)

	// Mid credit 9.50 exceeds the 5.00 face: buying it back costs less
	// than the cash collected, which real chains do not offer.
	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(95, exp, models.Call, 7.90, 8.10),
		scanContract(100, exp, models.Call, 1.90, 2.10),
		scanContract(95, exp, models.Put, 0.40, 0.60),
		scanContract(100, exp, models.Put, 3.90, 4.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	assert.Empty(t, out[models.StrategyBoxSpread])
}

func TestScanDropsIlliquidLegs(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 30)

	// The 100 call quotes 3.00 wide, past the 2.00 per-leg cutoff.
	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(95, exp, models.Call, 6.90, 7.10),
		scanContract(100, exp, models.Call, 3.50, 6.50),
	})

	out := newScanner(cfg).Scan(snapshot)
	assert.Empty(t, out[models.StrategyVertical])
}

func TestScanSyntheticCoveredCall(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 30)

	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(100, exp, models.Call, 6.90, 7.10),
		scanContract(105, exp, models.Call, 2.90, 3.10),
		scanContract(100, exp, models.Put, 1.90, 2.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	require.Len(t, out[models.StrategySyntheticCC], 1)

	c := out[models.StrategySyntheticCC][0]
	require.Len(t, c.Legs, 3)
	// Buy call 100, sell call 105, sell put 100 for a 2.00 net debit.
	assert.InDelta(t, -2.00, c.NetPrice, 1e-9)
	// Naked put treatment: max(0.20*10000+190, 0.10*10000+190) = 2190.
	assert.InDelta(t, 2190.0, c.Margin.Amount, 1e-9)
	assert.InDelta(t, (300.0/2190.0)*(365.0/30.0), c.AnnualizedReturn, 1e-9)
}

func TestScanSyntheticRequiresMarginAdvantage(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	// A near-zero Reg-T percentage makes owning the shares cheaper than
	// the naked put treatment, so the synthetic loses its reason to exist.
	cfg.Margin.CoveredCallRegTPct = 0.02
	exp := scanNow.AddDate(0, 0, 30)

	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(100, exp, models.Call, 6.90, 7.10),
		scanContract(105, exp, models.Call, 2.90, 3.10),
		scanContract(100, exp, models.Put, 1.90, 2.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	assert.Empty(t, out[models.StrategySyntheticCC])
}

func TestScanRanksByAnnualizedReturn(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 30)

	// 90/95 costs 3.00 for a 5.00 width, 95/100 costs 2.00. The cheaper
	// debit earns more per margin dollar and must rank first.
	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(90, exp, models.Call, 7.90, 8.10),
		scanContract(95, exp, models.Call, 4.90, 5.10),
		scanContract(100, exp, models.Call, 2.90, 3.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	verticals := out[models.StrategyVertical]
	require.Len(t, verticals, 2)

	assert.InDelta(t, 95.0, verticals[0].Legs[0].Contract.Strike, 1e-9)
	assert.InDelta(t, 90.0, verticals[1].Legs[0].Contract.Strike, 1e-9)
	assert.Greater(t, verticals[0].AnnualizedReturn, verticals[1].AnnualizedReturn)
}

func TestScanCapsCandidatesPerFamily(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	cfg.Scanner.MaxCandidates = 1
	exp := scanNow.AddDate(0, 0, 30)

	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(90, exp, models.Call, 7.90, 8.10),
		scanContract(95, exp, models.Call, 4.90, 5.10),
		scanContract(100, exp, models.Call, 2.90, 3.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	verticals := out[models.StrategyVertical]
	require.Len(t, verticals, 1)
	assert.InDelta(t, 95.0, verticals[0].Legs[0].Contract.Strike, 1e-9)
}

func TestScanHonorsDayWindows(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5, MinDays: 14, ScanDays: 45})

	near := scanNow.AddDate(0, 0, 7)
	far := scanNow.AddDate(0, 0, 90)

	var contracts []models.OptionContract
	for _, exp := range []time.Time{near, far} {
		contracts = append(contracts,
			scanContract(95, exp, models.Call, 6.90, 7.10),
			scanContract(100, exp, models.Call, 4.90, 5.10),
		)
	}
	snapshot := models.NewSnapshot("XYZ", 100, scanNow, contracts)

	out := newScanner(cfg).Scan(snapshot)
	assert.Empty(t, out[models.StrategyVertical])
}

func TestScanAppliesReturnFloor(t *testing.T) {
	cfg := scanConfig(config.AssetConfig{Class: "etf", StrikeWidth: 5})
	exp := scanNow.AddDate(0, 0, 300)

	// 10 profit on 490 margin over 300 days annualizes to about 2.5%,
	// well under the 20% floor.
	snapshot := models.NewSnapshot("XYZ", 100, scanNow, []models.OptionContract{
		scanContract(95, exp, models.Call, 6.80, 7.00),
		scanContract(100, exp, models.Call, 1.90, 2.10),
	})

	out := newScanner(cfg).Scan(snapshot)
	assert.Empty(t, out[models.StrategyVertical])
}
