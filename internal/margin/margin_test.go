package margin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/models"
)

func testRules() config.MarginRules {
	return config.MarginRules{
		IndexInitialPct:    0.15,
		IndexMinPct:        0.10,
		EquityInitialPct:   0.20,
		EquityMinPct:       0.10,
		FloorPerContract:   100,
		EquityFloor:        2000,
		CoveredCallRegTPct: 0.50,
	}
}

func TestShortCallIndexUsesGreaterMethod(t *testing.T) {
	req, err := Compute(Input{
		Strategy:        models.StrategyShortCall,
		Asset:           models.AssetIndex,
		UnderlyingPrice: 5000,
		Strike:          5100,
		Premium:         20,
		Contracts:       1,
	}, testRules())
	require.NoError(t, err)

	// 15% method: 0.15*500000 - 10000 + 2000 = 67000
	// 10% method: 0.10*500000 + 2000 = 52000
	assert.InDelta(t, 67000, req.Amount, 0.01)
	assert.Equal(t, models.AssetIndex, req.Asset)
}

func TestShortCallLeveragedETFScalesPercentages(t *testing.T) {
	rules := testRules()

	base, err := Compute(Input{
		Strategy:        models.StrategyShortCall,
		Asset:           models.AssetETF,
		UnderlyingPrice: 60,
		Strike:          60,
		Premium:         1.50,
		Contracts:       1,
	}, rules)
	require.NoError(t, err)

	levered, err := Compute(Input{
		Strategy:        models.StrategyShortCall,
		Asset:           models.AssetLeveragedETF,
		UnderlyingPrice: 60,
		Strike:          60,
		Premium:         1.50,
		Contracts:       1,
		Leverage:        3,
	}, rules)
	require.NoError(t, err)

	assert.Greater(t, levered.Amount, base.Amount)
	// 3x: 0.60*6000 + 150 = 3750 (ATM, both methods equal to pct*notional+prem)
	assert.InDelta(t, 3750, levered.Amount, 0.01)
}

func TestShortCallEquityFloor(t *testing.T) {
	req, err := Compute(Input{
		Strategy:        models.StrategyShortCall,
		Asset:           models.AssetEquity,
		UnderlyingPrice: 10,
		Strike:          30,
		Premium:         0.05,
		Contracts:       1,
	}, testRules())
	require.NoError(t, err)
	assert.Equal(t, 2000.0, req.Amount)
}

func TestBoxSpreadIsFaceValue(t *testing.T) {
	req, err := Compute(Input{
		Strategy:    models.StrategyBoxSpread,
		Asset:       models.AssetIndex,
		StrikeWidth: 200,
		Contracts:   2,
	}, testRules())
	require.NoError(t, err)
	assert.Equal(t, 40000.0, req.Amount)
}

func TestBoxSpreadRejectsNegativeWidth(t *testing.T) {
	_, err := Compute(Input{
		Strategy:    models.StrategyBoxSpread,
		Asset:       models.AssetIndex,
		StrikeWidth: -5,
	}, testRules())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCandidate))
}

func TestVerticalCreditFlooredAtZero(t *testing.T) {
	req, err := Compute(Input{
		Strategy:    models.StrategyVertical,
		Asset:       models.AssetETF,
		StrikeWidth: 5,
		NetCredit:   7, // credit wider than the face value
		Contracts:   1,
	}, testRules())
	require.NoError(t, err)
	assert.Equal(t, 0.0, req.Amount)
}

func TestVerticalDebitIsFullCost(t *testing.T) {
	req, err := Compute(Input{
		Strategy:    models.StrategyVertical,
		Asset:       models.AssetETF,
		StrikeWidth: 5,
		NetCredit:   -2,
		Contracts:   1,
	}, testRules())
	require.NoError(t, err)
	assert.Equal(t, 200.0, req.Amount)
}

func TestSyntheticMarginKeyedOffStrike(t *testing.T) {
	req, err := Compute(Input{
		Strategy:        models.StrategySyntheticCC,
		Asset:           models.AssetIndex,
		UnderlyingPrice: 5000,
		Strike:          4800,
		Premium:         30,
		Contracts:       1,
	}, testRules())
	require.NoError(t, err)

	// 15% method: 0.15*480000 - 0 + 3000 = 75000 (put is ITM, no OTM offset)
	assert.InDelta(t, 75000, req.Amount, 0.01)
}

func TestAnnualizedReturn(t *testing.T) {
	r, err := AnnualizedReturn(300, 500, 30)
	require.NoError(t, err)
	assert.InDelta(t, 7.3, r, 0.0001) // 0.6 * 365/30

	_, err = AnnualizedReturn(300, 500, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidCandidate))

	_, err = AnnualizedReturn(300, 0, 30)
	assert.True(t, errors.Is(err, errors.ErrInvalidCandidate))
}

func TestCAGRGuards(t *testing.T) {
	assert.Equal(t, 0.0, CAGR(0, 100, 30))
	assert.Equal(t, 0.0, CAGR(100, 0, 30))
	assert.Equal(t, 0.0, CAGR(100, 100, 0))
	assert.Greater(t, CAGR(100, 150, 365), 0.0)
}
