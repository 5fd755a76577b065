package margin

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"schwab-trader/internal/models"
)

// Property: a vertical spread margin requirement is never negative,
// whatever the width/credit combination.
func TestProperty_VerticalMarginNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	widthGen := gen.Float64Range(0.5, 500)
	creditGen := gen.Float64Range(-50, 600)
	contractsGen := gen.IntRange(1, 10)

	properties.Property("vertical margin >= 0", prop.ForAll(
		func(width, credit float64, contracts int) bool {
			req, err := Compute(Input{
				Strategy:    models.StrategyVertical,
				Asset:       models.AssetETF,
				StrikeWidth: width,
				NetCredit:   credit,
				Contracts:   contracts,
			}, testRules())
			if err != nil {
				return false
			}
			return req.Amount >= 0
		},
		widthGen, creditGen, contractsGen,
	))

	properties.TestingRun(t)
}

// Property: short call margin is monotonic in the configured floor — it
// never comes out below the per-class floor times contract count.
func TestProperty_ShortCallRespectsFloor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	priceGen := gen.Float64Range(1, 10000)
	strikeGen := gen.Float64Range(1, 12000)
	premiumGen := gen.Float64Range(0, 100)

	properties.Property("short call margin >= floor", prop.ForAll(
		func(price, strike, premium float64) bool {
			rules := testRules()
			req, err := Compute(Input{
				Strategy:        models.StrategyShortCall,
				Asset:           models.AssetEquity,
				UnderlyingPrice: price,
				Strike:          strike,
				Premium:         premium,
				Contracts:       1,
			}, rules)
			if err != nil {
				return false
			}
			return req.Amount >= rules.EquityFloor
		},
		priceGen, strikeGen, premiumGen,
	))

	properties.TestingRun(t)
}
