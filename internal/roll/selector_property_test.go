package roll

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"schwab-trader/internal/config"
	"schwab-trader/internal/models"
)

// Property: with the same-strike fallback disabled, the selector never
// proposes a target strike below currentStrike + minRollupGap.
func TestProperty_SelectorHonorsMinRollupGap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	strikeGen := gen.Float64Range(50, 150)
	gapGen := gen.Float64Range(0, 25)
	strikeStepGen := gen.IntRange(1, 10)

	properties.Property("target strike >= current + gap", prop.ForAll(
		func(current, gap float64, step int) bool {
			cfg := testConfig(config.AssetConfig{
				Class:            "etf",
				DaysWindow:       7,
				MinRollupGap:     gap,
				MinRollOutWindow: 7,
				MaxRollOutWindow: 60,
				MaxDebit:         100,
			})
			sel := NewSelector(cfg, zerolog.Nop()).WithClock(func() time.Time { return testNow })

			nearExp := testNow.AddDate(0, 0, 3)
			farExp := testNow.AddDate(0, 0, 30)

			// A ladder of strikes around the short, some below the gap.
			contracts := []models.OptionContract{
				contract(current, nearExp, models.Call, 2.00, 2.20),
			}
			for i := -3; i <= 6; i++ {
				strike := current + float64(i*step)
				contracts = append(contracts, contract(strike, farExp, models.Call, 1.00, 1.20))
			}

			snapshot := models.NewSnapshot("QQQ", current+1, testNow, contracts)
			pos := shortCall(current, nearExp)

			for _, c := range sel.Propose(snapshot, []models.Position{pos}, true) {
				if c.Target.Strike < current+gap {
					return false
				}
			}
			return true
		},
		strikeGen, gapGen, strikeStepGen,
	))

	properties.TestingRun(t)
}
