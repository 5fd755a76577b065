package scan

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"schwab-trader/internal/config"
	"schwab-trader/internal/models"
)

// Properties over randomly priced call ladders: every vertical the
// scanner emits prices strictly inside its width, and each family's
// output is ordered by non-increasing annualized return.
func TestProperty_VerticalCandidatesWellFormed(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	midsGen := gen.SliceOfN(8, gen.Float64Range(0.10, 20.0))

	properties.Property("debit inside width, sorted by return", prop.ForAll(
		func(mids []float64) bool {
			cfg := scanConfig(config.AssetConfig{Class: "etf"})
			cfg.Scanner.MinAnnualizedReturn = 0

			exp := scanNow.AddDate(0, 0, 30)
			contracts := make([]models.OptionContract, 0, len(mids))
			for i, mid := range mids {
				strike := 100 + float64(i)*5
				contracts = append(contracts, scanContract(strike, exp, models.Call, mid-0.05, mid+0.05))
			}
			snapshot := models.NewSnapshot("XYZ", 110, scanNow, contracts)

			out := newScanner(cfg).Scan(snapshot)
			verticals := out[models.StrategyVertical]

			for i, c := range verticals {
				debit := -c.NetPrice
				if debit <= 0 || debit >= c.StrikeWidth() {
					return false
				}
				if i > 0 && c.AnnualizedReturn > verticals[i-1].AnnualizedReturn {
					return false
				}
			}
			return true
		},
		midsGen,
	))

	properties.TestingRun(t)
}
