package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"schwab-trader/internal/models"
	"schwab-trader/internal/scan"
)

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <symbol>",
		Short: "Scan an option chain for spread candidates",
		Long: `Scan the option chain of a symbol for box spreads, bull call
verticals and synthetic covered calls, ranked by annualized return.`,
		Example: `  schwab-trader scan SPX
  schwab-trader scan QQQ --family vertical`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			familyFilter, _ := cmd.Flags().GetString("family")

			snapshot, err := app.Feed.GetSnapshot(ctx, symbol)
			if err != nil {
				return fmt.Errorf("fetching chain for %s: %w", symbol, err)
			}

			scanner := scan.NewScanner(app.Config, app.Logger)
			results := scanner.Scan(snapshot)

			for _, kind := range []models.StrategyKind{
				models.StrategyBoxSpread,
				models.StrategyVertical,
				models.StrategySyntheticCC,
			} {
				if familyFilter != "" && familyFilter != string(kind) {
					continue
				}
				renderCandidates(cmd, kind, results[kind])
			}
			return nil
		},
	}

	cmd.Flags().String("family", "", "limit output to one family: box_spread, vertical, synthetic_covered_call")
	return cmd
}

func renderCandidates(cmd *cobra.Command, kind models.StrategyKind, candidates []models.SpreadCandidate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s (%d candidates)\n", kind, len(candidates))
	if len(candidates) == 0 {
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Expiry", "DTE", "Strikes", "Net", "Annualized", "Margin"})

	for _, c := range candidates {
		table.Append([]string{
			c.Expiration.Format("2006-01-02"),
			fmt.Sprintf("%d", c.DaysToExpiry),
			strikeRange(c),
			fmt.Sprintf("%.2f", c.NetPrice),
			fmt.Sprintf("%.1f%%", c.AnnualizedReturn*100),
			fmt.Sprintf("%.0f", c.Margin.Amount),
		})
	}
	table.Render()
}

func strikeRange(c models.SpreadCandidate) string {
	lo, hi := c.Legs[0].Contract.Strike, c.Legs[0].Contract.Strike
	for _, leg := range c.Legs {
		if leg.Contract.Strike < lo {
			lo = leg.Contract.Strike
		}
		if leg.Contract.Strike > hi {
			hi = leg.Contract.Strike
		}
	}
	return fmt.Sprintf("%.0f/%.0f", lo, hi)
}
