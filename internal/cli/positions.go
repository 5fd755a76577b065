package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show account positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			positions, err := app.Feed.GetPositions(ctx, app.Config.Trading.AccountID)
			if err != nil {
				return fmt.Errorf("fetching positions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(positions) == 0 {
				fmt.Fprintln(out, "No positions")
				return nil
			}

			now := time.Now()
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Underlying", "Symbol", "Qty", "Strike", "Expiry", "DTE", "Cost Basis"})

			for _, p := range positions {
				expiry, dte := "", ""
				if p.IsOption() {
					expiry = p.Expiration.Format("2006-01-02")
					dte = fmt.Sprintf("%d", p.DaysToExpiry(now))
				}
				table.Append([]string{
					p.Underlying,
					p.OptionSymbol,
					fmt.Sprintf("%d", p.Quantity),
					fmt.Sprintf("%.0f", p.Strike),
					expiry,
					dte,
					fmt.Sprintf("%.2f", p.CostBasis),
				})
			}
			table.Render()
			return nil
		},
	}
}
