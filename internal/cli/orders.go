package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show recent order history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if app.Store == nil {
				return fmt.Errorf("order store not available")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			records, err := app.Store.ListOrders(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing orders: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No orders recorded")
				return nil
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Closed", "Underlying", "Strategy", "State", "Limit", "Filled", "Attempts", "Reason"})

			for _, r := range records {
				table.Append([]string{
					r.ClosedAt.Format("2006-01-02 15:04"),
					r.Underlying,
					string(r.Strategy),
					string(r.State),
					fmt.Sprintf("%.2f", r.LimitPrice),
					fmt.Sprintf("%d", r.FilledQty),
					fmt.Sprintf("%d", r.Attempts),
					r.Reason,
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum rows to show")
	return cmd
}
