package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"schwab-trader/internal/exec"
	"schwab-trader/internal/models"
	"schwab-trader/internal/roll"
	"schwab-trader/internal/store"
)

func newRollCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll <symbol>",
		Short: "Propose rolls for expiring short calls",
		Long: `Propose roll candidates for short calls approaching expiry,
ranked by credit per day of extra duration. With --execute the best
candidate is worked as a diagonal order until filled or exhausted.`,
		Example: `  schwab-trader roll QQQ
  schwab-trader roll QQQ --execute`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			execute, _ := cmd.Flags().GetBool("execute")

			snapshot, err := app.Feed.GetSnapshot(ctx, symbol)
			if err != nil {
				return fmt.Errorf("fetching chain for %s: %w", symbol, err)
			}
			positions, err := app.Feed.GetPositions(ctx, app.Config.Trading.AccountID)
			if err != nil {
				return fmt.Errorf("fetching positions: %w", err)
			}

			marketOpen := app.Feed.IsMarketOpen(ctx, app.Config.Debug.MarketOpen)
			selector := roll.NewSelector(app.Config, app.Logger)
			candidates := selector.Propose(snapshot, positions, marketOpen)

			renderRolls(cmd, candidates)
			if len(candidates) == 0 || !execute {
				return nil
			}

			if !marketOpen {
				return fmt.Errorf("cannot execute: market is closed")
			}
			if !app.Config.Debug.CanSendOrders {
				app.Logger.Info().Msg("Order sending disabled, dry run only")
				return nil
			}
			return app.executeRoll(ctx, symbol, candidates[0])
		},
	}

	cmd.Flags().Bool("execute", false, "work the best candidate as an order")
	return cmd
}

// executeRoll works the best candidate to a terminal state and keeps
// the tracked-contract row and order audit in sync with the outcome.
func (app *App) executeRoll(ctx context.Context, symbol string, c models.RollCandidate) error {
	asset := app.Config.Asset(symbol)
	contracts := asset.Contracts
	if contracts <= 0 {
		contracts = 1
	}

	order := exec.BuildRollOrder(c, contracts, app.Config.Execution.MaxConcession, time.Now())
	controller := exec.NewController(app.Config.Execution, app.Transport, app.Logger, app.Sink)
	runErr := controller.Run(ctx, order)

	if app.Store != nil {
		if err := app.Store.RecordOrder(ctx, orderRecord(order)); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to record order audit row")
		}
		if order.State == models.OrderFilled {
			err := app.Store.ReplaceTracked(ctx, store.TrackedContract{
				Underlying: symbol,
				Symbol:     c.Target.Symbol,
				Strike:     c.Target.Strike,
				Right:      c.Target.Right,
				Expiration: c.Target.Expiration,
				Contracts:  contracts,
				Premium:    c.Target.Bid,
				OpenedAt:   time.Now(),
			})
			if err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to update tracked contract")
			}
		}
	}
	return runErr
}

func orderRecord(o *models.Order) store.OrderRecord {
	return store.OrderRecord{
		ClientID:   o.ClientID,
		BrokerID:   o.BrokerID,
		Underlying: o.Underlying,
		Strategy:   o.Strategy,
		State:      o.State,
		LimitPrice: o.LimitPrice,
		FilledQty:  o.FilledQuantity(),
		Attempts:   o.Attempts,
		Reason:     o.Reason,
		CreatedAt:  o.CreatedAt,
		ClosedAt:   time.Now(),
	}
}

func renderRolls(cmd *cobra.Command, candidates []models.RollCandidate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%d roll candidates\n", len(candidates))
	if len(candidates) == 0 {
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"From", "To", "Strike", "Days Out", "Net Credit", "Per Day", "Urgent"})

	for _, c := range candidates {
		urgent := ""
		if c.Urgent {
			urgent = "YES"
		}
		table.Append([]string{
			c.Source.Expiration.Format("2006-01-02"),
			c.Target.Expiration.Format("2006-01-02"),
			fmt.Sprintf("%.0f", c.Target.Strike),
			fmt.Sprintf("%d", c.DaysOut),
			fmt.Sprintf("%.2f", c.NetCredit),
			fmt.Sprintf("%.3f", c.Score),
			urgent,
		})
	}
	table.Render()
}
