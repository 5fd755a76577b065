// Package broker provides brokerage integration interfaces and implementations.
package broker

import (
	"context"

	"schwab-trader/internal/models"
)

// Feed defines the market data and account view operations the engine
// consumes. Implementations must fail with ErrFeedUnavailable rather
// than return stale data silently.
type Feed interface {
	// GetSnapshot fetches the option chain and underlying quote for a
	// symbol as an immutable snapshot.
	GetSnapshot(ctx context.Context, underlying string) (*models.Snapshot, error)

	// GetPositions fetches the current positions for an account.
	GetPositions(ctx context.Context, accountID string) ([]models.Position, error)

	// IsMarketOpen reports whether the market is open. debugOverride
	// forces true for testing outside market hours.
	IsMarketOpen(ctx context.Context, debugOverride bool) bool
}

// LegFill reports the filled quantity for a single leg.
type LegFill struct {
	Symbol    string
	FilledQty int
}

// OrderStatus is the transport's view of a working order. The transport
// result is authoritative over any locally tracked state.
type OrderStatus struct {
	State    models.OrderState
	LegFills []LegFill
	Price    float64
	Reason   string
}

// OrderTransport defines the brokerage order operations used by the
// execution controller.
type OrderTransport interface {
	// Submit places the order and returns the brokerage order id, or
	// ErrSubmissionRejected for a terminal brokerage rejection.
	Submit(ctx context.Context, order *models.Order) (string, error)

	// PollStatus fetches the current state and per-leg fills.
	PollStatus(ctx context.Context, orderID string) (OrderStatus, error)

	// Cancel requests cancellation; ErrAlreadyTerminal when the order
	// reached a terminal state first.
	Cancel(ctx context.Context, orderID string) error

	// Replace performs a brokerage-style cancel-replace at a new limit
	// price and may return a new order id.
	Replace(ctx context.Context, orderID string, newLimit float64) (string, error)
}
