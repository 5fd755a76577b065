// Package store provides data persistence implementations.
package store

import (
	"context"
	"time"

	"schwab-trader/internal/models"
)

// TrackedContract is a short option the engine is managing: what was
// sold, for how much, and when. One row per underlying per symbol.
type TrackedContract struct {
	Underlying string
	Symbol     string
	Strike     float64
	Right      models.OptionRight
	Expiration time.Time
	Contracts  int
	Premium    float64
	OpenedAt   time.Time
}

// OrderRecord is one audit row for a terminal order.
type OrderRecord struct {
	ClientID   string
	BrokerID   string
	Underlying string
	Strategy   models.StrategyKind
	State      models.OrderState
	LimitPrice float64
	FilledQty  int
	Attempts   int
	Reason     string
	CreatedAt  time.Time
	ClosedAt   time.Time
}

// DataStore defines persistence for tracked contracts and order audit.
type DataStore interface {
	// ReplaceTracked records a sold contract, displacing any previous
	// row for the same underlying. Used after a fill or a roll.
	ReplaceTracked(ctx context.Context, tc TrackedContract) error

	// GetTracked returns the tracked contract for an underlying.
	GetTracked(ctx context.Context, underlying string) (TrackedContract, error)

	// ListTracked returns all tracked contracts ordered by underlying.
	ListTracked(ctx context.Context) ([]TrackedContract, error)

	// RemoveTracked deletes the tracked contract for an underlying.
	RemoveTracked(ctx context.Context, underlying string) error

	// RecordOrder appends an order audit row.
	RecordOrder(ctx context.Context, rec OrderRecord) error

	// ListOrders returns the most recent audit rows, newest first.
	ListOrders(ctx context.Context, limit int) ([]OrderRecord, error)

	// Close releases the underlying database.
	Close() error
}
