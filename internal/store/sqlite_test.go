package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schwab-trader/internal/errors"
	"schwab-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplaceTrackedDisplacesOnRoll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceTracked(ctx, TrackedContract{
		Underlying: "XYZ",
		Symbol:     "XYZ C100 NEAR",
		Strike:     100,
		Right:      models.Call,
		Expiration: exp,
		Contracts:  2,
		Premium:    2.10,
		OpenedAt:   exp.AddDate(0, -1, 0),
	}))

	// The roll replaces the row rather than accumulating history.
	rolled := exp.AddDate(0, 1, 0)
	require.NoError(t, s.ReplaceTracked(ctx, TrackedContract{
		Underlying: "XYZ",
		Symbol:     "XYZ C105 FAR",
		Strike:     105,
		Right:      models.Call,
		Expiration: rolled,
		Contracts:  2,
		Premium:    1.20,
		OpenedAt:   exp,
	}))

	tc, err := s.GetTracked(ctx, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ C105 FAR", tc.Symbol)
	assert.InDelta(t, 105.0, tc.Strike, 1e-9)
	assert.Equal(t, rolled.Unix(), tc.Expiration.Unix())

	all, err := s.ListTracked(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetTrackedMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTracked(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSymbolNotFound))
}

func TestRemoveTracked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTracked(ctx, TrackedContract{
		Underlying: "XYZ",
		Symbol:     "XYZ C100",
		Strike:     100,
		Right:      models.Call,
		Expiration: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		Contracts:  1,
		OpenedAt:   time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.RemoveTracked(ctx, "XYZ"))

	_, err := s.GetTracked(ctx, "XYZ")
	assert.True(t, errors.Is(err, errors.ErrSymbolNotFound))
}

func TestOrderAuditNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordOrder(ctx, OrderRecord{
			ClientID:   string(rune('A' + i)),
			Underlying: "XYZ",
			Strategy:   models.StrategyRoll,
			State:      models.OrderFilled,
			LimitPrice: 0.80,
			FilledQty:  2,
			Attempts:   i,
			CreatedAt:  base,
			ClosedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recs, err := s.ListOrders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "C", recs[0].ClientID)
	assert.Equal(t, "B", recs[1].ClientID)
	assert.Equal(t, models.OrderFilled, recs[0].State)
}
