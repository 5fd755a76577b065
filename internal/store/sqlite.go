package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"schwab-trader/internal/errors"
	"schwab-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One managed short contract per underlying
	CREATE TABLE IF NOT EXISTS tracked_contracts (
		underlying TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		strike REAL NOT NULL,
		option_right TEXT NOT NULL,
		expiration DATETIME NOT NULL,
		contracts INTEGER NOT NULL,
		premium REAL NOT NULL,
		opened_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Audit trail of every order worked to a terminal state
	CREATE TABLE IF NOT EXISTS order_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL,
		broker_id TEXT,
		underlying TEXT NOT NULL,
		strategy TEXT NOT NULL,
		state TEXT NOT NULL,
		limit_price REAL NOT NULL,
		filled_qty INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		reason TEXT,
		created_at DATETIME NOT NULL,
		closed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_audit_underlying ON order_audit(underlying);
	CREATE INDEX IF NOT EXISTS idx_order_audit_closed ON order_audit(closed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceTracked upserts the tracked contract for an underlying. A roll
// lands here with the new contract and simply displaces the old one.
func (s *SQLiteStore) ReplaceTracked(ctx context.Context, tc TrackedContract) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_contracts (underlying, symbol, strike, option_right, expiration, contracts, premium, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(underlying) DO UPDATE SET
			symbol = excluded.symbol,
			strike = excluded.strike,
			option_right = excluded.option_right,
			expiration = excluded.expiration,
			contracts = excluded.contracts,
			premium = excluded.premium,
			opened_at = excluded.opened_at`,
		tc.Underlying, tc.Symbol, tc.Strike, string(tc.Right), tc.Expiration, tc.Contracts, tc.Premium, tc.OpenedAt)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// GetTracked returns the tracked contract for an underlying.
func (s *SQLiteStore) GetTracked(ctx context.Context, underlying string) (TrackedContract, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT underlying, symbol, strike, option_right, expiration, contracts, premium, opened_at
		FROM tracked_contracts WHERE underlying = ?`, underlying)

	tc, err := scanTracked(row)
	if err == sql.ErrNoRows {
		return TrackedContract{}, errors.Wrapf(errors.ErrSymbolNotFound, "no tracked contract for %s", underlying)
	}
	if err != nil {
		return TrackedContract{}, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return tc, nil
}

// ListTracked returns all tracked contracts ordered by underlying.
func (s *SQLiteStore) ListTracked(ctx context.Context) ([]TrackedContract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT underlying, symbol, strike, option_right, expiration, contracts, premium, opened_at
		FROM tracked_contracts ORDER BY underlying`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var out []TrackedContract
	for rows.Next() {
		tc, err := scanTracked(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// RemoveTracked deletes the tracked contract for an underlying.
func (s *SQLiteStore) RemoveTracked(ctx context.Context, underlying string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracked_contracts WHERE underlying = ?`, underlying)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RecordOrder appends an order audit row.
func (s *SQLiteStore) RecordOrder(ctx context.Context, rec OrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_audit (client_id, broker_id, underlying, strategy, state, limit_price, filled_qty, attempts, reason, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ClientID, rec.BrokerID, rec.Underlying, string(rec.Strategy), string(rec.State),
		rec.LimitPrice, rec.FilledQty, rec.Attempts, rec.Reason, rec.CreatedAt, rec.ClosedAt)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// ListOrders returns the most recent audit rows, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, broker_id, underlying, strategy, state, limit_price, filled_qty, attempts, reason, created_at, closed_at
		FROM order_audit ORDER BY closed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		var strategy, state string
		if err := rows.Scan(&rec.ClientID, &rec.BrokerID, &rec.Underlying, &strategy, &state,
			&rec.LimitPrice, &rec.FilledQty, &rec.Attempts, &rec.Reason, &rec.CreatedAt, &rec.ClosedAt); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		rec.Strategy = models.StrategyKind(strategy)
		rec.State = models.OrderState(state)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTracked(row rowScanner) (TrackedContract, error) {
	var tc TrackedContract
	var right string
	err := row.Scan(&tc.Underlying, &tc.Symbol, &tc.Strike, &right, &tc.Expiration, &tc.Contracts, &tc.Premium, &tc.OpenedAt)
	if err != nil {
		return TrackedContract{}, err
	}
	tc.Right = models.OptionRight(right)
	return tc, nil
}
