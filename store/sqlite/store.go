// Package sqlite persists chain attempts so simulated and submitted runs can be reviewed later.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chain_runs (
    id            TEXT PRIMARY KEY,
    created_at    TEXT     NOT NULL,
    mode          TEXT     NOT NULL,
    origin        TEXT     NOT NULL,
    amount_in     INTEGER  NOT NULL DEFAULT 0,
    legs          INTEGER  NOT NULL DEFAULT 0,
    start_balance INTEGER  NOT NULL DEFAULT 0,
    final_balance INTEGER  NOT NULL DEFAULT 0,
    status        TEXT     NOT NULL,
    error         TEXT     NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_chain_runs_created ON chain_runs(created_at DESC);
`

// Run modes.
const (
	ModeSimulate = "simulate"
	ModeSubmit   = "submit"
)

// Run statuses.
const (
	StatusProfit    = "profit"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// timeLayout is fixed width so created_at orders lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrInvalidRun = errors.New("invalid chain run")

// Run is one attempted chain. Balances are token base units; amounts above
// math.MaxInt64 are not representable in the store.
type Run struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Mode         string
	Origin       string
	AmountIn     uint64
	Legs         int
	StartBalance uint64
	FinalBalance uint64
	Status       string
	Error        string
}

// Store is the chain history backed by SQLite (pure Go, no cgo).
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open %q: %w", path, err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts run, assigning an ID and timestamp when they are unset.
// The stored run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	if run.Mode == "" || run.Origin == "" || run.Status == "" {
		return Run{}, fmt.Errorf("%w: mode, origin and status are required", ErrInvalidRun)
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	start, err := toInt(run.StartBalance)
	if err != nil {
		return Run{}, err
	}
	final, err := toInt(run.FinalBalance)
	if err != nil {
		return Run{}, err
	}
	amount, err := toInt(run.AmountIn)
	if err != nil {
		return Run{}, err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chain_runs (id, created_at, mode, origin, amount_in, legs, start_balance, final_balance, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.CreatedAt.UTC().Format(timeLayout), run.Mode, run.Origin, amount, run.Legs, start, final, run.Status, run.Error,
	); err != nil {
		return Run{}, fmt.Errorf("sqlite.SaveRun: insert: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, mode, origin, amount_in, legs, start_balance, final_balance, status, error
		 FROM chain_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Recent: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var id, createdAt string
		var amount, start, final int64
		if err := rows.Scan(&id, &createdAt, &run.Mode, &run.Origin, &amount, &run.Legs, &start, &final, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("sqlite.Recent: scan: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("sqlite.Recent: run id %q: %w", id, err)
		}
		if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite.Recent: run %s created_at: %w", id, err)
		}
		run.AmountIn, run.StartBalance, run.FinalBalance = uint64(amount), uint64(start), uint64(final)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.Recent: rows: %w", err)
	}
	return runs, nil
}

func toInt(v uint64) (int64, error) {
	if v > 1<<63-1 {
		return 0, fmt.Errorf("%w: amount %d exceeds storable range", ErrInvalidRun, v)
	}
	return int64(v), nil
}
