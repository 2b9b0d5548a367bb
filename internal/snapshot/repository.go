package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/ranking"
)

// ErrNotFound indicates that the requested run was not found.
var ErrNotFound = errors.New("snapshot run not found")

// Run is a stored reconciliation run.
type Run struct {
	ID           int64           `json:"id"`
	Label        string          `json:"label"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	Accounts     int             `json:"accounts"`
	Checkpoints  json.RawMessage `json:"checkpoints"`
	Conservation json.RawMessage `json:"conservation"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for runs.
type Repository interface {
	Save(ctx context.Context, run Run, entries []ranking.Entry) (int64, error)
	GetLatest(ctx context.Context, label string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
	Entries(ctx context.Context, runID int64) ([]ranking.Entry, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL run repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Save stores the run and its ranking entries in one transaction.
func (r *PgRepository) Save(ctx context.Context, run Run, entries []ranking.Entry) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO snapshot_runs (label, grand_total, accounts, checkpoints, conservation)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb)
		 RETURNING id`,
		run.Label, toNumeric(run.GrandTotal), run.Accounts, run.Checkpoints, run.Conservation).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{id, e.Rank, e.Address, e.AddressTag, toNumeric(e.Total)}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ranking_entries"},
		[]string{"run_id", "rank", "address", "address_tag", "total"},
		pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("copying ranking entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

func (r *PgRepository) GetLatest(ctx context.Context, label string) (*Run, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, label, grand_total, accounts, checkpoints, conservation, created_at
		 FROM snapshot_runs
		 WHERE label = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, label)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return run, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, label, grand_total, accounts, checkpoints, conservation, created_at
		 FROM snapshot_runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func (r *PgRepository) Entries(ctx context.Context, runID int64) ([]ranking.Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rank, address, address_tag, total
		 FROM ranking_entries
		 WHERE run_id = $1
		 ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing ranking entries: %w", err)
	}
	defer rows.Close()

	var entries []ranking.Entry
	for rows.Next() {
		var e ranking.Entry
		var total pgtype.Numeric
		if err := rows.Scan(&e.Rank, &e.Address, &e.AddressTag, &total); err != nil {
			return nil, fmt.Errorf("scanning ranking entry: %w", err)
		}
		e.Total = fromNumeric(total)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ranking entries: %w", err)
	}
	return entries, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var total pgtype.Numeric
	if err := row.Scan(&run.ID, &run.Label, &total, &run.Accounts, &run.Checkpoints, &run.Conservation, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.GrandTotal = fromNumeric(total)
	return &run, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
