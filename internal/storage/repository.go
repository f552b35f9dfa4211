// Package storage keeps the ledger in SQLite and records a revision for every
// write so it can be mirrored elsewhere.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"duo/internal/core"

	_ "modernc.org/sqlite"
)

// Revision is one recorded write to the ledger.
type Revision struct {
	ID        int64
	Op        string
	RowCount  int
	CreatedAt time.Time
	SyncError string
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer; SQLite would otherwise answer SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns every row in entry order.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, kind, description, amount_cents, settled, refunded_cents, live_id
		FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			date    string
			kind    string
			settled bool
		)
		if err := rows.Scan(&tx.ID, &date, &kind, &tx.Description, &tx.Amount.Cents, &settled, &tx.Refunded.Cents, &tx.LiveID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		tx.Date = core.DateOf(t)
		tx.Kind = core.Kind(kind)
		tx.Settled = settled
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Save replaces every row in one transaction and returns the new revision.
func (r *SQLiteRepository) Save(ctx context.Context, txs []core.Transaction) (int64, error) {
	var rev int64
	err := r.inTx(ctx, func(q *sql.Tx) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		for i, tx := range txs {
			if err := insert(ctx, q, int64(i+1), tx); err != nil {
				return err
			}
		}
		var err error
		rev, err = recordRevision(ctx, q, "save", len(txs))
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Ledger saved to SQLite", "rows", len(txs), "revision", rev)
	return rev, nil
}

// Append adds one row at the end and returns its position and the new revision.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (position, revision int64, err error) {
	err = r.inTx(ctx, func(q *sql.Tx) error {
		if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM transactions`).Scan(&position); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		if err := insert(ctx, q, position, tx); err != nil {
			return err
		}
		var count int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		revision, err = recordRevision(ctx, q, "append", count)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"position", position,
		"kind", tx.Kind,
		"amount_cents", tx.Amount.Cents,
		"revision", revision)
	return position, revision, nil
}

// LatestRevision returns the most recent revision, or a zero Revision when
// nothing was ever written.
func (r *SQLiteRepository) LatestRevision(ctx context.Context) (Revision, error) {
	revs, err := r.revisions(ctx, `ORDER BY id DESC LIMIT 1`)
	if err != nil || len(revs) == 0 {
		return Revision{}, err
	}
	return revs[0], nil
}

// PendingRevisions lists revisions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingRevisions(ctx context.Context, limit int) ([]Revision, error) {
	return r.revisions(ctx, `WHERE synced_at IS NULL ORDER BY id LIMIT ?`, limit)
}

// MarkSynced marks every revision up to and including id as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_revisions SET synced_at = CURRENT_TIMESTAMP, sync_error = NULL
		WHERE id <= ? AND synced_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark revision synced: %w", err)
	}
	slog.InfoContext(ctx, "Ledger revision marked as synced", "revision", id)
	return nil
}

// MarkSyncError records why mirroring a revision failed. It stays pending.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64, cause error) error {
	_, err := r.db.ExecContext(ctx, `UPDATE ledger_revisions SET sync_error = ? WHERE id = ?`, cause.Error(), id)
	if err != nil {
		return fmt.Errorf("mark revision sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger revision marked with sync error", "revision", id, "error", cause)
	return nil
}

func (r *SQLiteRepository) revisions(ctx context.Context, tail string, args ...any) ([]Revision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, op, row_count, CAST(strftime('%s', created_at) AS INTEGER), COALESCE(sync_error, '')
		FROM ledger_revisions `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var rev Revision
		var created int64
		if err := rows.Scan(&rev.ID, &rev.Op, &rev.RowCount, &created, &rev.SyncError); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		rev.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, rev)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	q, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(q); err != nil {
		if rbErr := q.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := q.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insert(ctx context.Context, q *sql.Tx, position int64, tx core.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (position, id, date, kind, description, amount_cents, settled, refunded_cents, live_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position, tx.ID, tx.Date.String(), string(tx.Kind), tx.Description,
		tx.Amount.Cents, tx.Settled, tx.Refunded.Cents, tx.LiveID)
	if err != nil {
		return fmt.Errorf("insert transaction at %d: %w", position, err)
	}
	return nil
}

func recordRevision(ctx context.Context, q *sql.Tx, op string, rows int) (int64, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO ledger_revisions (op, row_count) VALUES (?, ?)`, op, rows)
	if err != nil {
		return 0, fmt.Errorf("record revision: %w", err)
	}
	return res.LastInsertId()
}
