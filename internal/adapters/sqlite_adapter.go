package adapters

import (
	"context"
	"log/slog"
	"strconv"

	"duo/internal/core"
	ports "duo/internal/sheets"
)

// LedgerRepository is the part of storage.SQLiteRepository the adapter needs.
type LedgerRepository interface {
	Load(ctx context.Context) ([]core.Transaction, error)
	Save(ctx context.Context, txs []core.Transaction) (revision int64, err error)
	Append(ctx context.Context, tx core.Transaction) (position, revision int64, err error)
}

// SyncPublisher announces a new ledger revision to the sync worker.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, revision int64, op string) error
}

// SQLiteAdapter makes the SQLite repository a sheets.Store. Every write is
// announced to the publisher when one is configured; a failed announcement is
// logged and left for the worker's pending scan.
type SQLiteAdapter struct {
	repo      LedgerRepository
	publisher SyncPublisher
}

var _ ports.Store = (*SQLiteAdapter)(nil)

// NewSQLiteAdapter wires repo to an optional publisher.
func NewSQLiteAdapter(repo LedgerRepository, publisher SyncPublisher) *SQLiteAdapter {
	return &SQLiteAdapter{repo: repo, publisher: publisher}
}

func (a *SQLiteAdapter) Load(ctx context.Context) ([]core.Transaction, error) {
	txs, err := a.repo.Load(ctx)
	if err != nil {
		return nil, core.Persistence("load", err)
	}
	return txs, nil
}

func (a *SQLiteAdapter) Save(ctx context.Context, txs []core.Transaction) error {
	rev, err := a.repo.Save(ctx, txs)
	if err != nil {
		return core.Persistence("save", err)
	}
	a.announce(ctx, rev, "save")
	return nil
}

func (a *SQLiteAdapter) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", core.NewValidationError("transaction", err)
	}
	pos, rev, err := a.repo.Append(ctx, tx)
	if err != nil {
		return "", core.Persistence("append", err)
	}
	a.announce(ctx, rev, "append")
	return strconv.FormatInt(pos, 10), nil
}

func (a *SQLiteAdapter) announce(ctx context.Context, revision int64, op string) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishLedgerSync(ctx, revision, op); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger sync, worker will pick it up",
			"revision", revision,
			"op", op,
			"error", err)
	}
}
