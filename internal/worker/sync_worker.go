// Package worker mirrors the SQLite ledger to Google Sheets.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"duo/internal/amqp"
	"duo/internal/core"
	"duo/internal/sheets"
	"duo/internal/storage"
)

// RevisionSource is the SQLite side of the mirror.
type RevisionSource interface {
	Load(ctx context.Context) ([]core.Transaction, error)
	LatestRevision(ctx context.Context) (storage.Revision, error)
	PendingRevisions(ctx context.Context, limit int) ([]storage.Revision, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64, cause error) error
}

// SyncWorker copies the whole ledger to the mirror whenever a revision is
// pending. Mirroring is idempotent, so one write covers every older revision.
type SyncWorker struct {
	source    RevisionSource
	mirror    sheets.LedgerWriter
	batchSize int
}

func NewSyncWorker(source RevisionSource, mirror sheets.LedgerWriter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{source: source, mirror: mirror, batchSize: batchSize}
}

// HandleSyncMessage processes one AMQP announcement. An error requeues it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"revision", msg.Revision,
		"op", msg.Op)
	_, err := w.syncLatest(ctx)
	return err
}

// ProcessPending mirrors the ledger if any revision is still pending. It is
// the fallback for lost messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, err := w.syncLatest(ctx)
	return err
}

// StartupSyncCheck catches up on revisions written while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.source.PendingRevisions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending revisions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending revisions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Found pending revisions on startup, processing...", "count", len(pending))

	synced, err := w.syncLatest(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "revision", synced)
	return nil
}

// Run polls for pending revisions every interval until ctx ends.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

// syncLatest returns the revision it mirrored, or 0 when already in sync.
func (w *SyncWorker) syncLatest(ctx context.Context) (int64, error) {
	pending, err := w.source.PendingRevisions(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("get pending revisions: %w", err)
	}
	if len(pending) == 0 {
		slog.DebugContext(ctx, "Mirror already in sync")
		return 0, nil
	}

	latest, err := w.source.LatestRevision(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest revision: %w", err)
	}
	txs, err := w.source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	if err := w.mirror.Save(ctx, txs); err != nil {
		if markErr := w.source.MarkSyncError(ctx, latest.ID, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "revision", latest.ID, "error", markErr)
		}
		return 0, fmt.Errorf("save ledger to mirror: %w", err)
	}

	if err := w.source.MarkSynced(ctx, latest.ID); err != nil {
		// the mirror is correct; the next pass repeats an idempotent save
		slog.ErrorContext(ctx, "Failed to mark as synced", "revision", latest.ID, "error", err)
	}
	slog.InfoContext(ctx, "Successfully mirrored ledger",
		"revision", latest.ID,
		"rows", len(txs))
	return latest.ID, nil
}
