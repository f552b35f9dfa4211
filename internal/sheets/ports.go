package sheets

import (
	"context"

	"duo/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerReader returns every stored row in entry order.
	LedgerReader interface {
		Load(ctx context.Context) ([]core.Transaction, error)
	}

	// LedgerWriter replaces the whole stored ledger.
	LedgerWriter interface {
		Save(ctx context.Context, txs []core.Transaction) error
	}

	TransactionAppender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	Store interface {
		LedgerReader
		LedgerWriter
		TransactionAppender
	}
)
