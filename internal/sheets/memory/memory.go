package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"duo/internal/core"
	ports "duo/internal/sheets"
	"duo/internal/sheets/csvfile"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New(txs []core.Transaction) *Store {
	return &Store{items: slices.Clone(txs)}
}

// NewFromFiles seeds the store from base/ledger.csv when present. A missing
// or unreadable seed leaves the store empty.
func NewFromFiles(base string) *Store {
	path := filepath.Join(base, "ledger.csv")
	txs, err := csvfile.ReadFile(path)
	if err != nil {
		slog.Warn("Ignoring ledger seed", "path", path, "error", err)
		return New(nil)
	}
	return New(txs)
}

func (s *Store) Load(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *Store) Save(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(txs)
	return nil
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", core.NewValidationError("transaction", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}
