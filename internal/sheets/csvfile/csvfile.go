// Package csvfile stores the ledger as a CSV file laid out like the shared
// sheet, header first.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"duo/internal/core"
	ports "duo/internal/sheets"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the file. A missing file is an empty ledger.
func (s *Store) Load(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadFile(s.path)
}

// Save rewrites the whole file through a temporary file and a rename, so
// readers never see a partial write.
func (s *Store) Save(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(txs)
}

func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", core.NewValidationError("transaction", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := ReadFile(s.path)
	if err != nil {
		return "", err
	}
	txs = append(txs, tx)
	if err := s.write(txs); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", filepath.Base(s.path), len(txs)+1), nil
}

func (s *Store) write(txs []core.Transaction) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.Persistence("save", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return core.Persistence("save", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(ports.EncodeRows(txs)); err != nil {
		tmp.Close()
		return core.Persistence("save", err)
	}
	if err := tmp.Close(); err != nil {
		return core.Persistence("save", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return core.Persistence("save", err)
	}
	return nil
}

// ReadFile decodes a ledger CSV. A missing file yields no rows.
func ReadFile(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Persistence("load", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, core.Persistence("load", fmt.Errorf("read %s: %w", path, err))
	}
	return ports.DecodeRows(records)
}
