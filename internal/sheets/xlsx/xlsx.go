// Package xlsx keeps the ledger in one sheet of an Excel workbook, in the
// same column layout as the shared Google sheet.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"duo/internal/core"
	ports "duo/internal/sheets"

	"github.com/xuri/excelize/v2"
)

const DefaultSheet = "Ledger"

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	path  string
	sheet string
}

func New(path, sheet string) *Store {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheet
	}
	return &Store{path: path, sheet: sheet}
}

func (s *Store) Load(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save writes a fresh workbook next to the target and renames it into place.
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
	txs, err := s.read()
	if err != nil {
		return "", err
	}
	txs = append(txs, tx)
	if err := s.write(txs); err != nil {
		return "", err
	}
	cell, _ := excelize.CoordinatesToCellName(1, len(txs)+1)
	return fmt.Sprintf("%s!%s", s.sheet, cell), nil
}

func (s *Store) read() ([]core.Transaction, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Persistence("load", fmt.Errorf("open %s: %w", s.path, err))
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(s.sheet)
	if err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, core.Persistence("load", fmt.Errorf("read sheet %s: %w", s.sheet, err))
	}
	return ports.DecodeRows(rows)
}

func (s *Store) write(txs []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", s.sheet); err != nil {
		return core.Persistence("save", err)
	}
	for i, row := range ports.EncodeRows(txs) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return core.Persistence("save", err)
		}
		values := cells(row)
		if i > 0 {
			values = typedCells(txs[i-1], row)
		}
		if err := f.SetSheetRow(s.sheet, cell, &values); err != nil {
			return core.Persistence("save", err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.Persistence("save", err)
	}
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(s.path), ".xlsx")+".*.xlsx")
	if err != nil {
		return core.Persistence("save", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	if err := f.SaveAs(tmpName); err != nil {
		return core.Persistence("save", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return core.Persistence("save", err)
	}
	return nil
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// typedCells stores amounts, the year and the settled flag as native cell
// types so the workbook stays usable in a spreadsheet.
func typedCells(tx core.Transaction, row []string) []any {
	out := cells(row)
	out[3] = tx.Amount.Euros()
	out[4] = tx.Settled
	out[5] = tx.Year()
	if tx.Refunded.Cents != 0 {
		out[7] = tx.Refunded.Euros()
	}
	return out
}
