package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"duo/internal/core"
)

func TestMissingFileLoadsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "ledger.csv"))
	txs, err := s.Load(context.Background())
	if err != nil || len(txs) != 0 {
		t.Fatalf("expected empty ledger, got %v %v", txs, err)
	}
}

func TestSaveAppendLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.csv")
	s := New(path)
	ctx := context.Background()

	sale := core.Transaction{ID: "1", Date: core.NewDate(2025, 2, 1), Kind: core.KindSale, Description: "live, lot 3", Amount: core.Money{Cents: 4200}}
	if err := s.Save(ctx, []core.Transaction{sale}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	buy := core.Transaction{ID: "2", Date: core.NewDate(2025, 2, 2), Kind: core.KindPurchase, Description: "stock", Amount: core.Money{Cents: -1000}}
	ref, err := s.Append(ctx, buy)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "ledger.csv:3" {
		t.Fatalf("unexpected ref %q", ref)
	}

	txs, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(txs) != 2 || txs[0].Description != "live, lot 3" || txs[1].Amount.Cents != -1000 {
		t.Fatalf("unexpected rows %+v", txs)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "ledger.csv"))
	_, err := s.Append(context.Background(), core.Transaction{Kind: core.KindSale})
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadHandwrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	content := strings.Join([]string{
		"Date,Type,Description,Montant,Année,Payé",
		"2025-01-10,Vente (Gain net Whatnot),live,\"100,5\",2025,False",
		"2025-01-11,Achat Stock (Dépense),sacs,-20,2025,",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	txs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(txs) != 2 || txs[0].Amount.Cents != 10050 || txs[1].Kind != core.KindPurchase {
		t.Fatalf("unexpected rows %+v", txs)
	}
}

func TestUnreadableFileIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFile(dir)
	var pe *core.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}
