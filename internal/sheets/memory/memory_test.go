package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"duo/internal/core"
)

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	ref, err := s.Append(ctx, core.Transaction{
		Date:        core.NewDate(2025, 1, 1),
		Kind:        core.KindSale,
		Description: "t",
		Amount:      core.Money{Cents: 123},
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	txs, _ := s.Load(ctx)
	txs[0].Description = "mutated"
	again, _ := s.Load(ctx)
	if again[0].Description != "t" {
		t.Fatalf("Load must return a copy")
	}

	if _, err := s.Append(ctx, core.Transaction{Kind: core.KindSale}); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if txs, _ := s.Load(ctx); len(txs) != 0 {
		t.Fatalf("Save should replace everything, got %v", txs)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	if txs, _ := s.Load(context.Background()); len(txs) != 0 {
		t.Fatalf("expected empty store when seed missing")
	}

	seed := "Date,Type,Description,Montant,Payé\n2025-01-10,Vente,live,50,TRUE\n\n"
	if err := os.WriteFile(filepath.Join(dir, "ledger.csv"), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	txs, _ := s.Load(context.Background())
	if len(txs) != 1 || !txs[0].Settled || txs[0].Amount.Cents != 5000 {
		t.Fatalf("unexpected seed rows: %+v", txs)
	}
}
