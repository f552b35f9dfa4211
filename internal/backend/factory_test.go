package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"duo/internal/config"
	"duo/internal/core"
)

func quietFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		config Config
	}{
		{"memory", Config{Type: MemoryBackend, DataDirectory: dir}},
		{"csv", Config{Type: CSVBackend, CSVPath: filepath.Join(dir, "ledger.csv")}},
		{"xlsx", Config{Type: XLSXBackend, XLSXPath: filepath.Join(dir, "ledger.xlsx"), XLSXSheet: "Ledger"}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "duo.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := quietFactory().CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer func() {
				if err := result.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}()

			tx := core.Transaction{ID: "t1", Date: core.NewDate(2025, 4, 1), Kind: core.KindSale, Description: "live", Amount: core.Money{Cents: 4200}}
			ref, err := result.Backend.Append(ctx, tx)
			if err != nil || ref == "" {
				t.Fatalf("Append() = %q, %v", ref, err)
			}
			rows, err := result.Backend.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(rows) != 1 || rows[0].ID != "t1" || rows[0].Amount.Cents != 4200 {
				t.Fatalf("Load() = %+v", rows)
			}
		})
	}
}

func TestCreateBackendErrors(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errorString string
	}{
		{"unknown type", Config{Type: "postgres"}, "invalid backend type: postgres"},
		{"csv without path", Config{Type: CSVBackend}, "CSV path is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Google Spreadsheet ID is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietFactory().CreateBackend(context.Background(), tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.errorString) {
				t.Fatalf("CreateBackend() error = %v, want %q", err, tt.errorString)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "mysql"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sheets",
		DataDir:             "/srv/duo",
		GoogleSpreadsheetID: "abc",
		GoogleSheetName:     "Ledger",
		SheetsCacheTTL:      2 * time.Second,
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSpreadsheetID != "abc" || cfg.SheetsCacheTTL != 2*time.Second || cfg.DataDirectory != "/srv/duo" {
		t.Fatalf("FromAppConfig() = %+v", cfg)
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != strings.Join(config.Backends, ",") {
		t.Fatalf("backend types %q drift from config %q", got, strings.Join(config.Backends, ","))
	}
}
