package backend

import (
	"context"
	"time"

	"duo/internal/cache"
	"duo/internal/sheets"
)

// Backend is the ledger store the service runs against.
type Backend interface {
	sheets.Store
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Caches holds read caches the caller should register for cleanup.
	Caches []cache.Cleaner
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File backends
	CSVPath   string
	XLSXPath  string
	XLSXSheet string

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsCacheTTL           time.Duration

	// Memory backend seed directory
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	CSVBackend    BackendType = "csv"
	XLSXBackend   BackendType = "xlsx"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, CSVBackend, XLSXBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
