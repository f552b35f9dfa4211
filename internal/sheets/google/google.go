// Package google stores the ledger in a Google Sheets tab, one transaction
// per row below a header, using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"duo/internal/cache"
	"duo/internal/core"
	ports "duo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName = "Ledger"
	DefaultCacheTTL  = time.Second

	// Nine columns: Date through ID.
	columns = "A:I"
)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	// CacheTTL bounds how stale a read can be. Writes always invalidate.
	CacheTTL time.Duration
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	reads         *cache.Loader[[][]string]
	snapshots     *cache.LRUCache[[][]string]
}

var _ ports.Store = (*Client)(nil)

// New creates a client. Without extra options it authenticates with the
// configured service account; tests pass endpoint options instead.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if len(opts) == 0 {
		creds, err := serviceAccountCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	snapshots := cache.NewLRUCache[[][]string](1, cfg.CacheTTL)
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.SheetName,
		reads:         cache.NewLoader[[][]string](snapshots),
		snapshots:     snapshots,
	}, nil
}

// Snapshots exposes the read cache so it can be registered for cleanup.
func (c *Client) Snapshots() cache.Cleaner { return c.snapshots }

// serviceAccountCredentials returns the service account key, inline JSON first.
func serviceAccountCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) rng() string {
	return fmt.Sprintf("%s!%s", c.sheet, columns)
}

// Load reads the whole ledger tab.
func (c *Client) Load(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.values(ctx)
	if err != nil {
		return nil, err
	}
	return ports.DecodeRows(values)
}

func (c *Client) values(ctx context.Context) ([][]string, error) {
	values, err := c.reads.Get(ctx, c.rng(), func(ctx context.Context) ([][]string, error) {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng()).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", c.rng(), err)
		}
		return toStrings(resp.Values), nil
	})
	if err != nil {
		return nil, core.Persistence("load", err)
	}
	return values, nil
}

// Save overwrites the tab from A1 in a single update. Rows left over from a
// longer ledger are blanked in the same call, so a failed save leaves the
// previous contents in place.
func (c *Client) Save(ctx context.Context, txs []core.Transaction) error {
	defer c.reads.Invalidate(c.rng())

	current, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng()).Context(ctx).Do()
	if err != nil {
		return core.Persistence("save", fmt.Errorf("read %s: %w", c.rng(), err))
	}
	rows := ports.EncodeRows(txs)
	for len(rows) < len(current.Values) {
		rows = append(rows, make([]string, len(ports.Header)))
	}

	vr := &gsheet.ValueRange{Values: toValues(rows)}
	start := fmt.Sprintf("%s!A1", c.sheet)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return core.Persistence("save", fmt.Errorf("update %s: %w", start, err))
	}
	return nil
}

// Append adds one row after the last used row and returns its A1 range.
// An empty tab gets the header first.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", core.NewValidationError("transaction", err)
	}
	existing, err := c.values(ctx)
	if err != nil {
		return "", err
	}
	defer c.reads.Invalidate(c.rng())

	rows := [][]string{ports.EncodeRow(tx)}
	if len(existing) == 0 {
		rows = ports.EncodeRows([]core.Transaction{tx})
	}
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", core.Persistence("append", fmt.Errorf("append to %s: %w", c.sheet, err))
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return fmt.Sprintf("%s!A%d", c.sheet, len(existing)+len(rows)), nil
}

func toStrings(in [][]interface{}) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
