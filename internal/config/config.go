package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"duo/internal/ledger"

	"github.com/shopspring/decimal"
)

// Backends accepted in DATA_BACKEND.
var Backends = []string{"memory", "csv", "xlsx", "sheets", "sqlite"}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	DataDir     string

	// File backends
	CSVPath   string
	XLSXPath  string
	XLSXSheet string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string
	SheetsCacheTTL            time.Duration

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Ledger policies
	TaxRate          string
	SplitPolicy      string
	SettlementPolicy string
	PersonSplit      string

	PersistenceTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     dataDir,

		CSVPath:   getEnv("CSV_PATH", filepath.Join(dataDir, "ledger.csv")),
		XLSXPath:  getEnv("XLSX_PATH", filepath.Join(dataDir, "ledger.xlsx")),
		XLSXSheet: getEnv("XLSX_SHEET", "Ledger"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", filepath.Join(dataDir, "duo.db")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "duo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_ledger"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		SheetsCacheTTL:            getEnvDuration("SHEETS_CACHE_TTL", time.Second),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		TaxRate:          getEnv("TAX_RATE", ledger.DefaultTaxRate.String()),
		SplitPolicy:      getEnv("SPLIT_POLICY", string(ledger.GrossSplit)),
		SettlementPolicy: getEnv("SETTLEMENT_POLICY", string(ledger.FullReset)),
		PersonSplit:      getEnv("PERSON_SPLIT", ledger.DefaultPersonSplit.String()),

		PersistenceTimeout: getEnvDuration("PERSISTENCE_TIMEOUT", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Ledger parses the policy settings into an engine configuration.
func (c *Config) Ledger() (ledger.Config, error) {
	var errs []error
	out := ledger.DefaultConfig()

	split, err := ledger.ParseSplitPolicy(c.SplitPolicy)
	if err != nil {
		errs = append(errs, err)
	}
	out.Split = split

	settlement, err := ledger.ParseSettlementPolicy(c.SettlementPolicy)
	if err != nil {
		errs = append(errs, err)
	}
	out.Settlement = settlement

	if out.TaxRate, err = decimal.NewFromString(strings.TrimSpace(c.TaxRate)); err != nil {
		errs = append(errs, fmt.Errorf("invalid tax rate %q", c.TaxRate))
	}
	if out.PersonSplit, err = decimal.NewFromString(strings.TrimSpace(c.PersonSplit)); err != nil {
		errs = append(errs, fmt.Errorf("invalid person split %q", c.PersonSplit))
	}
	if len(errs) > 0 {
		return ledger.Config{}, errors.Join(errs...)
	}
	if err := out.Validate(); err != nil {
		return ledger.Config{}, err
	}
	return out, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "csv":
		if c.CSVPath == "" {
			problems = append(problems, "CSV path cannot be empty when using csv backend")
		}
	case "xlsx":
		if c.XLSXPath == "" {
			problems = append(problems, "XLSX path cannot be empty when using xlsx backend")
		} else if !strings.EqualFold(filepath.Ext(c.XLSXPath), ".xlsx") {
			problems = append(problems, fmt.Sprintf("XLSX path '%s' must end in .xlsx", c.XLSXPath))
		}
	case "sqlite":
		problems = append(problems, c.validateSQLite()...)
	case "sheets":
		problems = append(problems, c.validateSheets()...)
	}

	problems = append(problems, c.validateAMQP()...)

	if c.SheetsCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid sheets cache TTL %v: must not be negative", c.SheetsCacheTTL))
	}
	if c.PersistenceTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid persistence timeout %v: must be positive", c.PersistenceTimeout))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}
	if _, err := c.Ledger(); err != nil {
		problems = append(problems, strings.Split(err.Error(), "\n")...)
	}

	return joinProblems(problems)
}

// ValidateWorker checks what the sync worker needs: the SQLite ledger, a
// broker to listen on and a spreadsheet to mirror to.
func (c *Config) ValidateWorker() error {
	problems := c.validateSQLite()
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP URL is required for the sync worker")
	}
	problems = append(problems, c.validateAMQP()...)
	problems = append(problems, c.validateSheets()...)

	if c.SyncBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	return joinProblems(problems)
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var problems []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return problems
}

func (c *Config) validateSheets() []string {
	var problems []string
	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		problems = append(problems, "Google Sheet name is required when using sheets backend")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
		problems = append(problems, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return problems
}

func joinProblems(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
