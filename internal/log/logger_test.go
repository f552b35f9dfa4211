package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerStampsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Component: ComponentApp}).WithComponent(ComponentLedger)

	logger.Info("hello", FieldRows, 3)

	line := buf.String()
	if strings.Count(line, `"component"`) != 1 {
		t.Fatalf("component should appear once: %s", line)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldRows] != float64(3) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", l.Component())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: ComponentHTTP})

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not carried: %s", buf.String())
	}
}

func TestStructuredLoggerTransactionFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Component: ComponentLedger}))

	sl.LogTransactionAdded(context.Background(), "id-1", "Sale", 1250, "mem:1")
	sl.LogError(context.Background(), "sync failed", errors.New("boom"), ComponentWorker, OpSync, nil)

	out := buf.String()
	for _, want := range []string{"transaction_id=id-1", "amount_cents=1250", "store_ref=mem:1", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
