package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"duo/internal/log"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestMiddlewareLogsRequestAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentHTTP})
	m := NewMiddleware(func(*http.Request) string { return "198.51.100.1" })

	var seenID string
	h := chimw.RequestID(log.Middleware(logger)(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r)
		w.WriteHeader(http.StatusTeapot)
	}))))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/summary?year=2025", nil))

	out := buf.String()
	if seenID == "" || !strings.Contains(out, "request_id="+seenID) {
		t.Fatalf("request id %q not logged: %s", seenID, out)
	}
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", "client_ip=198.51.100.1", `query="year=2025"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddlewareDefaultsStatusToOK(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})
	h := log.Middleware(logger)(NewMiddleware(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(buf.String(), "status_code=200") {
		t.Fatalf("expected status 200 logged: %s", buf.String())
	}
}
