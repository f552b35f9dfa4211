package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct public peer ignores headers", "203.0.113.7:5000", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.7"},
		{"trusted proxy forwards first hop", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"}, "198.51.100.1"},
		{"trusted proxy falls back to real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"garbage forwarded value", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "nope"}, "192.168.1.1"},
		{"remote without port", "198.51.100.3", nil, "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	scan := httptest.NewRequest(http.MethodGet, "/api/../../etc/passwd", nil)
	if !d.DetectSuspiciousRequest(scan) {
		t.Error("path traversal should be flagged")
	}
	scanner := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	if !d.DetectSuspiciousRequest(scanner) {
		t.Error("scanner user agent should be flagged")
	}
	normal := httptest.NewRequest(http.MethodGet, "/api/summary?year=2025", nil)
	normal.Header.Set("User-Agent", "curl/8.0")
	if d.DetectSuspiciousRequest(normal) {
		t.Error("plain API call should pass")
	}
	if got := d.GetMetrics().SuspiciousRequests; got != 2 {
		t.Errorf("SuspiciousRequests = %d, want 2", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing headers: %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS %q", rr.Header().Get("Strict-Transport-Security"))
	}
}
