package http

import (
	"context"
	"net/http"
	"time"

	"duo/internal/core"
	"duo/internal/ledger"
	"duo/internal/log"
	"duo/internal/middleware/ratelimit"
	"duo/internal/middleware/security"
	"duo/internal/middleware/trace"
	"duo/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

// LedgerService is what the handlers need from services.LedgerService.
type LedgerService interface {
	AddTransaction(ctx context.Context, in services.NewTransaction) (core.Transaction, string, error)
	BulkReplace(ctx context.Context, txs []core.Transaction) (ledger.Ledger, error)
	SettleRefund(ctx context.Context, req ledger.RefundRequest) (ledger.Ledger, error)
	Ledger(ctx context.Context, year int) (ledger.Ledger, error)
	Summary(ctx context.Context, year int) (ledger.Summary, error)
	Progression(ctx context.Context, split decimal.Decimal) ([]ledger.Point, error)
	Sessions(ctx context.Context, year int) ([]ledger.Session, error)
	Years(ctx context.Context) ([]int, error)
	NewLiveID() string
	Engine() *ledger.Engine
	Ready(ctx context.Context) error
}

var _ LedgerService = (*services.LedgerService)(nil)

// Options tune the server; zero values use defaults.
type Options struct {
	WritesPerMinute int
	RequestTimeout  time.Duration
}

type Server struct {
	http.Server
	svc      LedgerService
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	timeout  time.Duration
}

func NewServer(addr string, svc LedgerService, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		timeout:  opts.RequestTimeout,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(log.Middleware(logger.WithComponent(log.ComponentHTTP)))
	r.Use(s.tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.GetRequestID))
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(detector.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/summary", s.handleSummary)
		r.Get("/progression", s.handleProgression)
		r.Get("/sessions", s.handleSessions)
		r.Get("/years", s.handleYears)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit))
			r.Post("/transactions", s.handleAddTransaction)
			r.Put("/transactions", s.handleBulkReplace)
			r.Post("/refunds", s.handleSettleRefund)
			r.Post("/lives", s.handleNewLive)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse(ErrorJSON{Error: "not found", Type: "not_found"}).Status(http.StatusNotFound).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse(ErrorJSON{Error: "method not allowed", Type: "method_not_allowed"}).Status(http.StatusMethodNotAllowed).Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	NewJSONResponse(ErrorJSON{Error: "rate limit exceeded", Type: "rate_limited"}).
		Status(http.StatusTooManyRequests).
		Write(w)
}
