package http

import (
	"context"
	"net/http"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse(map[string]string{"status": "ok"}).Write(w)
}

// handleReady loads the ledger so a broken store reports unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	if err := s.svc.Ready(ctx); err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	NewJSONResponse(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	year, err := ParseYear(r.URL.Query())
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	l, err := s.svc.Ledger(ctx, year)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	NewJSONResponse(ledgerJSON(l)).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	in, err := req.ToNewTransaction()
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	tx, ref, err := s.svc.AddTransaction(ctx, in)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	NewJSONResponse(transactionJSON(tx)).
		Status(http.StatusCreated).
		Header("X-Row-Ref", ref).
		Write(w)
}

func (s *Server) handleBulkReplace(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	var rows []LedgerRow
	if err := decodeJSON(r, &rows); err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	txs, err := ToTransactions(rows)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	l, err := s.svc.BulkReplace(ctx, txs)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	NewJSONResponse(ledgerJSON(l)).Write(w)
}

func (s *Server) handleSettleRefund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	var body RefundRequest
	if err := decodeJSON(r, &body); err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	req, err := body.ToRefundRequest()
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	l, err := s.svc.SettleRefund(ctx, req)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	NewJSONResponse(struct {
		Ledger  LedgerJSON  `json:"ledger"`
		Summary SummaryJSON `json:"summary"`
	}{
		Ledger:  ledgerJSON(l),
		Summary: summaryJSON(s.svc.Engine().Summarize(l)),
	}).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	year, err := ParseYear(r.URL.Query())
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	sum, err := s.svc.Summary(ctx, year)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	NewJSONResponse(summaryJSON(sum)).Write(w)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	split, err := ParseSplit(r.URL.Query())
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	points, err := s.svc.Progression(ctx, split)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	out := make([]PointJSON, len(points))
	for i, p := range points {
		out[i] = PointJSON{Date: p.Date.String(), Cumulative: moneyJSON(p.Cumulative)}
	}
	NewJSONResponse(out).Write(w)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	year, err := ParseYear(r.URL.Query())
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	sessions, err := s.svc.Sessions(ctx, year)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	out := make([]SessionJSON, len(sessions))
	for i, ss := range sessions {
		out[i] = SessionJSON{
			LiveID:     ss.LiveID,
			Date:       ss.Date.String(),
			Investment: moneyJSON(ss.Investment),
			SaleAmount: moneyJSON(ss.SaleAmount),
			NetProfit:  moneyJSON(ss.NetProfit),
			Paired:     ss.Paired,
		}
	}
	NewJSONResponse(out).Write(w)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r)
	defer cancel()

	years, err := s.svc.Years(ctx)
	if err != nil {
		ErrorResponse(ctx, err).Write(w)
		return
	}
	if years == nil {
		years = []int{}
	}
	NewJSONResponse(map[string][]int{"years": years}).Write(w)
}

func (s *Server) handleNewLive(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse(map[string]string{"live_id": s.svc.NewLiveID()}).Status(http.StatusCreated).Write(w)
}

func (s *Server) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}
