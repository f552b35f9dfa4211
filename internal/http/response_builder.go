// Package http exposes the ledger service as a JSON API.
//
// This file builds JSON responses: a small fluent builder, the wire shapes
// of ledger values and the mapping from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"duo/internal/core"
	"duo/internal/ledger"
	"duo/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse(body any) *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       body,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// MoneyJSON carries both the exact cents and a display string.
type MoneyJSON struct {
	Cents  int64  `json:"cents"`
	Amount string `json:"amount"`
}

func moneyJSON(m core.Money) MoneyJSON {
	return MoneyJSON{Cents: m.Cents, Amount: m.String()}
}

type TransactionJSON struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Year        int       `json:"year"`
	Kind        core.Kind `json:"kind"`
	Description string    `json:"description"`
	Amount      MoneyJSON `json:"amount"`
	Settled     bool      `json:"settled"`
	Refunded    MoneyJSON `json:"refunded"`
	LiveID      string    `json:"live_id,omitempty"`
}

func transactionJSON(tx core.Transaction) TransactionJSON {
	return TransactionJSON{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Year:        tx.Year(),
		Kind:        tx.Kind,
		Description: tx.Description,
		Amount:      moneyJSON(tx.Amount),
		Settled:     tx.Settled,
		Refunded:    moneyJSON(tx.Refunded),
		LiveID:      tx.LiveID,
	}
}

type LedgerJSON struct {
	Count        int               `json:"count"`
	Transactions []TransactionJSON `json:"transactions"`
}

func ledgerJSON(l ledger.Ledger) LedgerJSON {
	txs := l.Transactions()
	out := LedgerJSON{Count: len(txs), Transactions: make([]TransactionJSON, len(txs))}
	for i, tx := range txs {
		out.Transactions[i] = transactionJSON(tx)
	}
	return out
}

type SummaryJSON struct {
	Count            int       `json:"count"`
	TotalRevenue     MoneyJSON `json:"total_revenue"`
	TotalExpense     MoneyJSON `json:"total_expense"`
	GrossProfit      MoneyJSON `json:"gross_profit"`
	TaxProvision     MoneyJSON `json:"tax_provision"`
	TotalRefunded    MoneyJSON `json:"total_refunded"`
	UnsettledRevenue MoneyJSON `json:"unsettled_revenue"`
	UnsettledExpense MoneyJSON `json:"unsettled_expense"`
	PartnerShareDue  MoneyJSON `json:"partner_share_due"`
	TaxRate          string    `json:"tax_rate"`
	SplitPolicy      string    `json:"split_policy"`
}

func summaryJSON(s ledger.Summary) SummaryJSON {
	return SummaryJSON{
		Count:            s.Count,
		TotalRevenue:     moneyJSON(s.Revenue),
		TotalExpense:     moneyJSON(s.Expense),
		GrossProfit:      moneyJSON(s.GrossProfit),
		TaxProvision:     moneyJSON(s.TaxProvision),
		TotalRefunded:    moneyJSON(s.Refunded),
		UnsettledRevenue: moneyJSON(s.Balance.UnsettledRevenue),
		UnsettledExpense: moneyJSON(s.Balance.UnsettledExpense),
		PartnerShareDue:  moneyJSON(s.Balance.PartnerShareDue),
		TaxRate:          s.TaxRate.String(),
		SplitPolicy:      string(s.Split),
	}
}

type PointJSON struct {
	Date       string    `json:"date"`
	Cumulative MoneyJSON `json:"cumulative"`
}

type SessionJSON struct {
	LiveID     string    `json:"live_id,omitempty"`
	Date       string    `json:"date"`
	Investment MoneyJSON `json:"investment"`
	SaleAmount MoneyJSON `json:"sale_amount"`
	NetProfit  MoneyJSON `json:"net_profit"`
	Paired     bool      `json:"paired"`
}

// ErrorJSON is the body of every error response.
type ErrorJSON struct {
	Error  string           `json:"error"`
	Type   string           `json:"type"`
	Fields []FieldErrorJSON `json:"fields,omitempty"`
}

type FieldErrorJSON struct {
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// errorStatus maps the error taxonomy to a status code and log error type.
func errorStatus(err error) (int, string) {
	var ve *core.ValidationError
	var se *core.SettlementPolicyError
	var pe *core.PersistenceError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case errors.As(err, &se):
		return http.StatusConflict, log.ErrorTypeSettlement
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable, log.ErrorTypePersistence
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, log.ErrorTypeTimeout
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}

// ErrorResponse renders err. Internal errors are logged and hidden.
func ErrorResponse(ctx context.Context, err error) *JSONResponseBuilder {
	status, errType := errorStatus(err)
	body := ErrorJSON{Error: err.Error(), Type: errType}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Error = "validation failed"
		for _, f := range ve.Fields {
			body.Fields = append(body.Fields, FieldErrorJSON{Row: f.Row, Field: f.Field, Value: f.Value, Message: f.Err.Error()})
		}
	}

	logger := log.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err.Error(), log.FieldErrorType, errType)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	} else {
		logger.WarnContext(ctx, "Request rejected", log.FieldError, err.Error(), log.FieldErrorType, errType)
	}

	return NewJSONResponse(body).Status(status)
}
