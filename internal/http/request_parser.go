// Package http exposes the ledger service as a JSON API.
//
// This file decodes request bodies and query parameters into domain values.
// Amounts may be sent as JSON numbers or strings; strings accept a comma
// decimal separator and a euro sign.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"duo/internal/core"
	"duo/internal/ledger"
	"duo/internal/services"

	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds request bodies; a bulk replace of a few thousand rows fits.
const maxBodyBytes = 4 << 20

// ErrBadRequest marks malformed JSON or query parameters.
var ErrBadRequest = errors.New("bad request")

// Amount is a JSON number or string holding a euro amount.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or a string")
	}
	*a = Amount(n.String())
	return nil
}

// TransactionRequest is the body of POST /api/transactions.
type TransactionRequest struct {
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	LiveID      string `json:"live_id"`
	Settled     bool   `json:"settled"`
}

// LedgerRow is one row of PUT /api/transactions. Amounts are signed.
type LedgerRow struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	Settled     bool   `json:"settled"`
	Refunded    Amount `json:"refunded"`
	LiveID      string `json:"live_id"`
}

// RefundRequest is the body of POST /api/refunds.
type RefundRequest struct {
	Date        string `json:"date"`
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
}

// decodeJSON reads one JSON value from the body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// ToNewTransaction validates the form fields and returns the service intent.
func (req TransactionRequest) ToNewTransaction() (services.NewTransaction, error) {
	var problems []core.FieldError

	date, err := parseDate(req.Date)
	if err != nil {
		problems = append(problems, core.FieldError{Field: "date", Value: req.Date, Err: err})
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		problems = append(problems, core.FieldError{Field: "kind", Value: req.Kind, Err: err})
	}
	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		problems = append(problems, core.FieldError{Field: "amount", Value: string(req.Amount), Err: err})
	}
	if len(problems) > 0 {
		return services.NewTransaction{}, &core.ValidationError{Fields: problems}
	}

	return services.NewTransaction{
		Date:        date,
		Kind:        kind,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		LiveID:      sanitizeInput(req.LiveID),
		Settled:     req.Settled,
	}, nil
}

// ToTransactions converts a bulk body. Problems carry the 1-based row index.
func ToTransactions(rows []LedgerRow) ([]core.Transaction, error) {
	var problems []core.FieldError
	out := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		bad := func(field, value string, err error) {
			problems = append(problems, core.FieldError{Row: i + 1, Field: field, Value: value, Err: err})
		}
		tx := core.Transaction{
			ID:          strings.TrimSpace(row.ID),
			Description: sanitizeInput(row.Description),
			Settled:     row.Settled,
			LiveID:      sanitizeInput(row.LiveID),
		}
		var err error
		if tx.Date, err = parseDate(row.Date); err != nil {
			bad("date", row.Date, err)
		}
		if tx.Kind, err = parseKind(row.Kind); err != nil {
			bad("kind", row.Kind, err)
		}
		if tx.Amount, err = core.ParseAmount(string(row.Amount)); err != nil {
			bad("amount", string(row.Amount), err)
		}
		if row.Refunded != "" {
			if tx.Refunded, err = core.ParseAmount(string(row.Refunded)); err != nil {
				bad("refunded", string(row.Refunded), err)
			}
		}
		out = append(out, tx)
	}
	if len(problems) > 0 {
		return nil, &core.ValidationError{Fields: problems}
	}
	return out, nil
}

// ToRefundRequest validates a payout. A missing date means today.
func (req RefundRequest) ToRefundRequest() (ledger.RefundRequest, error) {
	var problems []core.FieldError
	var date core.Date
	if strings.TrimSpace(req.Date) != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			problems = append(problems, core.FieldError{Field: "date", Value: req.Date, Err: err})
		}
		date = d
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		problems = append(problems, core.FieldError{Field: "amount", Value: string(req.Amount), Err: err})
	}
	if len(problems) > 0 {
		return ledger.RefundRequest{}, &core.ValidationError{Fields: problems}
	}
	return ledger.RefundRequest{
		Amount:      amount,
		Date:        date,
		Description: sanitizeInput(req.Description),
	}, nil
}

// ParseYear reads ?year=; absent or empty means every year.
func ParseYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", ErrBadRequest, v)
	}
	return y, nil
}

// ParseSplit reads ?split=; absent means the configured split.
func ParseSplit(query url.Values) (decimal.Decimal, error) {
	v := strings.TrimSpace(query.Get("split"))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid split %q", ErrBadRequest, v)
	}
	return d, nil
}

func parseKind(s string) (core.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sale":
		return core.KindSale, nil
	case "purchase":
		return core.KindPurchase, nil
	case "refund":
		return core.KindRefund, nil
	}
	return "", core.ErrInvalidKind
}
