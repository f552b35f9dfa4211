package sheets

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"duo/internal/core"
)

// Column names as written back to a sheet. The order is the canonical layout.
const (
	ColDate        = "Date"
	ColType        = "Type"
	ColDescription = "Description"
	ColAmount      = "Montant"
	ColSettled     = "Payé"
	ColYear        = "Année"
	ColLive        = "Live"
	ColRefunded    = "Remboursé"
	ColID          = "ID"
)

// Header is the first row EncodeRows writes.
var Header = []string{ColDate, ColType, ColDescription, ColAmount, ColSettled, ColYear, ColLive, ColRefunded, ColID}

// Labels written in the Type column. They match what the sheet was seeded with.
const (
	LabelSale     = "Vente (Gain net Whatnot)"
	LabelPurchase = "Achat Stock (Dépense)"
	LabelRefund   = "Remboursement"
)

var aliases = map[string]string{
	"date":              ColDate,
	"type":              ColType,
	"kind":              ColType,
	"nature":            ColType,
	"description":       ColDescription,
	"montant":           ColAmount,
	"amount":            ColAmount,
	"payé":              ColSettled,
	"paye":              ColSettled,
	"settled":           ColSettled,
	"paid":              ColSettled,
	"année":             ColYear,
	"annee":             ColYear,
	"year":              ColYear,
	"live":              ColLive,
	"liveid":            ColLive,
	"live id":           ColLive,
	"remboursé":         ColRefunded,
	"montant_rembourse": ColRefunded,
	"refunded":          ColRefunded,
	"id":                ColID,
}

// ErrMissingColumn reports a header without the Date column.
var ErrMissingColumn = errors.New("missing required column")

var dateLayouts = []string{time.DateOnly, time.DateTime, "02/01/2006"}

// ParseSettled reads a boolean cell. Anything not recognised as true is false.
func ParseSettled(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "vrai", "checked", "x", "v":
		return true
	}
	return false
}

// ParseKind maps a Type label to a Kind. Unknown labels fall back to the sign
// of the amount.
func ParseKind(label string, amount core.Money) core.Kind {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(l, "vente"), strings.HasPrefix(l, "sale"):
		return core.KindSale
	case strings.HasPrefix(l, "achat"), strings.HasPrefix(l, "purchase"):
		return core.KindPurchase
	case strings.HasPrefix(l, "rembours"), strings.HasPrefix(l, "refund"):
		return core.KindRefund
	}
	if amount.Cents < 0 {
		return core.KindPurchase
	}
	return core.KindSale
}

// KindLabel is the Type cell written for k.
func KindLabel(k core.Kind) string {
	switch k {
	case core.KindPurchase:
		return LabelPurchase
	case core.KindRefund:
		return LabelRefund
	default:
		return LabelSale
	}
}

// ParseDate accepts YYYY-MM-DD, "YYYY-MM-DD HH:MM:SS" and DD/MM/YYYY.
func ParseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, core.ErrInvalidDate
}

// DecodeRows turns a sheet, header first, into transactions. Columns are
// matched by name, blank rows are dropped, and every malformed cell is
// reported in a single ValidationError with its 1-based sheet row.
func DecodeRows(values [][]string) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	cols := map[string]int{}
	for i, h := range values[0] {
		if name, ok := aliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	if _, ok := cols[ColDate]; !ok {
		return nil, &core.ValidationError{Fields: []core.FieldError{{Row: 1, Field: ColDate, Err: ErrMissingColumn}}}
	}

	var out []core.Transaction
	var problems []core.FieldError
	for r, row := range values[1:] {
		if blank(row) {
			continue
		}
		rowNum := r + 2
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		bad := func(field, value string, err error) {
			problems = append(problems, core.FieldError{Row: rowNum, Field: field, Value: value, Err: err})
		}

		tx := core.Transaction{
			ID:          cell(ColID),
			Description: cell(ColDescription),
			Settled:     ParseSettled(cell(ColSettled)),
			LiveID:      cell(ColLive),
		}
		d, err := ParseDate(cell(ColDate))
		if err != nil {
			bad(ColDate, cell(ColDate), err)
		}
		tx.Date = d
		if v := cell(ColAmount); v != "" {
			if tx.Amount, err = core.ParseAmount(v); err != nil {
				bad(ColAmount, v, err)
			}
		}
		if v := cell(ColRefunded); v != "" {
			if tx.Refunded, err = core.ParseAmount(v); err != nil {
				bad(ColRefunded, v, err)
			}
		}
		tx.Kind = ParseKind(cell(ColType), tx.Amount)
		out = append(out, tx)
	}
	if len(problems) > 0 {
		return nil, &core.ValidationError{Fields: problems}
	}
	return out, nil
}

// EncodeRows renders transactions in the canonical layout, header first.
func EncodeRows(txs []core.Transaction) [][]string {
	out := make([][]string, 0, len(txs)+1)
	out = append(out, append([]string(nil), Header...))
	for _, tx := range txs {
		out = append(out, EncodeRow(tx))
	}
	return out
}

// EncodeRow renders one transaction in Header order.
func EncodeRow(tx core.Transaction) []string {
	refunded := ""
	if tx.Refunded.Cents != 0 {
		refunded = tx.Refunded.String()
	}
	return []string{
		tx.Date.String(),
		KindLabel(tx.Kind),
		tx.Description,
		tx.Amount.String(),
		strconv.FormatBool(tx.Settled),
		strconv.Itoa(tx.Year()),
		tx.LiveID,
		refunded,
		tx.ID,
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
