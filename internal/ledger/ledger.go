// Package ledger computes revenue, expense, profit, tax provision and the
// partner's outstanding share over a list of signed transactions.
//
// A Ledger is a value: operations take one and return a new one, nothing
// here keeps a reference to the caller's rows.
package ledger

import (
	"slices"
	"sort"

	"duo/internal/core"
)

// Ledger is an immutable, validated snapshot of transactions in entry order.
type Ledger struct {
	txs []core.Transaction
}

// New validates every row and copies them into a Ledger. All invalid rows are
// reported at once; row numbers are 1-based positions in txs.
func New(txs []core.Transaction) (Ledger, error) {
	var fields []core.FieldError
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			fields = append(fields, core.FieldError{Row: i + 1, Field: "transaction", Value: tx.Description, Err: err})
		}
	}
	if len(fields) > 0 {
		return Ledger{}, &core.ValidationError{Fields: fields}
	}
	return Ledger{txs: slices.Clone(txs)}, nil
}

// Empty returns a ledger without rows.
func Empty() Ledger { return Ledger{} }

// Transactions returns a copy of the rows.
func (l Ledger) Transactions() []core.Transaction {
	return slices.Clone(l.txs)
}

func (l Ledger) Len() int { return len(l.txs) }

// ByYear keeps the rows dated in year.
func ByYear(l Ledger, year int) Ledger {
	out := make([]core.Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if tx.Year() == year {
			out = append(out, tx)
		}
	}
	return Ledger{txs: out}
}

// Years lists the distinct years present, most recent first.
func Years(l Ledger) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, tx := range l.txs {
		y := tx.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// chronological returns indexes of l.txs sorted by date, ties kept in entry order.
func (l Ledger) chronological() []int {
	idx := make([]int, len(l.txs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return l.txs[idx[a]].Date.Before(l.txs[idx[b]].Date.Time)
	})
	return idx
}
