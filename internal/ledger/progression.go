package ledger

import (
	"iter"

	"duo/internal/core"

	"github.com/shopspring/decimal"
)

// Point is one step of a person's cumulative earnings curve.
type Point struct {
	Date       core.Date
	Cumulative core.Money
}

// PerPersonCumulative yields one point per distinct date, ascending. Each
// purchase contributes amount*split; a sale contributes only once settled;
// refunds contribute nothing. The sequence can be ranged over repeatedly.
func PerPersonCumulative(l Ledger, split decimal.Decimal) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		order := l.chronological()
		var total int64
		for n, i := range order {
			tx := l.txs[i]
			if tx.IsPurchase() || (tx.IsSale() && tx.Settled) {
				total += tx.Amount.Mul(split).Cents
			}
			last := n == len(order)-1
			if !last && l.txs[order[n+1]].Date.Equal(tx.Date.Time) {
				continue
			}
			if !yield(Point{Date: tx.Date, Cumulative: core.Money{Cents: total}}) {
				return
			}
		}
	}
}
