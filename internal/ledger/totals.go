package ledger

import (
	"duo/internal/core"

	"github.com/shopspring/decimal"
)

// TotalRevenue sums positive amounts.
func TotalRevenue(l Ledger) core.Money {
	var cents int64
	for _, tx := range l.txs {
		if tx.Amount.Cents > 0 {
			cents += tx.Amount.Cents
		}
	}
	return core.Money{Cents: cents}
}

// TotalExpense is the absolute sum of negative amounts, refunds excluded.
func TotalExpense(l Ledger) core.Money {
	var cents int64
	for _, tx := range l.txs {
		if tx.Amount.Cents < 0 && !tx.IsRefund() {
			cents -= tx.Amount.Cents
		}
	}
	return core.Money{Cents: cents}
}

// TotalRefunded is the absolute sum of refunds paid out to the partner.
func TotalRefunded(l Ledger) core.Money {
	var cents int64
	for _, tx := range l.txs {
		if tx.IsRefund() {
			cents -= tx.Amount.Cents
		}
	}
	return core.Money{Cents: cents}
}

func GrossProfit(l Ledger) core.Money {
	return core.Money{Cents: TotalRevenue(l).Cents - TotalExpense(l).Cents}
}

// TaxProvision reserves rate of the total revenue.
func TaxProvision(l Ledger, rate decimal.Decimal) core.Money {
	return TotalRevenue(l).Mul(rate)
}
