package ledger

import (
	"slices"

	"duo/internal/core"

	"github.com/shopspring/decimal"
)

const defaultRefundDescription = "Remboursement"

// Engine applies the configured split and settlement policies.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Balance is what is still owed to the partner.
type Balance struct {
	UnsettledRevenue core.Money
	UnsettledExpense core.Money
	PartnerShareDue  core.Money
}

// Summary gathers every figure the dashboard shows for one ledger.
type Summary struct {
	Count        int
	Revenue      core.Money
	Expense      core.Money
	GrossProfit  core.Money
	TaxProvision core.Money
	Refunded     core.Money
	TaxRate      decimal.Decimal
	Split        SplitPolicy
	Balance      Balance
}

// RefundRequest records a payout to the partner.
type RefundRequest struct {
	ID          string
	Amount      core.Money // positive
	Date        core.Date
	Description string
}

func (e *Engine) TaxProvision(l Ledger) core.Money {
	return TaxProvision(l, e.cfg.TaxRate)
}

// OutstandingBalance splits open sales per the configured policy.
func (e *Engine) OutstandingBalance(l Ledger) Balance {
	var b Balance
	for _, tx := range l.txs {
		switch {
		case tx.IsSale():
			b.UnsettledRevenue.Cents += tx.Remaining().Cents
		case tx.IsPurchase() && !tx.Settled:
			b.UnsettledExpense.Cents -= tx.Amount.Cents
		}
	}

	base := b.UnsettledRevenue
	switch e.cfg.Split {
	case NetOfExpensesSplit:
		base.Cents -= b.UnsettledExpense.Cents
	case NetOfTaxSplit:
		base.Cents -= base.Mul(e.cfg.TaxRate).Cents
	}
	if base.Cents < 0 {
		base.Cents = 0
	}
	b.PartnerShareDue = base.Mul(e.cfg.PersonSplit)
	return b
}

func (e *Engine) Summarize(l Ledger) Summary {
	return Summary{
		Count:        l.Len(),
		Revenue:      TotalRevenue(l),
		Expense:      TotalExpense(l),
		GrossProfit:  GrossProfit(l),
		TaxProvision: e.TaxProvision(l),
		Refunded:     TotalRefunded(l),
		TaxRate:      e.cfg.TaxRate,
		Split:        e.cfg.Split,
		Balance:      e.OutstandingBalance(l),
	}
}

// ApplyRefund appends a settled Refund row and flips sales to settled per
// the settlement policy. The input ledger is left untouched.
func (e *Engine) ApplyRefund(l Ledger, req RefundRequest) (Ledger, error) {
	if req.Amount.Cents <= 0 {
		return Ledger{}, &core.SettlementPolicyError{Amount: req.Amount, Err: core.ErrNonPositiveRefund}
	}
	refund := core.Transaction{
		ID:          req.ID,
		Date:        req.Date,
		Kind:        core.KindRefund,
		Description: req.Description,
		Amount:      req.Amount.Neg(),
		Settled:     true,
	}
	if refund.Description == "" {
		refund.Description = defaultRefundDescription
	}
	if err := refund.Validate(); err != nil {
		return Ledger{}, &core.ValidationError{Fields: []core.FieldError{{Field: "refund", Err: err}}}
	}

	open := l.openSales()
	if len(open) == 0 {
		return Ledger{}, &core.SettlementPolicyError{Amount: req.Amount, Err: core.ErrNothingToSettle}
	}

	txs := slices.Clone(l.txs)
	switch e.cfg.Settlement {
	case OldestFirst:
		covered := req.Amount.Div(e.cfg.PersonSplit).Cents
		for _, i := range open {
			if covered <= 0 {
				break
			}
			rem := txs[i].Remaining().Cents
			if covered >= rem {
				settle(&txs[i])
				covered -= rem
				continue
			}
			txs[i].Refunded.Cents += covered
			covered = 0
		}
	default:
		due := e.OutstandingBalance(l).PartnerShareDue
		if due.Cents > 0 && req.Amount.Cents >= due.Cents {
			for _, i := range open {
				settle(&txs[i])
			}
			if e.cfg.Split == NetOfExpensesSplit {
				for i := range txs {
					if txs[i].IsPurchase() {
						txs[i].Settled = true
					}
				}
			}
		}
	}

	return Ledger{txs: append(txs, refund)}, nil
}

// openSales returns unsettled sale indexes, oldest first.
func (l Ledger) openSales() []int {
	var out []int
	for _, i := range l.chronological() {
		if l.txs[i].IsSale() && !l.txs[i].Settled {
			out = append(out, i)
		}
	}
	return out
}

func settle(tx *core.Transaction) {
	tx.Settled = true
	if tx.Refunded.Cents != 0 {
		tx.Refunded = tx.Amount
	}
}
