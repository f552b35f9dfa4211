package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindSale     Kind = "Sale"
	KindPurchase Kind = "Purchase"
	KindRefund   Kind = "Refund"
)

const maxDescriptionLen = 200

type (
	// Kind tells whether a row is proceeds, stock cost or a payout to the partner.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one signed ledger row. Sales are positive, purchases
	// and refunds are negative.
	Transaction struct {
		ID          string
		Date        Date
		Kind        Kind
		Description string
		Amount      Money
		Settled     bool
		Refunded    Money // part of a sale already paid out to the partner
		LiveID      string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidKind     = errors.New("invalid kind")
	ErrSignMismatch    = errors.New("amount sign does not match kind")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidRefunded = errors.New("refunded amount out of range")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (k Kind) Valid() bool {
	switch k {
	case KindSale, KindPurchase, KindRefund:
		return true
	}
	return false
}

// Neg returns the negated amount.
func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// Year is derived from Date and only used for display filtering.
func (t Transaction) Year() int {
	return t.Date.Year()
}

func (t Transaction) IsSale() bool {
	return t.Kind == KindSale && t.Amount.Cents > 0
}

func (t Transaction) IsPurchase() bool {
	return t.Kind == KindPurchase && t.Amount.Cents < 0
}

func (t Transaction) IsRefund() bool {
	return t.Kind == KindRefund
}

// Remaining is the part of a sale not yet paid out to the partner.
func (t Transaction) Remaining() Money {
	if !t.IsSale() || t.Settled {
		return Money{}
	}
	return Money{Cents: t.Amount.Cents - t.Refunded.Cents}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	switch t.Kind {
	case KindSale:
		if t.Amount.Cents < 0 {
			return ErrSignMismatch
		}
	case KindPurchase, KindRefund:
		if t.Amount.Cents > 0 {
			return ErrSignMismatch
		}
	}
	if len(strings.TrimSpace(t.Description)) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	if t.Kind != KindSale {
		if t.Refunded.Cents != 0 {
			return ErrInvalidRefunded
		}
		return nil
	}
	if t.Refunded.Cents < 0 || t.Refunded.Cents > t.Amount.Cents {
		return ErrInvalidRefunded
	}
	if t.Settled && t.Refunded.Cents != 0 && t.Refunded.Cents != t.Amount.Cents {
		return ErrInvalidRefunded
	}
	return nil
}
