// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents. Conversions from text and products
// with rates go through shopspring/decimal and round half away from zero to
// the cent, so sums of Money never drift.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ParseAmount converts a signed decimal string to cents.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, a leading sign,
// a euro symbol and grouping spaces. Values with more than two decimals are
// rounded half away from zero. Values whose cents do not fit in an int64 are
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")    -> 1234
//	ParseAmount("-12,345")  -> -1235
//	ParseAmount("1 200 €")  -> 120000
func ParseAmount(s string) (Money, error) {
	s = normalizeAmount(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseDecimalToCents parses an unsigned, strictly positive amount as typed
// into the entry form, where the sign comes from the chosen kind.
func ParseDecimalToCents(s string) (int64, error) {
	n := normalizeAmount(s)
	if strings.HasPrefix(n, "-") || strings.HasPrefix(n, "+") {
		return 0, ErrInvalidAmount
	}
	m, err := ParseAmount(n)
	if err != nil {
		return 0, err
	}
	if m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimPrefix(s, "€")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	return strings.ReplaceAll(s, ",", ".")
}

// FromDecimal rounds a euro amount to cents, saturating at the int64 range.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: toCents(d.Mul(hundred))}
}

// Decimal returns the euro value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Mul scales the amount by factor, rounding to the cent.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Cents: toCents(decimal.NewFromInt(m.Cents).Mul(factor))}
}

// Div divides the amount by factor, rounding to the cent.
func (m Money) Div(factor decimal.Decimal) Money {
	return Money{Cents: toCents(decimal.NewFromInt(m.Cents).Div(factor))}
}

// toCents rounds to a whole cent. IntPart wraps on overflow, so out of range
// values are clamped first.
func toCents(d decimal.Decimal) int64 {
	d = d.Round(0)
	switch {
	case d.GreaterThan(maxCents):
		return math.MaxInt64
	case d.LessThan(minCents):
		return math.MinInt64
	}
	return d.IntPart()
}

// String formats the amount with two decimals and a dot separator.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Euros returns the euro value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return m.Decimal().InexactFloat64()
}
