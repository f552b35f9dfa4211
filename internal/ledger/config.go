package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SplitPolicy decides what the partner's half is computed on.
type SplitPolicy string

const (
	// GrossSplit halves unsettled revenue before any expense. Default.
	GrossSplit SplitPolicy = "gross"
	// NetOfExpensesSplit halves unsettled revenue minus still-open purchases.
	NetOfExpensesSplit SplitPolicy = "net_of_expenses"
	// NetOfTaxSplit halves unsettled revenue minus its tax provision.
	NetOfTaxSplit SplitPolicy = "net_of_tax"
)

// SettlementPolicy decides which sales a refund marks as settled.
type SettlementPolicy string

const (
	// FullReset settles every open sale once the refund covers the whole share.
	FullReset SettlementPolicy = "full_reset"
	// OldestFirst settles sales oldest first, leaving the last one partially settled.
	OldestFirst SettlementPolicy = "oldest_first"
)

var (
	DefaultTaxRate     = decimal.RequireFromString("0.22")
	DefaultPersonSplit = decimal.RequireFromString("0.5")
)

type Config struct {
	Split       SplitPolicy
	Settlement  SettlementPolicy
	TaxRate     decimal.Decimal
	PersonSplit decimal.Decimal
}

// DefaultConfig is gross split, full reset, 22% tax, even split.
func DefaultConfig() Config {
	return Config{
		Split:       GrossSplit,
		Settlement:  FullReset,
		TaxRate:     DefaultTaxRate,
		PersonSplit: DefaultPersonSplit,
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.Split {
	case GrossSplit, NetOfExpensesSplit, NetOfTaxSplit:
	default:
		errs = append(errs, fmt.Errorf("unknown split policy %q", c.Split))
	}
	switch c.Settlement {
	case FullReset, OldestFirst:
	default:
		errs = append(errs, fmt.Errorf("unknown settlement policy %q", c.Settlement))
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("tax rate %s must be in [0,1)", c.TaxRate))
	}
	if !c.PersonSplit.IsPositive() || c.PersonSplit.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("person split %s must be in (0,1]", c.PersonSplit))
	}
	return errors.Join(errs...)
}

// ParseSplitPolicy accepts the policy names used in configuration.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch p := SplitPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case GrossSplit, NetOfExpensesSplit, NetOfTaxSplit:
		return p, nil
	}
	return "", fmt.Errorf("unknown split policy %q (want %s, %s or %s)", s, GrossSplit, NetOfExpensesSplit, NetOfTaxSplit)
}

// ParseSettlementPolicy accepts the policy names used in configuration.
func ParseSettlementPolicy(s string) (SettlementPolicy, error) {
	switch p := SettlementPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FullReset, OldestFirst:
		return p, nil
	}
	return "", fmt.Errorf("unknown settlement policy %q (want %s or %s)", s, FullReset, OldestFirst)
}
