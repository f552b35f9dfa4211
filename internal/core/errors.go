package core

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError points at one bad cell or field. Row is 1-based and counts the
// header row when it comes from a sheet; 0 means "not row-addressed".
type FieldError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e FieldError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		if e.Value != "" {
			fmt.Fprintf(&b, " %q", e.Value)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e FieldError) Unwrap() error { return e.Err }

// ValidationError is raised at ingestion when rows are malformed or missing
// required fields.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return "validation failed: " + e.Fields[0].Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("validation failed (%d problems):\n- %s", len(e.Fields), strings.Join(parts, "\n- "))
}

// Unwrap exposes the underlying causes to errors.Is.
func (e *ValidationError) Unwrap() []error {
	out := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f
	}
	return out
}

// NewValidationError wraps a single cause.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Err: err}}}
}

// PersistenceError is returned when the backing store is unreachable or
// rejects a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err unless it already is a PersistenceError or nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

var (
	ErrNonPositiveRefund = errors.New("refund amount must be positive")
	ErrNothingToSettle   = errors.New("no unsettled sale to settle")
)

// SettlementPolicyError rejects a refund the settlement engine cannot apply.
type SettlementPolicyError struct {
	Amount Money
	Err    error
}

func (e *SettlementPolicyError) Error() string {
	return fmt.Sprintf("settlement of %s rejected: %v", e.Amount, e.Err)
}

func (e *SettlementPolicyError) Unwrap() error { return e.Err }
