package order

import (
	"fmt"
	"strings"
)

// ParseError describes a single order-history record that could not be bound
// to an Item. It is fatal for that record only.
type ParseError struct {
	Row   int // 1-based data row within its source file (0 if unknown)
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseErrors collects record-level failures so a batch can be reported in
// aggregate instead of stopping at the first bad row.
type ParseErrors []*ParseError

func (e ParseErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, pe := range e {
		msgs = append(msgs, pe.Error())
	}
	return fmt.Sprintf("%d records failed to parse: %s", len(e), strings.Join(msgs, "; "))
}

// InvariantViolation signals a broken Charge invariant, such as mixing order
// ids or a repair that changed the charge's total owed.
type InvariantViolation struct {
	OrderID string
	Message string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("charge %s: invariant violated: %s", e.OrderID, e.Message)
}
