// Package validator checks amount invariants before a proposal is sent.
//
// After repair, a matched charge must itemize to exactly the transaction
// amount, and the generated splits must add back up to it. A failure here
// means a repair heuristic did not explain the discrepancy, so the
// transaction is skipped rather than tagged with wrong amounts.
package validator

import (
	"fmt"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// ChargeValidation contains the result of validating a matched charge.
type ChargeValidation struct {
	// Valid is true if the amounts agree
	Valid bool

	// TransactionAmount is the ledger amount being explained
	TransactionAmount currency.MicroUSD

	// ExpectedSum is what the charge or splits add up to
	ExpectedSum currency.MicroUSD

	// Difference is the gap between actual and expected
	Difference currency.MicroUSD

	// Reason explains why validation failed (empty if valid)
	Reason string
}

// Error lets a failed validation be returned as an error.
func (v *ChargeValidation) Error() string {
	return v.Reason
}

// ValidateRepairedCharge checks that the charge's amount and its itemized
// parts both equal the transaction amount:
//
//	t.Amount ≈ charge.TransactAmount() ≈ -charge.TotalByItems()
func ValidateRepairedCharge(c *order.Charge, t *ledger.Transaction) *ChargeValidation {
	if v := compare(t.Amount, c.TransactAmount(), "charge amount"); !v.Valid {
		return v
	}
	return compare(t.Amount, c.TotalByItems().Neg(), "itemized total")
}

// ValidateSplits checks that proposed splits sum to the transaction amount.
func ValidateSplits(splits []ledger.Split, t *ledger.Transaction) *ChargeValidation {
	var sum currency.MicroUSD
	for _, s := range splits {
		sum += s.Amount
	}
	return compare(t.Amount, sum, "splits")
}

func compare(actual, expected currency.MicroUSD, what string) *ChargeValidation {
	diff := actual.Sub(expected)
	v := &ChargeValidation{
		Valid:             diff.Abs() < currency.Epsilon,
		TransactionAmount: actual,
		ExpectedSum:       expected,
		Difference:        diff,
	}
	if v.Valid {
		return v
	}

	if actual.Abs() < expected.Abs() {
		v.Reason = fmt.Sprintf("transaction (%s) is less than %s (%s) - short by %s",
			actual, what, expected, diff.Abs())
	} else {
		v.Reason = fmt.Sprintf("transaction (%s) exceeds %s (%s) by %s",
			actual, what, expected, diff.Abs())
	}
	return v
}
