package matcher

import (
	"fmt"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// Config holds matcher configuration
type Config struct {
	AmountEpsilon                    currency.MicroUSD // Default: currency.Epsilon
	MaxDaysBetweenPaymentAndShipping int               // Default: 5
	MaxCombinations                  int               // Default: 20
	Anchor                           order.Anchor      // Default: latest ship date
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AmountEpsilon:                    currency.Epsilon,
		MaxDaysBetweenPaymentAndShipping: 5,
		MaxCombinations:                  20,
		Anchor:                           order.AnchorLatestShipDate,
	}
}

// Validate rejects settings the matcher cannot run with.
func (c Config) Validate() error {
	switch {
	case c.AmountEpsilon <= 0:
		return &ConfigurationError{Field: "amount_epsilon", Message: "must be positive"}
	case c.MaxDaysBetweenPaymentAndShipping < 0:
		return &ConfigurationError{Field: "max_days_between_payment_and_shipping", Message: "cannot be negative"}
	case c.MaxCombinations < 2:
		return &ConfigurationError{Field: "max_combinations", Message: "must be at least 2"}
	case c.MaxCombinations > maxCombinationsCeiling:
		return &ConfigurationError{
			Field:   "max_combinations",
			Message: fmt.Sprintf("cannot exceed %d", maxCombinationsCeiling),
		}
	}
	return nil
}

// maxCombinationsCeiling keeps the worst-case subset search at 2^24 sums.
const maxCombinationsCeiling = 24

// ConfigurationError reports an invalid setting. It is raised before any
// processing starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// Match pairs one transaction with the charge(s) it paid for.
type Match struct {
	Transaction *ledger.Transaction
	Charges     []*order.Charge
	DaysApart   int               // Transaction date minus the charges' anchor date
	AmountDiff  currency.MicroUSD // Transaction amount minus the charges' amount
	Combined    bool              // True when several charges matched one transaction
}

// OrderIDs returns the distinct order ids of the matched charges.
func (m *Match) OrderIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, c := range m.Charges {
		if !seen[c.OrderID()] {
			seen[c.OrderID()] = true
			ids = append(ids, c.OrderID())
		}
	}
	return ids
}

// Stats counts what happened during a Match call.
type Stats struct {
	Transactions    int
	Charges         int
	Unshipped       int
	SingleMatches   int
	CombinedMatches int
	// BudgetExceeded counts transactions whose combination search was
	// skipped because too many candidate charges were in the window.
	BudgetExceeded int
}

// Result is the outcome of matching. Unmatched entries are normal output.
type Result struct {
	Matches               []*Match
	UnmatchedCharges      []*order.Charge
	UnmatchedTransactions []*ledger.Transaction
	Unshipped             []*order.Charge
	BudgetExceeded        []*ledger.Transaction
	Stats                 Stats
}
