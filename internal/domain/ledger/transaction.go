// Package ledger models Monarch Money transactions, categories, and the
// edits this tool proposes for them.
//
// Transactions are read-mostly: the engine never flags them as matched.
// Match state lives in the matcher's result set.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

// DateLayout is the ledger's calendar date format.
const DateLayout = "2006-01-02"

// Category is a ledger spending category.
type Category struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Icon             string `json:"icon,omitempty"`
	Order            int    `json:"order,omitempty"`
	IsSystemCategory bool   `json:"isSystemCategory,omitempty"`
	IsDisabled       bool   `json:"isDisabled,omitempty"`
	GroupID          string `json:"groupId,omitempty"`
	GroupName        string `json:"groupName,omitempty"`
	GroupType        string `json:"groupType,omitempty"`
}

func (c Category) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.ID)
}

type Merchant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Account struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Transaction is one ledger entry. Amount is negative for debits.
type Transaction struct {
	ID              string            `json:"id"`
	Amount          currency.MicroUSD `json:"amount"`
	Date            time.Time         `json:"date"`
	OriginalDate    time.Time         `json:"originalDate,omitzero"`
	Pending         bool              `json:"pending"`
	NeedsReview     bool              `json:"needsReview"`
	ReviewStatus    string            `json:"reviewStatus,omitempty"`
	IsRecurring     bool              `json:"isRecurring"`
	IsSplit         bool              `json:"isSplitTransaction"`
	HideFromReports bool              `json:"hideFromReports"`
	ParentID        string            `json:"originalTransaction,omitempty"`
	Splits          []*Transaction    `json:"splitTransactions,omitempty"`
	Category        Category          `json:"category"`
	Merchant        Merchant          `json:"merchant"`
	Account         Account           `json:"account"`
	Notes           string            `json:"notes"`
	Tags            []Tag             `json:"tags,omitempty"`
	PlaidName       string            `json:"plaidName,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ParseDate parses a ledger calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// IsDebit reports whether the transaction is money leaving the account.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// Description is the text shown in the ledger: the merchant name.
func (t *Transaction) Description() string {
	return t.Merchant.Name
}

// HasDescriptionPrefix reports whether any of the transaction's descriptions
// (its own or a split's) starts with prefix.
func (t *Transaction) HasDescriptionPrefix(prefix string) bool {
	if strings.HasPrefix(t.Description(), prefix) {
		return true
	}
	for _, s := range t.Splits {
		if strings.HasPrefix(s.Description(), prefix) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Tags = append([]Tag(nil), t.Tags...)
	c.Splits = nil
	for _, s := range t.Splits {
		c.Splits = append(c.Splits, s.Clone())
	}
	return &c
}

// CompareKey identifies the user-visible content of a transaction or split.
type CompareKey struct {
	Merchant string
	Amount   string
	Notes    string
	Category string
}

// CompareKey returns the fields that decide whether two entries look the
// same. The category is left empty when ignoreCategory is set.
func (t *Transaction) CompareKey(ignoreCategory bool) CompareKey {
	key := CompareKey{Merchant: t.Merchant.Name, Amount: t.Amount.String(), Notes: t.Notes}
	if !ignoreCategory {
		key.Category = t.Category.Name
	}
	return key
}

// DryRunString renders a one-line summary for previews.
func (t *Transaction) DryRunString(ignoreCategory bool) string {
	cat := t.Category.String()
	if ignoreCategory {
		cat = "--IGNORED--"
	}
	return fmt.Sprintf("%s \t%s \t%s \t%s", t.Date.Format(DateLayout), t.Amount, cat, t.Merchant.Name)
}

func (t *Transaction) String() string {
	notes := ""
	if t.Notes != "" {
		notes = "with notes"
	}
	return fmt.Sprintf("Transaction(%s): %s %s %s %s %s",
		t.ID, t.Amount, t.Date.Format(DateLayout), t.Merchant.Name, t.Category, notes)
}

// SumAmounts adds the amounts of all transactions.
func SumAmounts(txs []*Transaction) currency.MicroUSD {
	var sum currency.MicroUSD
	for _, t := range txs {
		sum += t.Amount
	}
	return sum
}
