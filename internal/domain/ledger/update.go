package ledger

import (
	"fmt"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

// Split is one proposed child of a split transaction, or the single
// proposed edit when summarizing.
type Split struct {
	Description  string            `json:"description"`
	Amount       currency.MicroUSD `json:"amount"`
	CategoryName string            `json:"categoryName"`
	CategoryID   string            `json:"categoryId,omitempty"`
	Notes        string            `json:"notes"`
}

// Proposal is the set of edits generated for one matched transaction.
type Proposal struct {
	Transaction *Transaction `json:"transaction"`
	Splits      []Split      `json:"splits"`
	OrderIDs    []string     `json:"orderIds"`
}

// IsItemized reports whether the proposal replaces the transaction with
// several splits rather than editing it in place.
func (p *Proposal) IsItemized() bool {
	return len(p.Splits) > 1
}

// Identical reports whether applying the proposal would change nothing
// visible: the transaction (or its existing splits) already carries the
// same set of merchant, amount, notes, and (unless ignored) category.
func (p *Proposal) Identical(ignoreCategory bool) bool {
	old := make(map[CompareKey]bool)
	if len(p.Transaction.Splits) > 0 {
		for _, s := range p.Transaction.Splits {
			old[s.CompareKey(ignoreCategory)] = true
		}
	} else {
		old[p.Transaction.CompareKey(ignoreCategory)] = true
	}

	proposed := make(map[CompareKey]bool)
	for _, s := range p.Splits {
		key := CompareKey{Merchant: s.Description, Amount: s.Amount.String(), Notes: s.Notes}
		if !ignoreCategory {
			key.Category = s.CategoryName
		}
		proposed[key] = true
	}

	if len(old) != len(proposed) {
		return false
	}
	for k := range old {
		if !proposed[k] {
			return false
		}
	}
	return true
}

// TransactionUpdate edits a single transaction. Nil fields are left
// untouched; an empty Notes or GoalID clears the field.
type TransactionUpdate struct {
	ID              string
	CategoryID      string
	MerchantName    string
	Notes           *string
	Amount          *currency.MicroUSD
	Date            *time.Time
	HideFromReports *bool
	NeedsReview     *bool
	GoalID          *string
}

// SplitEntry is one child sent with a split mutation.
type SplitEntry struct {
	MerchantName string
	Amount       currency.MicroUSD
	CategoryID   string
	Notes        string
}

// SplitUpdate replaces a transaction with ordered child splits.
type SplitUpdate struct {
	TransactionID string
	Splits        []SplitEntry
}

// Validate checks the splits add up to the parent amount.
func (u *SplitUpdate) Validate(parentAmount currency.MicroUSD) error {
	if len(u.Splits) < 2 {
		return fmt.Errorf("split of %s needs at least 2 entries, got %d", u.TransactionID, len(u.Splits))
	}
	var sum currency.MicroUSD
	for i, s := range u.Splits {
		if s.CategoryID == "" {
			return fmt.Errorf("split %d of %s has no category", i, u.TransactionID)
		}
		sum += s.Amount
	}
	if !sum.RoundToCent().Equal(parentAmount.RoundToCent()) {
		return fmt.Errorf("splits of %s sum to %s, parent is %s", u.TransactionID, sum, parentAmount)
	}
	return nil
}

// NewUpdate converts a single-split proposal into an in-place edit. The
// category is left unchanged when ignoreCategory is set.
func NewUpdate(t *Transaction, s Split, ignoreCategory bool) *TransactionUpdate {
	notes := s.Notes
	u := &TransactionUpdate{
		ID:           t.ID,
		CategoryID:   t.Category.ID,
		MerchantName: s.Description,
		Notes:        &notes,
	}
	if !ignoreCategory && s.CategoryID != "" {
		u.CategoryID = s.CategoryID
	}
	return u
}

// NewSplitUpdate converts an itemized proposal into a split mutation.
func NewSplitUpdate(t *Transaction, splits []Split, ignoreCategory bool) *SplitUpdate {
	u := &SplitUpdate{TransactionID: t.ID}
	for _, s := range splits {
		cat := s.CategoryID
		if ignoreCategory || cat == "" {
			cat = t.Category.ID
		}
		u.Splits = append(u.Splits, SplitEntry{
			MerchantName: s.Description,
			Amount:       s.Amount,
			CategoryID:   cat,
			Notes:        s.Notes,
		})
	}
	return u
}
