package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

func newTransaction(id, amount string) *Transaction {
	date, _ := ParseDate("2024-03-05")
	return &Transaction{
		ID:       id,
		Amount:   currency.MustParse(amount),
		Date:     date,
		Category: Category{ID: "cat-shopping", Name: "Shopping"},
		Merchant: Merchant{Name: "Amazon"},
	}
}

func TestTransaction_HasDescriptionPrefix(t *testing.T) {
	tx := newTransaction("1", "-10.00")
	assert.False(t, tx.HasDescriptionPrefix("Amazon.com: "))

	tx.Splits = []*Transaction{{Merchant: Merchant{Name: "Amazon.com: Widget"}}}
	assert.True(t, tx.HasDescriptionPrefix("Amazon.com: "))
}

func TestTransaction_CloneDoesNotAlias(t *testing.T) {
	tx := newTransaction("1", "-10.00")
	tx.Tags = []Tag{{ID: "t1"}}
	tx.Splits = []*Transaction{newTransaction("2", "-5.00")}

	clone := tx.Clone()
	clone.Tags[0].ID = "changed"
	clone.Splits[0].Notes = "changed"

	assert.Equal(t, "t1", tx.Tags[0].ID)
	assert.Empty(t, tx.Splits[0].Notes)
}

func TestProposal_Identical(t *testing.T) {
	tests := []struct {
		name           string
		splits         []Split
		ignoreCategory bool
		want           bool
	}{
		{
			name:   "same content",
			splits: []Split{{Description: "Amazon.com: Widget", Amount: currency.MustParse("-10.00"), CategoryName: "Shopping", Notes: "n"}},
			want:   true,
		},
		{
			name:   "different category",
			splits: []Split{{Description: "Amazon.com: Widget", Amount: currency.MustParse("-10.00"), CategoryName: "Electronics", Notes: "n"}},
			want:   false,
		},
		{
			name:           "different category ignored",
			splits:         []Split{{Description: "Amazon.com: Widget", Amount: currency.MustParse("-10.00"), CategoryName: "Electronics", Notes: "n"}},
			ignoreCategory: true,
			want:           true,
		},
		{
			name: "itemized against unsplit",
			splits: []Split{
				{Description: "Amazon.com: Widget", Amount: currency.MustParse("-6.00"), CategoryName: "Shopping", Notes: "n"},
				{Description: "Amazon.com: Gadget", Amount: currency.MustParse("-4.00"), CategoryName: "Shopping", Notes: "n"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			tx := newTransaction("1", "-10.00")
			tx.Merchant.Name = "Amazon.com: Widget"
			tx.Notes = "n"
			p := &Proposal{Transaction: tx, Splits: tt.splits}

			// Act & Assert
			assert.Equal(t, tt.want, p.Identical(tt.ignoreCategory))
		})
	}
}

func TestProposal_IdenticalComparesExistingSplits(t *testing.T) {
	tx := newTransaction("1", "-10.00")
	a := newTransaction("1a", "-6.00")
	a.Merchant.Name = "Amazon.com: Widget"
	b := newTransaction("1b", "-4.00")
	b.Merchant.Name = "Amazon.com: Gadget"
	tx.Splits = []*Transaction{a, b}

	p := &Proposal{Transaction: tx, Splits: []Split{
		{Description: "Amazon.com: Gadget", Amount: currency.MustParse("-4.00"), CategoryName: "Shopping"},
		{Description: "Amazon.com: Widget", Amount: currency.MustParse("-6.00"), CategoryName: "Shopping"},
	}}

	assert.True(t, p.Identical(false))
	assert.True(t, p.IsItemized())
}

func TestSplitUpdate_Validate(t *testing.T) {
	parent := currency.MustParse("-10.00")

	t.Run("valid", func(t *testing.T) {
		u := &SplitUpdate{TransactionID: "1", Splits: []SplitEntry{
			{MerchantName: "A", Amount: currency.MustParse("-6.00"), CategoryID: "c"},
			{MerchantName: "B", Amount: currency.MustParse("-4.00"), CategoryID: "c"},
		}}
		assert.NoError(t, u.Validate(parent))
	})

	t.Run("sum mismatch", func(t *testing.T) {
		u := &SplitUpdate{TransactionID: "1", Splits: []SplitEntry{
			{MerchantName: "A", Amount: currency.MustParse("-6.00"), CategoryID: "c"},
			{MerchantName: "B", Amount: currency.MustParse("-3.00"), CategoryID: "c"},
		}}
		err := u.Validate(parent)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sum to")
	})

	t.Run("single entry", func(t *testing.T) {
		u := &SplitUpdate{TransactionID: "1", Splits: []SplitEntry{{Amount: parent, CategoryID: "c"}}}
		assert.Error(t, u.Validate(parent))
	})

	t.Run("missing category", func(t *testing.T) {
		u := &SplitUpdate{TransactionID: "1", Splits: []SplitEntry{
			{MerchantName: "A", Amount: currency.MustParse("-6.00")},
			{MerchantName: "B", Amount: currency.MustParse("-4.00"), CategoryID: "c"},
		}}
		assert.Error(t, u.Validate(parent))
	})
}

func TestNewUpdate(t *testing.T) {
	tx := newTransaction("1", "-10.00")
	s := Split{Description: "Amazon.com: Widget", CategoryID: "cat-electronics", Notes: "notes"}

	u := NewUpdate(tx, s, false)
	assert.Equal(t, "cat-electronics", u.CategoryID)
	assert.Equal(t, "Amazon.com: Widget", u.MerchantName)
	require.NotNil(t, u.Notes)
	assert.Equal(t, "notes", *u.Notes)

	ignored := NewUpdate(tx, s, true)
	assert.Equal(t, "cat-shopping", ignored.CategoryID)
}

func TestNewSplitUpdate_FallsBackToParentCategory(t *testing.T) {
	tx := newTransaction("1", "-10.00")
	splits := []Split{
		{Description: "A", Amount: currency.MustParse("-6.00"), CategoryID: "cat-electronics"},
		{Description: "B", Amount: currency.MustParse("-4.00")},
	}

	u := NewSplitUpdate(tx, splits, false)

	require.Len(t, u.Splits, 2)
	assert.Equal(t, "cat-electronics", u.Splits[0].CategoryID)
	assert.Equal(t, "cat-shopping", u.Splits[1].CategoryID)
	assert.NoError(t, u.Validate(tx.Amount))
}

func TestTransaction_JSONRoundTrip(t *testing.T) {
	tx := newTransaction("1", "-10.27")
	tx.Tags = []Tag{{ID: "t", Name: "amazon"}}

	data, err := json.Marshal(tx)
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tx.Amount, decoded.Amount)
	assert.True(t, tx.Date.Equal(decoded.Date))
	assert.Equal(t, tx.Tags, decoded.Tags)
}
