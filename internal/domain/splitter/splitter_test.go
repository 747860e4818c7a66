package splitter

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

func usd(s string) currency.MicroUSD {
	return currency.MustParse(s)
}

func makeItem(name, price string, qty int) *order.Item {
	p := usd(price)
	shipped := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	return &order.Item{
		OrderID:     "112-0000001",
		ProductName: name,
		Website:     "Amazon.com",
		Quantity:    qty,
		UnitPrice:   p,
		TotalOwed:   p.Mul(int64(qty)),
		OrderDates:  []time.Time{shipped},
		ShipDates:   []time.Time{shipped},
	}
}

func makeTransaction(amount string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:       "tx1",
		Amount:   usd(amount),
		Category: ledger.Category{ID: "cat-1", Name: "Electronics"},
		Merchant: ledger.Merchant{Name: "AMAZON MKTPL"},
	}
}

// freeShippingCharge is $18.00 of items with $3.99 shipping comped.
func freeShippingCharge() *order.Charge {
	a := makeItem("Phone Case", "10.00", 1)
	b := makeItem("Screen Protector", "8.00", 1)
	a.ShippingCharge = usd("3.99")
	a.TotalDiscounts = usd("-3.99")
	return order.NewCharge(a, b)
}

func sumSplits(splits []ledger.Split) currency.MicroUSD {
	var sum currency.MicroUSD
	for _, s := range splits {
		sum += s.Amount
	}
	return sum
}

func TestGenerator_FreeShipping(t *testing.T) {
	tests := []struct {
		name             string
		skipFreeShipping bool
		want             []string
	}{
		{
			name:             "kept",
			skipFreeShipping: false,
			want:             []string{"Phone Case", "Screen Protector", ShippingDescription, PromotionDescription},
		},
		{
			name:             "skipped",
			skipFreeShipping: true,
			want:             []string{"Phone Case", "Screen Protector"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := DefaultConfig()
			cfg.SkipFreeShipping = tt.skipFreeShipping
			g := NewGenerator(cfg, nil)
			tx := makeTransaction("-18.00")

			// Act
			splits := g.Splits(freeShippingCharge(), tx)

			// Assert
			var got []string
			for _, s := range splits {
				got = append(got, s.Description)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tx.Amount, sumSplits(splits))
		})
	}
}

func TestGenerator_FreeShippingSplitsTaggedShipping(t *testing.T) {
	g := NewGenerator(DefaultConfig(), nil)

	splits := g.Splits(freeShippingCharge(), makeTransaction("-18.00"))

	require.Len(t, splits, 4)
	assert.Equal(t, usd("-3.99"), splits[2].Amount)
	assert.Equal(t, ShippingCategory, splits[2].CategoryName)
	assert.Equal(t, usd("3.99"), splits[3].Amount)
	assert.Equal(t, ShippingCategory, splits[3].CategoryName)
}

func TestGenerator_PromotionUsesDefaultCategory(t *testing.T) {
	item := makeItem("Phone Case", "10.00", 1)
	item.TotalDiscounts = usd("-2.00")
	item.TotalOwed = usd("8.00")
	g := NewGenerator(DefaultConfig(), nil)

	splits := g.Splits(order.NewCharge(item), makeTransaction("-8.00"))

	require.Len(t, splits, 2)
	assert.Equal(t, PromotionDescription, splits[1].Description)
	assert.Equal(t, DefaultCategory, splits[1].CategoryName)
	assert.Equal(t, usd("2.00"), splits[1].Amount)
}

func TestGenerator_ItemsSortedByUnitPrice(t *testing.T) {
	c := order.NewCharge(
		makeItem("Cheap", "1.00", 1),
		makeItem("Pricey", "20.00", 1),
		makeItem("Middle", "5.00", 2),
	)
	g := NewGenerator(DefaultConfig(), nil)

	splits := g.Splits(c, makeTransaction("-31.00"))

	require.Len(t, splits, 3)
	assert.Equal(t, "Pricey", splits[0].Description)
	assert.Equal(t, "2x Middle", splits[1].Description)
	assert.Equal(t, usd("-10.00"), splits[1].Amount)
	assert.Equal(t, "Cheap", splits[2].Description)
	for _, s := range splits {
		assert.Equal(t, "Electronics", s.CategoryName)
		assert.Equal(t, c.Notes(), s.Notes)
	}
}

func TestGenerator_HiddenShippingFee(t *testing.T) {
	item := makeItem("Phone Case", "10.00", 1)
	item.UnitPriceTax = usd("0.80")
	item.TotalOwed = usd("10.80")
	item.ShippingAddress = "Jane Doe 1 Main St DENVER CO 80202"
	c := order.NewCharge(item)
	g := NewGenerator(DefaultConfig(), nil)

	splits := g.Splits(c, makeTransaction("-11.07"))

	require.Len(t, splits, 2)
	assert.Equal(t, order.HiddenShippingFeeNote, splits[1].Description)
	assert.Equal(t, usd("-0.27"), splits[1].Amount)
	assert.Equal(t, ShippingCategory, splits[1].CategoryName)
	assert.Equal(t, c.TransactAmount(), sumSplits(splits))
}

func TestItemize(t *testing.T) {
	splits := []ledger.Split{{Description: "A"}, {Description: "B"}, {Description: "C"}}

	out := Itemize(splits, "Amazon.com: ")

	require.Len(t, out, 3)
	assert.Equal(t, "Amazon.com: C", out[0].Description)
	assert.Equal(t, "Amazon.com: A", out[2].Description)
	assert.Equal(t, "A", splits[0].Description, "input is not modified")
}

func TestSummarizeTitle(t *testing.T) {
	title := SummarizeTitle([]string{
		"Heavy Duty Shelf Liner Non Adhesive Drawer Liner for Kitchen Cabinets",
		"USB C Cable 6ft Braided Fast Charging Cord",
	}, "Amazon.com: ")

	assert.True(t, strings.HasPrefix(title, "Amazon.com: Heavy Duty"))
	assert.Contains(t, title, ", USB C Cable")
	assert.LessOrEqual(t, len(title), 110)
}

func TestGenerator_SummarizeMultipleItems(t *testing.T) {
	// Arrange
	g := NewGenerator(DefaultConfig(), nil)
	c := freeShippingCharge()
	tx := makeTransaction("-18.00")
	splits := g.Splits(c, tx)

	// Act
	summary := g.Summarize(c, tx, splits, "Amazon.com: ")

	// Assert
	assert.Equal(t, "Amazon.com: Phone Case, Screen Protector", summary.Description)
	assert.Equal(t, tx.Amount, summary.Amount)
	assert.Equal(t, DefaultCategory, summary.CategoryName)
	assert.True(t, strings.HasPrefix(summary.Notes, c.Notes()+"\nItem(s):\n"))
	assert.Contains(t, summary.Notes, " - Phone Case\n - Screen Protector\n - Shipping\n - Promotion(s)")
}

func TestGenerator_SummarizeSingleItemKeepsCategory(t *testing.T) {
	g := NewGenerator(DefaultConfig(), nil)
	c := order.NewCharge(makeItem("Phone Case", "10.00", 1))
	tx := makeTransaction("-10.00")
	splits := []ledger.Split{
		{Description: "Phone Case", Amount: usd("-10.00"), CategoryName: "Electronics", CategoryID: "cat-1"},
	}

	summary := g.Summarize(c, tx, splits, "Amazon.com: ")

	assert.Equal(t, "Electronics", summary.CategoryName)
	assert.Equal(t, "cat-1", summary.CategoryID)
	assert.Equal(t, "Amazon.com: Phone Case", summary.Description)
}

// trackedCharge has one item per name, and the first item carries the
// given number of 20-character tracking numbers.
func trackedCharge(tracking int, names ...string) *order.Charge {
	items := make([]*order.Item, len(names))
	for i, name := range names {
		items[i] = makeItem(name, "10.00", 1)
	}
	for i := 0; i < tracking; i++ {
		items[0].Tracking = append(items[0].Tracking, fmt.Sprintf("TBA%017d", i))
	}
	return order.NewCharge(items...)
}

func TestGenerator_SummaryNotesStayUnderLimit(t *testing.T) {
	manyItems := make([]string, 12)
	for i := range manyItems {
		manyItems[i] = fmt.Sprintf("Replacement Water Filter Cartridge Model %02d Compatible With Most Refrigerator Brands", i)
	}

	tests := []struct {
		name      string
		itemize   bool
		charge    *order.Charge
		wantFull  bool
		wantItems bool
	}{
		{name: "short note keeps everything", itemize: true, charge: trackedCharge(2, "Phone Case"), wantFull: true, wantItems: true},
		{name: "charge note near limit keeps item list", itemize: true, charge: trackedCharge(37, "Phone Case"), wantItems: true},
		{name: "long item list drops to short note", charge: trackedCharge(37, manyItems...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := DefaultConfig()
			cfg.Itemize = tt.itemize
			g := NewGenerator(cfg, nil)
			require.False(t, tt.charge.NotesTruncated())

			// Act
			p := g.Propose(tt.charge, makeTransaction("-10.00"), "Amazon.com: ")

			// Assert
			require.Len(t, p.Splits, 1)
			notes := p.Splits[0].Notes
			assert.Less(t, len(notes), order.MaxNotesLength)
			assert.Equal(t, tt.wantFull, strings.HasPrefix(notes, tt.charge.FullNotes()))
			assert.True(t, strings.HasPrefix(notes, tt.charge.ShortNotes()) || tt.wantFull)
			assert.Equal(t, tt.wantItems, strings.Contains(notes, "\nItem(s):\n - "))
		})
	}
}

func TestGenerator_Propose(t *testing.T) {
	tests := []struct {
		name       string
		config     func(*Config)
		charge     func() *order.Charge
		amount     string
		wantSplits int
	}{
		{
			name:       "multi item itemized",
			config:     func(*Config) {},
			charge:     freeShippingCharge,
			amount:     "-18.00",
			wantSplits: 4,
		},
		{
			name:       "single item summarized",
			config:     func(*Config) {},
			charge:     func() *order.Charge { return order.NewCharge(makeItem("Phone Case", "10.00", 1)) },
			amount:     "-10.00",
			wantSplits: 1,
		},
		{
			name:   "single item verbose itemize",
			config: func(c *Config) { c.VerboseItemize = true },
			charge: func() *order.Charge {
				item := makeItem("Phone Case", "10.00", 1)
				item.ShippingCharge = usd("2.00")
				item.TotalOwed = usd("12.00")
				return order.NewCharge(item)
			},
			amount:     "-12.00",
			wantSplits: 2,
		},
		{
			name:       "itemize disabled",
			config:     func(c *Config) { c.Itemize = false },
			charge:     freeShippingCharge,
			amount:     "-18.00",
			wantSplits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.config(&cfg)
			g := NewGenerator(cfg, nil)

			p := g.Propose(tt.charge(), makeTransaction(tt.amount), "Amazon.com: ")

			require.Len(t, p.Splits, tt.wantSplits)
			assert.Equal(t, usd(tt.amount), sumSplits(p.Splits))
			for _, s := range p.Splits {
				assert.True(t, strings.HasPrefix(s.Description, "Amazon.com: "))
			}
			assert.Equal(t, []string{"112-0000001"}, p.OrderIDs)
		})
	}
}

func TestIsNonItemDescription(t *testing.T) {
	assert.True(t, IsNonItemDescription(order.MiscChargeName))
	assert.True(t, IsNonItemDescription("Shipping"))
	assert.False(t, IsNonItemDescription("Phone Case"))
}
