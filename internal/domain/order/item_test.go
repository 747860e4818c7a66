package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItem_Totals(t *testing.T) {
	// Arrange
	item := &Item{
		Quantity:       3,
		UnitPrice:      usd("2.00"),
		UnitPriceTax:   usd("0.15"),
		ShippingCharge: usd("3.99"),
		TotalDiscounts: usd("-3.99"),
	}

	// Act & Assert
	assert.Equal(t, usd("6.00"), item.Subtotal())
	assert.Equal(t, usd("0.45"), item.SubtotalTax())
	assert.Equal(t, usd("6.45"), item.Total())
	assert.Equal(t, usd("6.45"), item.TotalOwedByParts())
}

func TestItem_TaxAdjustmentCountsTowardTax(t *testing.T) {
	item := &Item{Quantity: 2, UnitPrice: usd("1.00"), UnitPriceTax: usd("0.08"), TaxAdjustment: usd("0.01")}

	assert.Equal(t, usd("0.17"), item.SubtotalTax())
}

func TestItem_TaxRate(t *testing.T) {
	item := &Item{UnitPrice: usd("10.00"), UnitPriceTax: usd("0.83")}
	assert.Equal(t, 8.3, item.TaxRate())

	assert.Equal(t, 0.0, (&Item{}).TaxRate())
}

func TestItem_Title(t *testing.T) {
	tests := []struct {
		name   string
		item   Item
		target int
		want   string
	}{
		{
			name:   "single quantity",
			item:   Item{ProductName: "Paper Towels", Quantity: 1},
			target: 100,
			want:   "Paper Towels",
		},
		{
			name:   "multiple quantity gets prefix",
			item:   Item{ProductName: "Paper Towels", Quantity: 3},
			target: 100,
			want:   "3x Paper Towels",
		},
		{
			name:   "non ascii dropped",
			item:   Item{ProductName: "Café Beans™", Quantity: 1},
			target: 100,
			want:   "Caf Beans",
		},
		{
			name:   "truncated without splitting words",
			item:   Item{ProductName: "Heavy Duty Shelf Liner, Non-Adhesive", Quantity: 1},
			target: 20,
			want:   "Heavy Duty Shelf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Title(tt.target))
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		target float64
		base   string
		want   string
	}{
		{"fits", "Short title", 100, "", "Short title"},
		{"strips trailing punctuation", "Widget, Blue -", 100, "", "Widget, Blue"},
		{"half word rule keeps long tail word", "aa bbbbbbbb", 8, "", "aa bbbbbbbb"},
		{"stops at first word that does not fit", "aaaa bbbbbbbbbbbb cc", 8, "", "aaaa"},
		{"base counts against budget", "Paper Towels Select", 12, "2x", "2x Paper Towels"},
		{"empty title", "", 10, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateTitle(tt.title, tt.target, tt.base))
		})
	}
}

func TestRemoveLeadingQuantity(t *testing.T) {
	assert.Equal(t, "Paper Towels", RemoveLeadingQuantity("12x Paper Towels"))
	assert.Equal(t, "Paper Towels", RemoveLeadingQuantity("Paper Towels"))
	assert.Equal(t, "x Paper", RemoveLeadingQuantity("x Paper"))
}

func TestItem_CloneDoesNotAlias(t *testing.T) {
	// Arrange
	orig := newItem("111-1", "Widget", "1.00", "0.00")
	orig.Tracking = []string{"AMZN1"}
	orig.Raw = map[string]string{"asin": "B0Widget"}

	// Act
	clone := orig.Clone()
	clone.Tracking[0] = "UPS2"
	clone.ShipDates[0] = time.Time{}
	clone.Raw["asin"] = "changed"

	// Assert
	assert.Equal(t, "AMZN1", orig.Tracking[0])
	assert.False(t, orig.ShipDates[0].IsZero())
	assert.Equal(t, "B0Widget", orig.Raw["asin"])
}

func TestItem_IsCancelled(t *testing.T) {
	assert.True(t, (&Item{OrderStatus: StatusCancelled}).IsCancelled())
	assert.False(t, (&Item{OrderStatus: StatusClosed}).IsCancelled())
}
