// Package order models Amazon order-history line items and the payment
// "charges" they are billed under.
//
// An Item is one row of the order-history report. A Charge groups the Items
// paid for by a single card charge; it is what gets matched against a ledger
// transaction. Charge totals are always computed from the current items, so
// repairs applied to items are reflected immediately.
package order

import (
	"fmt"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

// Item status values used for filtering.
const (
	StatusClosed         = "Closed"
	StatusCancelled      = "Cancelled"
	ShipStatusNotShipped = "Not Available"
)

// Item is one order-history line.
type Item struct {
	OrderID         string
	ASIN            string
	ProductName     string
	Website         string
	OrderStatus     string
	ShipmentStatus  string
	ShippingAddress string
	Category        string // pass-through; empty unless assigned

	OrderDates             []time.Time
	ShipDates              []time.Time
	Tracking               []string
	PaymentInstrumentTypes []string

	Quantity int

	UnitPrice               currency.MicroUSD
	UnitPriceTax            currency.MicroUSD
	ShippingCharge          currency.MicroUSD
	TotalDiscounts          currency.MicroUSD
	TotalOwed               currency.MicroUSD
	ShipmentItemSubtotal    currency.MicroUSD
	ShipmentItemSubtotalTax currency.MicroUSD

	// TaxAdjustment is added to SubtotalTax by the fractional tax repair.
	TaxAdjustment currency.MicroUSD

	// Raw holds every normalized column of the source record.
	Raw map[string]string
}

// Subtotal is quantity * unit price.
func (i *Item) Subtotal() currency.MicroUSD {
	return i.UnitPrice.Mul(int64(i.Quantity))
}

// SubtotalTax is quantity * unit tax plus any repair adjustment.
func (i *Item) SubtotalTax() currency.MicroUSD {
	return i.UnitPriceTax.Mul(int64(i.Quantity)).Add(i.TaxAdjustment)
}

// Total is the item cost before shipping and discounts.
func (i *Item) Total() currency.MicroUSD {
	return i.Subtotal().Add(i.SubtotalTax())
}

// TotalOwedByParts rebuilds TotalOwed from the item's components.
func (i *Item) TotalOwedByParts() currency.MicroUSD {
	return i.Total().Add(i.TotalDiscounts).Add(i.ShippingCharge)
}

// TaxRate returns the unit tax as a percentage of unit price, one decimal.
func (i *Item) TaxRate() float64 {
	if i.UnitPrice == 0 {
		return 0
	}
	rate := float64(i.UnitPriceTax) * 100 / float64(i.UnitPrice)
	return float64(int64(rate*10+0.5)) / 10
}

// Title returns a display title of at most about targetLength characters,
// prefixed with "Nx" when more than one unit was bought.
func (i *Item) Title(targetLength int) string {
	return TruncateTitle(printableASCII(i.ProductName), float64(targetLength), quantityPrefix(i.Quantity))
}

func (i *Item) IsCancelled() bool {
	return i.OrderStatus == StatusCancelled
}

// Clone returns a deep copy. Slices and the raw map are never shared.
func (i *Item) Clone() *Item {
	c := *i
	c.OrderDates = append([]time.Time(nil), i.OrderDates...)
	c.ShipDates = append([]time.Time(nil), i.ShipDates...)
	c.Tracking = append([]string(nil), i.Tracking...)
	c.PaymentInstrumentTypes = append([]string(nil), i.PaymentInstrumentTypes...)
	if i.Raw != nil {
		c.Raw = make(map[string]string, len(i.Raw))
		for k, v := range i.Raw {
			c.Raw[k] = v
		}
	}
	return &c
}

// FirstShipDate returns the first listed ship date, if any.
func (i *Item) FirstShipDate() (time.Time, bool) {
	if len(i.ShipDates) == 0 {
		return time.Time{}, false
	}
	return i.ShipDates[0], true
}

func (i *Item) String() string {
	return fmt.Sprintf("%d of Item: Order ID %s Status %s Ship Status %s Unit Price %s Unit Tax %s Total Owed %s Shipping %s Discounts %s %s",
		i.Quantity, i.OrderID, i.OrderStatus, i.ShipmentStatus,
		i.UnitPrice, i.UnitPriceTax, i.TotalOwed, i.ShippingCharge, i.TotalDiscounts,
		i.ProductName)
}

// SumTotals adds Total() over items.
func SumTotals(items []*Item) currency.MicroUSD {
	var sum currency.MicroUSD
	for _, i := range items {
		sum += i.Total()
	}
	return sum
}
