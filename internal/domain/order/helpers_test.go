package order

import (
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

func usd(s string) currency.MicroUSD {
	return currency.MustParse(s)
}

// day returns noon local time on the given date.
func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s+" 12:00", time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

// utcDay is the calendar date form returned by TransactDate.
func utcDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// newItem builds a reconciled single-quantity item.
func newItem(orderID, name, price, tax string) *Item {
	p, t := usd(price), usd(tax)
	return &Item{
		OrderID:                 orderID,
		ASIN:                    "B0" + name,
		ProductName:             name,
		OrderStatus:             StatusClosed,
		ShipmentStatus:          "Shipped",
		Quantity:                1,
		UnitPrice:               p,
		UnitPriceTax:            t,
		TotalOwed:               p.Add(t),
		ShipmentItemSubtotal:    p,
		ShipmentItemSubtotalTax: t,
		OrderDates:              []time.Time{day("2024-03-01")},
		ShipDates:               []time.Time{day("2024-03-02")},
	}
}
