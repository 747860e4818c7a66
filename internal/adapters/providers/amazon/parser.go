package amazon

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// Normalized column names of the order-history report.
const (
	colOrderID                 = "order_id"
	colASIN                    = "asin"
	colProductName             = "product_name"
	colWebsite                 = "website"
	colOrderStatus             = "order_status"
	colShipmentStatus          = "shipment_status"
	colShippingAddress         = "shipping_address"
	colOrderDate               = "order_date"
	colShipDate                = "ship_date"
	colTracking                = "tracking"
	colPaymentInstrumentType   = "payment_instrument_type"
	colQuantity                = "quantity"
	colUnitPrice               = "unit_price"
	colUnitPriceTax            = "unit_price_tax"
	colShippingCharge          = "shipping_charge"
	colTotalDiscounts          = "total_discounts"
	colTotalOwed               = "total_owed"
	colShipmentItemSubtotal    = "shipment_item_subtotal"
	colShipmentItemSubtotalTax = "shipment_item_subtotal_tax"
)

const notAvailable = "Not Available"

var renamedHeaders = map[string]string{
	"Carrier Name & Tracking Number": colTracking,
	`Website"`:                       colWebsite,
}

var headerReplacer = strings.NewReplacer(" ", "_", "/", "_", "&", "and")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
}

var errNegativeQuantity = errors.New("quantity must not be negative")

// NormalizeHeader maps a report column name to its snake_case key.
func NormalizeHeader(header string) string {
	header = strings.TrimSpace(header)
	if renamed, ok := renamedHeaders[header]; ok {
		return renamed
	}
	return headerReplacer.Replace(strings.ToLower(header))
}

// splitByAnd splits a multi-valued column on its literal " and " separator.
func splitByAnd(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, " and ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDate parses one report date. Ok is false for blank, "Not Available"
// or unrecognized values.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, notAvailable) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDates parses every " and "-separated date, dropping the ones that
// cannot be parsed.
func parseDates(value string) []time.Time {
	var dates []time.Time
	for _, part := range splitByAnd(value) {
		if t, ok := parseDate(part); ok {
			dates = append(dates, t)
		}
	}
	return dates
}

// ParseRecord binds one normalized record to an Item. Row is used only for
// error reporting.
func ParseRecord(record map[string]string, row int) (*order.Item, error) {
	item := &order.Item{
		OrderID:         strings.TrimSpace(record[colOrderID]),
		ASIN:            record[colASIN],
		ProductName:     record[colProductName],
		Website:         record[colWebsite],
		OrderStatus:     record[colOrderStatus],
		ShipmentStatus:  record[colShipmentStatus],
		ShippingAddress: record[colShippingAddress],

		OrderDates:             parseDates(record[colOrderDate]),
		ShipDates:              parseDates(record[colShipDate]),
		Tracking:               splitByAnd(record[colTracking]),
		PaymentInstrumentTypes: splitByAnd(record[colPaymentInstrumentType]),

		Raw: record,
	}

	qtyText := strings.TrimSpace(record[colQuantity])
	qty, err := strconv.Atoi(qtyText)
	if err == nil && qty < 0 {
		err = errNegativeQuantity
	}
	if err != nil {
		return nil, &order.ParseError{Row: row, Field: colQuantity, Value: qtyText, Err: err}
	}
	item.Quantity = qty

	amounts := []struct {
		field string
		dst   *currency.MicroUSD
	}{
		{colUnitPrice, &item.UnitPrice},
		{colUnitPriceTax, &item.UnitPriceTax},
		{colShippingCharge, &item.ShippingCharge},
		{colTotalDiscounts, &item.TotalDiscounts},
		{colTotalOwed, &item.TotalOwed},
		{colShipmentItemSubtotal, &item.ShipmentItemSubtotal},
		{colShipmentItemSubtotalTax, &item.ShipmentItemSubtotalTax},
	}
	for _, a := range amounts {
		raw := record[a.field]
		if strings.EqualFold(strings.TrimSpace(raw), notAvailable) {
			continue
		}
		v, err := currency.Parse(raw)
		if err != nil {
			return nil, &order.ParseError{Row: row, Field: a.field, Value: raw, Err: err}
		}
		*a.dst = v
	}

	if item.OrderID == "" {
		return nil, &order.ParseError{Row: row, Field: colOrderID, Err: fmt.Errorf("missing order id")}
	}
	return item, nil
}
