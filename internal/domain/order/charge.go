package order

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

const (
	// MaxNotesLength is the ledger's limit on transaction notes.
	MaxNotesLength = 1000

	// HiddenShippingFeeNote describes the Colorado retail delivery fee.
	HiddenShippingFeeNote = "CO Retail Delivery Fee"

	// GiftCardPaymentType marks charges partially or fully paid by gift card.
	GiftCardPaymentType = "Gift Certificate/Card"

	dateLayout = "2006-01-02"
)

// HiddenShippingFee is the Colorado retail delivery fee, which the order
// report does not itemize.
var HiddenShippingFee = currency.FromFloat(0.27)

// hiddenFeeEffective is when the Colorado fee started applying.
var hiddenFeeEffective = time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)

// Anchor selects which item date a Charge is matched against.
type Anchor int

const (
	// AnchorLatestShipDate uses the last shipment; bank posting usually lags
	// the final shipment of a multi-shipment charge.
	AnchorLatestShipDate Anchor = iota
	AnchorEarliestShipDate
	AnchorOrderDate
)

// ParseAnchor maps a config value to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest_ship_date", "latest":
		return AnchorLatestShipDate, nil
	case "earliest_ship_date", "earliest":
		return AnchorEarliestShipDate, nil
	case "order_date", "order":
		return AnchorOrderDate, nil
	}
	return AnchorLatestShipDate, fmt.Errorf("unknown match anchor %q", s)
}

func (a Anchor) String() string {
	switch a {
	case AnchorEarliestShipDate:
		return "earliest_ship_date"
	case AnchorOrderDate:
		return "order_date"
	default:
		return "latest_ship_date"
	}
}

// Charge is a set of items paid for by one card charge. All items share an
// order id.
type Charge struct {
	Items []*Item
}

// NewCharge builds a Charge over its own copy of the item slice.
func NewCharge(items ...*Item) *Charge {
	return &Charge{Items: append([]*Item(nil), items...)}
}

// Merge combines charges into one. A single charge is returned as is.
func Merge(charges ...*Charge) *Charge {
	if len(charges) == 1 {
		return charges[0]
	}
	var items []*Item
	for _, c := range charges {
		items = append(items, c.Items...)
	}
	return &Charge{Items: items}
}

// Validate checks that the charge is non-empty and single-order.
func (c *Charge) Validate() error {
	if len(c.Items) == 0 {
		return &InvariantViolation{Message: "charge has no items"}
	}
	id := c.Items[0].OrderID
	for _, i := range c.Items[1:] {
		if i.OrderID != id {
			return &InvariantViolation{
				OrderID: id,
				Message: fmt.Sprintf("mixes order ids %s and %s", id, i.OrderID),
			}
		}
	}
	return nil
}

func (c *Charge) first() *Item {
	if len(c.Items) == 0 {
		return &Item{}
	}
	return c.Items[0]
}

func (c *Charge) OrderID() string     { return c.first().OrderID }
func (c *Charge) OrderStatus() string { return c.first().OrderStatus }
func (c *Charge) ShipStatus() string  { return c.first().ShipmentStatus }
func (c *Charge) Website() string     { return c.first().Website }
func (c *Charge) ShipAddress() string { return c.first().ShippingAddress }

func (c *Charge) sum(f func(*Item) currency.MicroUSD) currency.MicroUSD {
	var total currency.MicroUSD
	for _, i := range c.Items {
		total += f(i)
	}
	return total
}

func (c *Charge) Subtotal() currency.MicroUSD {
	return c.sum((*Item).Subtotal)
}

func (c *Charge) Tax() currency.MicroUSD {
	return c.sum((*Item).SubtotalTax)
}

// Total is subtotal + tax.
func (c *Charge) Total() currency.MicroUSD {
	return c.sum((*Item).Total)
}

func (c *Charge) ShippingCharge() currency.MicroUSD {
	return c.sum(func(i *Item) currency.MicroUSD { return i.ShippingCharge })
}

func (c *Charge) TotalDiscounts() currency.MicroUSD {
	return c.sum(func(i *Item) currency.MicroUSD { return i.TotalDiscounts })
}

// TotalOwed is what the vendor reports as charged.
func (c *Charge) TotalOwed() currency.MicroUSD {
	return c.sum(func(i *Item) currency.MicroUSD { return i.TotalOwed })
}

// TotalByItems rebuilds the charged amount from itemized parts.
func (c *Charge) TotalByItems() currency.MicroUSD {
	total := c.Total().Add(c.ShippingCharge()).Add(c.TotalDiscounts())
	if c.HasHiddenShippingFee() {
		total = total.Add(HiddenShippingFee)
	}
	return total
}

func (c *Charge) TotalQuantity() int {
	qty := 0
	for _, i := range c.Items {
		qty += i.Quantity
	}
	return qty
}

// HasHiddenShippingFee reports whether the Colorado retail delivery fee
// applies: a Colorado address, taxable items, shipped on or after 2022-07-01.
func (c *Charge) HasHiddenShippingFee() bool {
	latest, ok := latest(c.ShipDates())
	return ok &&
		strings.Contains(c.ShipAddress(), " CO ") &&
		c.Tax() > 0 &&
		!latest.Before(hiddenFeeEffective)
}

// TransactAmount is the signed ledger amount this charge should appear as.
func (c *Charge) TransactAmount() currency.MicroUSD {
	if c.HasHiddenShippingFee() {
		return c.TotalOwed().Add(HiddenShippingFee).RoundToCent().Neg()
	}
	return c.TotalOwed().Neg()
}

// TransactDate returns the calendar date (in local time) the charge is
// expected to post around, as midnight UTC. ok is false when the anchor
// date is unknown, e.g. nothing has shipped.
func (c *Charge) TransactDate(anchor Anchor) (date time.Time, ok bool) {
	var t time.Time
	switch anchor {
	case AnchorEarliestShipDate:
		t, ok = earliest(c.ShipDates())
	case AnchorOrderDate:
		t, ok = latest(c.OrderDates())
	default:
		t, ok = latest(c.ShipDates())
	}
	if !ok {
		return time.Time{}, false
	}
	return LocalDate(t), true
}

// LocalDate truncates t to its calendar date in local time, returned as
// midnight UTC so dates compare independent of zone.
func LocalDate(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *Charge) OrderDates() []time.Time {
	var dates []time.Time
	for _, i := range c.Items {
		dates = append(dates, i.OrderDates...)
	}
	return dates
}

func (c *Charge) ShipDates() []time.Time {
	var dates []time.Time
	for _, i := range c.Items {
		dates = append(dates, i.ShipDates...)
	}
	return dates
}

// UniqueOrderDates returns sorted distinct calendar dates.
func (c *Charge) UniqueOrderDates() []string {
	return uniqueDates(c.OrderDates())
}

// UniqueShipDates returns sorted distinct calendar dates.
func (c *Charge) UniqueShipDates() []string {
	return uniqueDates(c.ShipDates())
}

// TrackingNumbers returns distinct tracking values in sorted order.
func (c *Charge) TrackingNumbers() []string {
	var all []string
	for _, i := range c.Items {
		all = append(all, i.Tracking...)
	}
	return uniqueStrings(all)
}

// PaymentInstrumentTypes returns distinct payment types in sorted order.
func (c *Charge) PaymentInstrumentTypes() []string {
	var all []string
	for _, i := range c.Items {
		all = append(all, i.PaymentInstrumentTypes...)
	}
	return uniqueStrings(all)
}

// UsedGiftCard reports whether a gift card paid for any part of the charge.
func (c *Charge) UsedGiftCard() bool {
	for _, p := range c.PaymentInstrumentTypes() {
		if p == GiftCardPaymentType {
			return true
		}
	}
	return false
}

// FullNotes renders the complete note, which may exceed MaxNotesLength.
func (c *Charge) FullNotes() string {
	return fmt.Sprintf("Amazon order id: %s\nOrder date: %s\nShip date: %s\nTracking: %s\nInvoice url: %s",
		c.OrderID(),
		strings.Join(c.UniqueOrderDates(), ", "),
		strings.Join(c.UniqueShipDates(), ", "),
		strings.Join(c.TrackingNumbers(), ", "),
		InvoiceURL(c.OrderID()),
	)
}

// Notes renders the transaction note, falling back to the order id and
// invoice url when the full note would hit MaxNotesLength.
func (c *Charge) Notes() string {
	note := c.FullNotes()
	if len(note) >= MaxNotesLength {
		return c.ShortNotes()
	}
	return note
}

// ShortNotes is the order id and invoice url only.
func (c *Charge) ShortNotes() string {
	return fmt.Sprintf("Amazon order id: %s\nInvoice url: %s", c.OrderID(), InvoiceURL(c.OrderID()))
}

// NotesTruncated reports whether Notes uses the short fallback.
func (c *Charge) NotesTruncated() bool {
	return len(c.FullNotes()) >= MaxNotesLength
}

// InvoiceURL returns the printable invoice page for an order.
func InvoiceURL(orderID string) string {
	return "https://www.amazon.com/gp/css/summary/print.html?ie=UTF8&orderID=" + orderID
}

func (c *Charge) String() string {
	dates := c.UniqueShipDates()
	if len(dates) == 0 {
		dates = c.UniqueOrderDates()
	}
	return fmt.Sprintf("Charge (%s): %v Total %s Total by part %s Subtotal %s Tax %s Promo %s Ship %s Items: %d",
		c.OrderID(), dates, c.TotalOwed(), c.TotalByItems(), c.Subtotal(), c.Tax(),
		c.TotalDiscounts(), c.ShippingCharge(), len(c.Items))
}

func latest(dates []time.Time) (time.Time, bool) {
	if len(dates) == 0 {
		return time.Time{}, false
	}
	max := dates[0]
	for _, d := range dates[1:] {
		if d.After(max) {
			max = d
		}
	}
	return max, true
}

func earliest(dates []time.Time) (time.Time, bool) {
	if len(dates) == 0 {
		return time.Time{}, false
	}
	min := dates[0]
	for _, d := range dates[1:] {
		if d.Before(min) {
			min = d
		}
	}
	return min, true
}

func uniqueDates(dates []time.Time) []string {
	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, d.Format(dateLayout))
	}
	return uniqueStrings(formatted)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
