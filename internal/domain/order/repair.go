package order

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/allocator"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

// Misc charge item attributes.
const (
	MiscChargeName     = "Misc Charge (Gift wrap, etc)"
	MiscChargeCategory = "Shopping"
)

// Repair heuristic names, as reported by RepairReport.Names.
const (
	RepairMiscCharge    = "misc_charge"
	RepairShippingError = "rm_shipping_error"
	RepairFractionalTax = "adjust_itemized_tax"
)

// RepairReport records which heuristics changed a charge.
type RepairReport struct {
	MiscCharge    bool
	ShippingError bool
	FractionalTax bool
}

// Any reports whether any heuristic fired.
func (r RepairReport) Any() bool {
	return r.MiscCharge || r.ShippingError || r.FractionalTax
}

// Names lists the heuristics that fired, in application order.
func (r RepairReport) Names() []string {
	var names []string
	if r.MiscCharge {
		names = append(names, RepairMiscCharge)
	}
	if r.ShippingError {
		names = append(names, RepairShippingError)
	}
	if r.FractionalTax {
		names = append(names, RepairFractionalTax)
	}
	return names
}

// Merge ORs two reports.
func (r RepairReport) Merge(o RepairReport) RepairReport {
	return RepairReport{
		MiscCharge:    r.MiscCharge || o.MiscCharge,
		ShippingError: r.ShippingError || o.ShippingError,
		FractionalTax: r.FractionalTax || o.FractionalTax,
	}
}

// Repair reconciles the charge's itemized parts with its total owed. The
// heuristics run in a fixed order and each only fires on its own residual
// pattern. Items are adjusted in place. Re-running on a repaired charge is a
// no-op.
func Repair(c *Charge) (RepairReport, error) {
	before := c.TotalOwed()

	report := RepairReport{
		MiscCharge:    c.AttributeMiscCharge(),
		ShippingError: c.AttributeShippingError(),
	}
	fractional, err := c.AttributeFractionalTax()
	if err != nil {
		return report, err
	}
	report.FractionalTax = fractional

	if after := c.TotalOwed(); after != before {
		return report, &InvariantViolation{
			OrderID: c.OrderID(),
			Message: fmt.Sprintf("repair changed total owed from %s to %s", before, after),
		}
	}
	return report, nil
}

// RepairAll repairs charges concurrently. Charges must not share items.
// Reports are returned in input order.
func RepairAll(ctx context.Context, charges []*Charge, workers int) ([]RepairReport, error) {
	if workers < 1 {
		workers = 1
	}
	reports := make([]RepairReport, len(charges))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, c := range charges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := Repair(c)
			reports[idx] = report
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

// AttributeMiscCharge moves an unexplained excess in an item's total owed
// (gift wrap and the like) onto a synthetic misc charge item.
func (c *Charge) AttributeMiscCharge() bool {
	if len(c.Items) == 0 {
		return false
	}
	diff := c.TotalOwed().Sub(c.TotalByItems())
	if diff < currency.Epsilon {
		return false
	}

	template := c.Items[0]
	var extra []*Item
	for _, i := range c.Items {
		itemDiff := i.TotalOwed.Sub(i.TotalOwedByParts())
		if itemDiff <= currency.Epsilon {
			continue
		}
		i.TotalOwed = i.TotalOwed.Sub(itemDiff)
		extra = append(extra, newMiscCharge(template, itemDiff))
	}
	c.Items = append(c.Items, extra...)
	return len(extra) > 0
}

func newMiscCharge(template *Item, amount currency.MicroUSD) *Item {
	misc := template.Clone()
	misc.ProductName = MiscChargeName
	misc.Category = MiscChargeCategory
	misc.Quantity = 1
	misc.ShippingCharge = 0
	misc.TotalDiscounts = 0
	misc.UnitPrice = amount
	misc.ShipmentItemSubtotal = amount
	misc.TotalOwed = amount
	misc.UnitPriceTax = 0
	misc.ShipmentItemSubtotalTax = 0
	misc.TaxAdjustment = 0
	return misc
}

// AttributeShippingError drops an item's shipping charge when it is exactly
// what keeps that item from reconciling.
func (c *Charge) AttributeShippingError() bool {
	if c.ShippingCharge().IsZero() {
		return false
	}
	if c.TotalByItems().Sub(c.TotalOwed()) < currency.Epsilon {
		return false
	}

	adjusted := false
	for _, i := range c.Items {
		if i.ShippingCharge.IsZero() {
			continue
		}
		if i.TotalOwedByParts().Sub(i.TotalOwed).Equal(i.ShippingCharge) {
			i.ShippingCharge = 0
			adjusted = true
		}
	}
	return adjusted
}

// AttributeFractionalTax spreads a shortfall of less than a cent per unit
// across the items' tax, weighted by quantity. Per-unit tax rounding by the
// vendor produces drift proportional to the number of units. Items that
// already add up to more than was owed are left alone.
func (c *Charge) AttributeFractionalTax() (bool, error) {
	qty := c.TotalQuantity()
	if qty < 2 {
		return false, nil
	}
	diff := c.TotalOwed().Sub(c.TotalByItems())
	if diff < currency.Epsilon || diff >= currency.Cent.Mul(int64(qty)) {
		return false, nil
	}

	parts := make([]allocator.Item, len(c.Items))
	for idx, i := range c.Items {
		parts[idx] = allocator.Item{Name: i.ASIN, Weight: int64(i.Quantity)}
	}
	result, err := allocator.Allocate(parts, diff)
	if err != nil {
		return false, fmt.Errorf("allocate tax difference for %s: %w", c.OrderID(), err)
	}
	for idx, a := range result.Allocations {
		c.Items[idx].TaxAdjustment = c.Items[idx].TaxAdjustment.Add(a.Amount)
	}
	return true, nil
}
