package order

import "fmt"

// GroupByKey partitions items into charges keyed by key. Charges come out in
// the order their key was first seen, so grouping is deterministic.
func GroupByKey(items []*Item, key func(*Item) string) []*Charge {
	index := make(map[string]int)
	var charges []*Charge
	for _, item := range items {
		k := key(item)
		idx, ok := index[k]
		if !ok {
			idx = len(charges)
			index[k] = idx
			charges = append(charges, &Charge{})
		}
		charges[idx].Items = append(charges[idx].Items, item)
	}
	return charges
}

// GroupByOrderID returns one charge per order id.
func GroupByOrderID(items []*Item) []*Charge {
	return GroupByKey(items, func(i *Item) string { return i.OrderID })
}

// Singles returns one charge per item.
func Singles(items []*Item) []*Charge {
	charges := make([]*Charge, 0, len(items))
	for _, i := range items {
		charges = append(charges, NewCharge(i))
	}
	return charges
}

// GroupByShipment groups items that were billed as one shipment. Items of
// an order that share a shipment subtotal and subtotal tax are candidates;
// they become a single charge only when the shipment figures add up to the
// items' total owed. Otherwise each item is its own charge.
func GroupByShipment(items []*Item) []*Charge {
	groups := GroupByKey(items, func(i *Item) string {
		return fmt.Sprintf("%s|%d|%d", i.OrderID, i.ShipmentItemSubtotal, i.ShipmentItemSubtotalTax)
	})

	var charges []*Charge
	for _, g := range groups {
		if len(g.Items) == 1 || shipmentAddsUp(g.Items) {
			charges = append(charges, g)
			continue
		}
		charges = append(charges, Singles(g.Items)...)
	}
	return charges
}

func shipmentAddsUp(items []*Item) bool {
	c := &Charge{Items: items}
	byShipment := items[0].ShipmentItemSubtotal.
		Add(items[0].ShipmentItemSubtotalTax).
		Add(c.TotalDiscounts()).
		Add(c.ShippingCharge())
	return byShipment.Equal(c.TotalOwed())
}
