// Package allocator distributes an exact amount across weighted parts.
//
// The pro-rata allocator splits a total across items proportionally to their
// weights using integer micro-dollar arithmetic, so the allocations always
// sum to the total exactly:
//
//	share = total * weight / sum(weights)
//
// Whatever integer division leaves over goes to the heaviest item.
//
// Example usage:
//
//	result, err := allocator.Allocate([]allocator.Item{
//		{Name: "Widget", Weight: 3},
//		{Name: "Gadget", Weight: 1},
//	}, currency.MustParse("0.03"))
package allocator

import (
	"errors"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

// Item represents a part to allocate to.
type Item struct {
	Name   string
	Weight int64
}

// Allocation represents the share assigned to a single item.
type Allocation struct {
	Name   string
	Weight int64
	Amount currency.MicroUSD
}

// Result contains the allocation results.
type Result struct {
	Allocations    []Allocation
	TotalAllocated currency.MicroUSD
}

// Allocate distributes total across items proportionally to their weights.
// Negative totals are allocated by sign. Returns an error if items is empty,
// a weight is negative, or all weights are zero while total is not.
func Allocate(items []Item, total currency.MicroUSD) (*Result, error) {
	if len(items) == 0 {
		return nil, errors.New("no items to allocate")
	}

	var totalWeight int64
	maxIdx := 0
	for i, item := range items {
		if item.Weight < 0 {
			return nil, errors.New("item weight cannot be negative")
		}
		totalWeight += item.Weight
		if item.Weight > items[maxIdx].Weight {
			maxIdx = i
		}
	}

	allocations := make([]Allocation, len(items))
	for i, item := range items {
		allocations[i] = Allocation{Name: item.Name, Weight: item.Weight}
	}

	if totalWeight == 0 {
		if total != 0 {
			return nil, errors.New("cannot allocate a nonzero total across zero weights")
		}
		return &Result{Allocations: allocations}, nil
	}

	sign := currency.MicroUSD(1)
	abs := total
	if total < 0 {
		sign, abs = -1, -total
	}

	var allocated currency.MicroUSD
	for i, item := range items {
		share := currency.MicroUSD(int64(abs) * item.Weight / totalWeight)
		allocations[i].Amount = share
		allocated += share
	}

	// Integer division only ever under-allocates.
	allocations[maxIdx].Amount += abs - allocated

	if sign < 0 {
		for i := range allocations {
			allocations[i].Amount = -allocations[i].Amount
		}
	}

	return &Result{
		Allocations:    allocations,
		TotalAllocated: total,
	}, nil
}
