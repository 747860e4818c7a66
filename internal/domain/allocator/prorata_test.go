package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
)

func sumAllocations(r *Result) currency.MicroUSD {
	var sum currency.MicroUSD
	for _, a := range r.Allocations {
		sum += a.Amount
	}
	return sum
}

func TestAllocate_BasicProRata(t *testing.T) {
	// 3 items weighted 5:3:2 sharing $1.00
	items := []Item{
		{Name: "Widget A", Weight: 5},
		{Name: "Widget B", Weight: 3},
		{Name: "Widget C", Weight: 2},
	}

	result, err := Allocate(items, currency.MustParse("1.00"))
	require.NoError(t, err)

	assert.Equal(t, currency.MustParse("0.50"), result.Allocations[0].Amount)
	assert.Equal(t, currency.MustParse("0.30"), result.Allocations[1].Amount)
	assert.Equal(t, currency.MustParse("0.20"), result.Allocations[2].Amount)
	assert.Equal(t, currency.MustParse("1.00"), result.TotalAllocated)
}

func TestAllocate_RemainderGoesToLargestWeight(t *testing.T) {
	items := []Item{
		{Name: "Item A", Weight: 1},
		{Name: "Item B", Weight: 2},
	}

	// 10 micros cannot split evenly 1:2
	result, err := Allocate(items, currency.MicroUSD(10))
	require.NoError(t, err)

	assert.Equal(t, currency.MicroUSD(3), result.Allocations[0].Amount)
	assert.Equal(t, currency.MicroUSD(7), result.Allocations[1].Amount)
	assert.Equal(t, currency.MicroUSD(10), sumAllocations(result))
}

func TestAllocate_ExactlyConservesTotal(t *testing.T) {
	tests := []struct {
		name    string
		weights []int64
		total   currency.MicroUSD
	}{
		{"thirds", []int64{1, 1, 1}, currency.MustParse("0.01")},
		{"uneven", []int64{7, 3, 11, 2}, currency.MustParse("0.05")},
		{"large", []int64{999, 1499, 500}, currency.MustParse("2850.00")},
		{"negative", []int64{2, 1}, currency.MustParse("-0.02")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]Item, len(tt.weights))
			for i, w := range tt.weights {
				items[i] = Item{Name: "item", Weight: w}
			}

			result, err := Allocate(items, tt.total)
			require.NoError(t, err)

			assert.Equal(t, tt.total, sumAllocations(result))
			assert.Equal(t, tt.total, result.TotalAllocated)
		})
	}
}

func TestAllocate_NegativeTotalKeepsSign(t *testing.T) {
	items := []Item{
		{Name: "Item A", Weight: 1},
		{Name: "Item B", Weight: 1},
	}

	result, err := Allocate(items, currency.MicroUSD(-20))
	require.NoError(t, err)

	assert.Equal(t, currency.MicroUSD(-10), result.Allocations[0].Amount)
	assert.Equal(t, currency.MicroUSD(-10), result.Allocations[1].Amount)
}

func TestAllocate_ZeroWeightItem(t *testing.T) {
	items := []Item{
		{Name: "Paid Item", Weight: 4},
		{Name: "Free Gift", Weight: 0},
	}

	result, err := Allocate(items, currency.MustParse("0.04"))
	require.NoError(t, err)

	assert.Equal(t, currency.MustParse("0.04"), result.Allocations[0].Amount)
	assert.Equal(t, currency.Zero, result.Allocations[1].Amount)
}

func TestAllocate_AllZeroWeights(t *testing.T) {
	items := []Item{
		{Name: "Free A", Weight: 0},
		{Name: "Free B", Weight: 0},
	}

	result, err := Allocate(items, currency.Zero)
	require.NoError(t, err)
	assert.Equal(t, currency.Zero, result.TotalAllocated)

	_, err = Allocate(items, currency.Cent)
	assert.Error(t, err)
}

func TestAllocate_ErrorCases(t *testing.T) {
	t.Run("empty items", func(t *testing.T) {
		_, err := Allocate([]Item{}, currency.Cent)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no items")
	})

	t.Run("negative weight", func(t *testing.T) {
		items := []Item{{Name: "Item", Weight: -1}}
		_, err := Allocate(items, currency.Cent)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})
}
