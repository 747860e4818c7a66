package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

func usd(s string) currency.MicroUSD {
	return currency.MustParse(s)
}

func charge(price, owed string) *order.Charge {
	return order.NewCharge(&order.Item{
		OrderID:   "112-1",
		Quantity:  1,
		UnitPrice: usd(price),
		TotalOwed: usd(owed),
		ShipDates: []time.Time{time.Now()},
	})
}

func TestValidateRepairedCharge_Valid(t *testing.T) {
	tx := &ledger.Transaction{ID: "tx", Amount: usd("-10.00")}

	result := ValidateRepairedCharge(charge("10.00", "10.00"), tx)

	assert.True(t, result.Valid)
	assert.Equal(t, usd("-10.00"), result.ExpectedSum)
	assert.Empty(t, result.Reason)
}

func TestValidateRepairedCharge_UnexplainedDifference(t *testing.T) {
	// Itemized parts ($6.01) never reconciled with the $10.00 charged
	tx := &ledger.Transaction{ID: "tx", Amount: usd("-10.00")}

	result := ValidateRepairedCharge(charge("6.01", "10.00"), tx)

	assert.False(t, result.Valid)
	assert.Equal(t, usd("-3.99"), result.Difference)
	assert.Contains(t, result.Reason, "exceeds itemized total")
}

func TestValidateRepairedCharge_AmountMismatch(t *testing.T) {
	tx := &ledger.Transaction{ID: "tx", Amount: usd("-9.00")}

	result := ValidateRepairedCharge(charge("10.00", "10.00"), tx)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "less than charge amount")
	assert.Contains(t, result.Reason, "short by $1.00")
}

func TestValidateSplits(t *testing.T) {
	tx := &ledger.Transaction{ID: "tx", Amount: usd("-18.00")}

	valid := ValidateSplits([]ledger.Split{
		{Amount: usd("-10.00")}, {Amount: usd("-8.00")}, {Amount: usd("-3.99")}, {Amount: usd("3.99")},
	}, tx)
	assert.True(t, valid.Valid)

	invalid := ValidateSplits([]ledger.Split{{Amount: usd("-10.00")}}, tx)
	assert.False(t, invalid.Valid)
	assert.Error(t, invalid)
}
