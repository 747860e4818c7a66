package amazon

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const csvHeader = `"Website","Order ID","Order Date","Unit Price","Unit Price Tax","Shipping Charge","Total Discounts","Total Owed","Shipment Item Subtotal","Shipment Item Subtotal Tax","ASIN","Quantity","Payment Instrument Type","Order Status","Shipment Status","Ship Date","Carrier Name & Tracking Number","Product Name"`

func csvRow(orderID, price, qty, name string) string {
	return strings.Join([]string{
		`"Amazon.com"`, `"` + orderID + `"`, `"2024-03-01T10:00:00Z"`,
		`"` + price + `"`, `"0"`, `"0"`, `"0"`, `"` + price + `"`,
		`"` + price + `"`, `"0"`, `"B000TEST"`, `"` + qty + `"`,
		`"Visa - 1234"`, `"Closed"`, `"Shipped"`, `"2024-03-02T10:00:00Z"`,
		`"UPS(1Z1)"`, `"` + name + `"`,
	}, ",")
}

func csvFile(rows ...string) string {
	return csvHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

// zipBytes builds an in-memory export archive from name -> content.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type countingProgress struct {
	label    string
	total    int
	done     int
	finished int
}

func (p *countingProgress) Start(label string, total int) {
	p.label = label
	p.total = total
}
func (p *countingProgress) Increment() { p.done++ }
func (p *countingProgress) Finish()    { p.finished++ }
