package amazon

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

var orderHistoryCSV = regexp.MustCompile(`^Retail.OrderHistory.\d+/Retail.OrderHistory.\d+.csv`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoOrderHistory is returned for an export without order-history files.
var ErrNoOrderHistory = errors.New("cannot find any order history data in the amazon export")

// IsOrderHistoryCSV reports whether a zip entry holds order history.
func IsOrderHistoryCSV(name string) bool {
	return orderHistoryCSV.MatchString(name)
}

// ReadCSV parses an order-history CSV. Records that fail to bind are
// returned in ParseErrors; err is only set when the file itself is unreadable.
func ReadCSV(r io.Reader, progress providers.Progress) ([]*order.Item, order.ParseErrors, error) {
	if progress == nil {
		progress = providers.NoProgress{}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = NormalizeHeader(h)
	}

	var (
		items     []*order.Item
		parseErrs order.ParseErrors
	)
	progress.Start("Parsing Amazon Items", len(rows)-1)
	for n, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				record[h] = row[i]
			}
		}
		item, err := ParseRecord(record, n+1)
		progress.Increment()
		if err != nil {
			var pe *order.ParseError
			if errors.As(err, &pe) {
				parseErrs = append(parseErrs, pe)
				continue
			}
			return nil, nil, err
		}
		items = append(items, item)
	}
	progress.Finish()

	return items, parseErrs, nil
}

// ReadZip parses every order-history CSV inside an Amazon data export.
func ReadZip(r io.ReaderAt, size int64, progress providers.Progress) ([]*order.Item, order.ParseErrors, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open export zip: %w", err)
	}

	var (
		items     []*order.Item
		parseErrs order.ParseErrors
		found     bool
	)
	for _, f := range zr.File {
		if !IsOrderHistoryCSV(f.Name) {
			continue
		}
		found = true

		rc, err := f.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		fileItems, fileErrs, err := ReadCSV(rc, progress)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		items = append(items, fileItems...)
		parseErrs = append(parseErrs, fileErrs...)
	}
	if !found {
		return nil, nil, ErrNoOrderHistory
	}
	return items, parseErrs, nil
}
