package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/matcher"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/splitter"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// staticSource serves copies of fixed items.
type staticSource struct {
	items []*order.Item
	err   error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) LoadItems(context.Context) ([]*order.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*order.Item, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out, nil
}

// localNoon avoids calendar-date drift across time zones.
func localNoon(date string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" 12:00", time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func utcDate(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}

// newItem builds a reconciled single-unit item ordered on 2024-03-01 and
// shipped on 2024-03-02.
func newItem(orderID, name, price string) *order.Item {
	p := currency.MustParse(price)
	return &order.Item{
		OrderID:              orderID,
		ProductName:          name,
		Website:              "Amazon.com",
		OrderStatus:          order.StatusClosed,
		ShipmentStatus:       "Shipped",
		Quantity:             1,
		UnitPrice:            p,
		TotalOwed:            p,
		ShipmentItemSubtotal: p,
		OrderDates:           []time.Time{localNoon("2024-03-01")},
		ShipDates:            []time.Time{localNoon("2024-03-02")},
	}
}

var testCategories = []ledger.Category{
	{ID: "cat_shop", Name: "Shopping"},
	{ID: "cat_elec", Name: "Electronics"},
	{ID: "cat_ship", Name: "Shipping"},
	{ID: "cat_groc", Name: "Groceries"},
}

// newTransaction builds a settled Amazon debit posted on date.
func newTransaction(id, amount, date string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:        id,
		Amount:    currency.MustParse(amount),
		Date:      utcDate(date),
		PlaidName: "AMAZON MKTPLACE PMTS",
		Merchant:  ledger.Merchant{Name: "Amazon Marketplace"},
		Category:  ledger.Category{ID: "cat_shop", Name: "Shopping"},
	}
}

func testConfig() Config {
	return Config{
		Domains:       []string{"amazon.com"},
		Matcher:       matcher.DefaultConfig(),
		Splitter:      splitter.DefaultConfig(),
		RepairWorkers: 2,
	}
}

func testOptions() Options {
	return Options{DescriptionFilter: []string{"amazon", "amzn"}}
}

type fixture struct {
	source *staticSource
	ledger *ledger.MockClient
	repo   *storage.MockRepository
	orch   *Orchestrator
}

func newFixture(items []*order.Item, txs []*ledger.Transaction) *fixture {
	f := &fixture{
		source: &staticSource{items: items},
		ledger: ledger.NewMockClient(txs, testCategories),
		repo:   storage.NewMockRepository(),
	}
	f.orch = NewOrchestrator(f.source, f.ledger, f.repo, nil, testConfig(), slog.New(slog.DiscardHandler))
	n := 0
	f.orch.newRunID = func() string {
		n++
		return "run-" + string(rune('0'+n))
	}
	return f
}

// recordingProgress counts stage starts and increments.
type recordingProgress struct {
	labels     []string
	increments int
}

func (p *recordingProgress) Start(label string, _ int) { p.labels = append(p.labels, label) }
func (p *recordingProgress) Increment()                { p.increments++ }
func (p *recordingProgress) Finish()                   {}
