package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// Data loading for the orchestrator: order-history items in, ledger
// transactions and categories out.

// loadItems reads the order history, newest shipment first.
func (o *Orchestrator) loadItems(ctx context.Context) ([]*order.Item, error) {
	items, err := o.source.LoadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load items from %s: %w", o.source.Name(), err)
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	// Unshipped items sort first, as if shipped now.
	now := time.Now()
	shipped := func(i *order.Item) time.Time {
		if d, ok := i.FirstShipDate(); ok {
			return d
		}
		return now
	}
	sort.SliceStable(items, func(a, b int) bool {
		return shipped(items[a]).After(shipped(items[b]))
	})

	o.logger.Debug("loaded items", slog.String("source", o.source.Name()), slog.Int("count", len(items)))
	return items, nil
}

// filterItems keeps closed, shipped, non-empty items ordered within the
// optional date range.
func filterItems(items []*order.Item, opts Options) []*order.Item {
	var kept []*order.Item
	for _, i := range items {
		if i.OrderStatus != order.StatusClosed {
			continue
		}
		if i.ShipmentStatus == order.ShipStatusNotShipped {
			continue
		}
		if i.Quantity <= 0 {
			continue
		}
		if !orderedWithin(i, opts.StartDate, opts.EndDate) {
			continue
		}
		kept = append(kept, i)
	}
	return kept
}

func orderedWithin(i *order.Item, start, end time.Time) bool {
	if start.IsZero() && end.IsZero() {
		return true
	}
	for _, d := range i.OrderDates {
		day := order.LocalDate(d)
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		return true
	}
	return false
}

// oldestOrderDate is the earliest calendar order date across items.
func oldestOrderDate(items []*order.Item) (time.Time, bool) {
	var oldest time.Time
	for _, i := range items {
		for _, d := range i.OrderDates {
			day := order.LocalDate(d)
			if oldest.IsZero() || day.Before(oldest) {
				oldest = day
			}
		}
	}
	return oldest, !oldest.IsZero()
}

// fetchLedger loads categories and the transactions posted since start.
func (o *Orchestrator) fetchLedger(ctx context.Context, start time.Time, opts Options) ([]ledger.Category, []*ledger.Transaction, error) {
	progress := opts.progress()

	progress.Start("Getting ledger categories", 0)
	categories, err := o.ledger.GetCategories(ctx)
	progress.Finish()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load categories: %w", err)
	}

	progress.Start("Getting ledger transactions", 0)
	transactions, err := o.ledger.GetTransactions(ctx, ledger.TransactionQuery{
		StartDate:  start,
		AccountIDs: opts.AccountIDs,
	})
	progress.Finish()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	o.logger.Debug("fetched ledger data",
		slog.Int("categories", len(categories)),
		slog.Int("transactions", len(transactions)),
		slog.String("since", start.Format(ledger.DateLayout)))
	return categories, transactions, nil
}

// filterTransactions keeps settled transactions whose description mentions
// one of the filter strings, optionally limited to some categories.
func filterTransactions(transactions []*ledger.Transaction, opts Options, stats Stats) []*ledger.Transaction {
	sorted := append([]*ledger.Transaction(nil), transactions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	stats[StatTrans] = len(sorted)

	filters := lowerAll(opts.DescriptionFilter)
	var described []*ledger.Transaction
	for _, t := range sorted {
		if mentionsAny(descriptionsOf(t, opts.IncludeUserDescription), filters) {
			described = append(described, t)
		}
	}
	stats[StatAmazonInDesc] = len(described)

	var settled []*ledger.Transaction
	for _, t := range described {
		if !t.Pending {
			settled = append(settled, t)
		}
	}
	stats[StatPending] = len(described) - len(settled)

	if len(opts.CategoriesFilter) == 0 {
		return settled
	}
	allowed := make(map[string]bool)
	for _, c := range lowerAll(opts.CategoriesFilter) {
		allowed[c] = true
	}
	var kept []*ledger.Transaction
	for _, t := range settled {
		if allowed[strings.ToLower(t.Category.Name)] {
			kept = append(kept, t)
		}
	}
	return kept
}

// descriptionsOf returns the lowercased descriptions to search: the
// institution's original text, plus the current merchant name when asked.
// Manually added transactions only have the merchant name.
func descriptionsOf(t *ledger.Transaction, includeUser bool) []string {
	if t.PlaidName == "" {
		return []string{strings.ToLower(t.Description())}
	}
	names := []string{strings.ToLower(t.PlaidName)}
	if includeUser {
		names = append(names, strings.ToLower(t.Description()))
	}
	return names
}

func mentionsAny(names, filters []string) bool {
	for _, f := range filters {
		for _, n := range names {
			if strings.Contains(n, f) {
				return true
			}
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (opts Options) progress() providers.Progress {
	if opts.Progress == nil {
		return providers.NoProgress{}
	}
	return opts.Progress
}
