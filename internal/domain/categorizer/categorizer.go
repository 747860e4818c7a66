// Package categorizer resolves category names to ledger category ids and
// predicts categories from the user's own tagging history.
//
// Categories are never inferred from free text: a prediction is only ever
// the category the user previously gave the same item.
//
// Example usage:
//
//	c := categorizer.NewCategorizer(categories, categorizer.NewMemoryCache())
//	c.Learn(transactions, []string{"amazon.com: "})
//	changed := c.Apply(splits)
package categorizer

import (
	"strings"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/splitter"
)

// Cache interface for item name to category name mappings
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string)
}

// Categorizer maps category names to ids and applies learned categories.
type Categorizer struct {
	byName map[string]ledger.Category
	cache  Cache
}

// NewCategorizer creates a categorizer over the ledger's categories.
func NewCategorizer(categories []ledger.Category, cache Cache) *Categorizer {
	byName := make(map[string]ledger.Category, len(categories))
	for _, cat := range categories {
		key := strings.ToLower(cat.Name)
		if _, dup := byName[key]; !dup {
			byName[key] = cat
		}
	}
	return &Categorizer{byName: byName, cache: cache}
}

// Category looks a category up by name, ignoring case.
func (c *Categorizer) Category(name string) (ledger.Category, bool) {
	cat, ok := c.byName[strings.ToLower(name)]
	return cat, ok
}

// Learn records, for every item the user has tagged before, the category
// they used most often. Only settled debits whose description starts with
// one of prefixes count; the default category carries no signal and is
// skipped. Returns the number of items learned.
func (c *Categorizer) Learn(transactions []*ledger.Transaction, prefixes []string) int {
	lowered := make([]string, len(prefixes))
	for i, p := range prefixes {
		lowered[i] = strings.ToLower(p)
	}

	counts := make(map[string]*tally)
	var names []string
	for _, t := range transactions {
		if t.Pending || !t.IsDebit() || t.Category.Name == splitter.DefaultCategory {
			continue
		}
		title, ok := stripPrefix(t.Description(), lowered)
		if !ok || splitter.IsNonItemDescription(title) {
			continue
		}
		name := normalizeItemName(title)
		tl, seen := counts[name]
		if !seen {
			tl = newTally()
			counts[name] = tl
			names = append(names, name)
		}
		tl.add(t.Category.Name)
	}

	for _, name := range names {
		c.cache.Set(name, counts[name].mostCommon())
	}
	return len(names)
}

// Suggest returns the learned category for an item description.
func (c *Categorizer) Suggest(description string) (string, bool) {
	return c.cache.Get(normalizeItemName(description))
}

// Apply replaces split categories with learned ones and fills in category
// ids. Returns how many splits got a learned category that differs from
// the one they had.
func (c *Categorizer) Apply(splits []ledger.Split) int {
	changed := 0
	for i := range splits {
		s := &splits[i]
		if suggested, ok := c.Suggest(s.Description); ok && suggested != s.CategoryName {
			s.CategoryName = suggested
			changed++
		}
		if cat, ok := c.Category(s.CategoryName); ok {
			s.CategoryID = cat.ID
		}
	}
	return changed
}

// stripPrefix removes the first matching lowercase prefix.
func stripPrefix(description string, prefixes []string) (string, bool) {
	lower := strings.ToLower(description)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return description[len(p):], true
		}
	}
	return "", false
}

func normalizeItemName(name string) string {
	return order.RemoveLeadingQuantity(strings.ToLower(name))
}

// tally counts categories, remembering first-seen order for ties.
type tally struct {
	counts map[string]int
	order  []string
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(category string) {
	if _, ok := t.counts[category]; !ok {
		t.order = append(t.order, category)
	}
	t.counts[category]++
}

func (t *tally) mostCommon() string {
	best := ""
	for _, cat := range t.order {
		if best == "" || t.counts[cat] > t.counts[best] {
			best = cat
		}
	}
	return best
}
