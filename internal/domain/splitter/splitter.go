// Package splitter turns a matched charge into proposed ledger edits.
//
// A charge is either itemized (one split per item, plus synthetic
// shipping/fee/promotion splits) or summarized into a single edit whose
// notes list every item.
//
// Example usage:
//
//	g := splitter.NewGenerator(splitter.DefaultConfig(), logger)
//	proposal := g.Propose(charge, transaction, "Amazon.com: ")
package splitter

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// Category and description names used by synthetic splits.
const (
	DefaultCategory          = "Shopping"
	ShippingCategory         = "Shipping"
	ShippingDescription      = "Shipping"
	PromotionDescription     = "Promotion(s)"
	TaxAdjustmentDescription = "Tax adjustment"

	itemTitleLength    = 88
	summaryTitleLength = 100
)

// nonItemDescriptions are splits that do not represent a purchased item.
var nonItemDescriptions = map[string]bool{
	order.MiscChargeName:     true,
	PromotionDescription:     true,
	ShippingDescription:      true,
	TaxAdjustmentDescription: true,
}

// IsNonItemDescription reports whether a description names a synthetic
// split rather than a product.
func IsNonItemDescription(description string) bool {
	return nonItemDescriptions[description]
}

// Config controls how proposals are shaped.
type Config struct {
	DefaultCategory  string
	SkipFreeShipping bool // Omit the shipping and promotion splits when they cancel out
	Itemize          bool // Split into one entry per item
	VerboseItemize   bool // Itemize even single-item debits
}

// DefaultConfig itemizes, keeps free-shipping splits, and uses "Shopping".
func DefaultConfig() Config {
	return Config{
		DefaultCategory: DefaultCategory,
		Itemize:         true,
	}
}

// Generator creates proposed splits from matched charges.
type Generator struct {
	config Config
	logger *slog.Logger
}

// NewGenerator creates a generator. A nil logger discards output.
func NewGenerator(config Config, logger *slog.Logger) *Generator {
	if config.DefaultCategory == "" {
		config.DefaultCategory = DefaultCategory
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{config: config, logger: logger}
}

// Splits builds one split per item, most expensive first, followed by the
// hidden fee, shipping, and promotion splits where they apply. Item splits
// take the transaction's current category.
func (g *Generator) Splits(c *order.Charge, t *ledger.Transaction) []ledger.Split {
	notes := c.Notes()
	if c.NotesTruncated() {
		g.logger.Warn("notes too long, using short form",
			"order_id", c.OrderID(),
			"length", len(c.FullNotes()),
			"max", order.MaxNotesLength)
	}

	items := append([]*order.Item(nil), c.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UnitPrice > items[j].UnitPrice
	})

	var splits []ledger.Split
	for _, item := range items {
		splits = append(splits, ledger.Split{
			Description:  item.Title(itemTitleLength),
			Amount:       item.Total().Neg(),
			CategoryName: t.Category.Name,
			Notes:        notes,
		})
	}

	if c.HasHiddenShippingFee() {
		splits = append(splits, ledger.Split{
			Description:  order.HiddenShippingFeeNote,
			Amount:       order.HiddenShippingFee.Neg(),
			CategoryName: ShippingCategory,
			Notes:        notes,
		})
	}

	shipping, discounts := c.ShippingCharge(), c.TotalDiscounts()
	freeShipping := !shipping.IsZero() && !discounts.IsZero() && discounts.Abs().Equal(shipping.Abs())
	if freeShipping && g.config.SkipFreeShipping {
		return splits
	}

	if !shipping.IsZero() {
		splits = append(splits, ledger.Split{
			Description:  ShippingDescription,
			Amount:       shipping.Neg(),
			CategoryName: ShippingCategory,
			Notes:        notes,
		})
	}

	// A promotion equal to the shipping charge is a free-shipping promo;
	// filing it under Shipping makes the two cancel out in reports.
	if !discounts.IsZero() {
		cat := g.config.DefaultCategory
		if freeShipping {
			cat = ShippingCategory
		}
		splits = append(splits, ledger.Split{
			Description:  PromotionDescription,
			Amount:       discounts.Neg(),
			CategoryName: cat,
			Notes:        notes,
		})
	}
	return splits
}

// Itemize prefixes each description and reverses the order, since the
// ledger UI lists the first split last.
func Itemize(splits []ledger.Split, prefix string) []ledger.Split {
	out := make([]ledger.Split, len(splits))
	for i, s := range splits {
		s.Description = prefix + s.Description
		out[len(splits)-1-i] = s
	}
	return out
}

// Summarize collapses splits into a single edit. The description joins the
// item titles, the notes list every split, and the category is kept only
// when there is exactly one item.
func (g *Generator) Summarize(c *order.Charge, t *ledger.Transaction, splits []ledger.Split, prefix string) ledger.Split {
	var titles, lines []string
	for _, s := range splits {
		if !IsNonItemDescription(s.Description) {
			titles = append(titles, s.Description)
		}
		lines = append(lines, " - "+s.Description)
	}

	summary := ledger.Split{
		Description:  SummarizeTitle(titles, prefix),
		Amount:       t.Amount,
		CategoryName: g.config.DefaultCategory,
		Notes:        g.summaryNotes(c, lines),
	}
	if len(titles) == 1 {
		for _, s := range splits {
			if !IsNonItemDescription(s.Description) {
				summary.CategoryName = s.CategoryName
				summary.CategoryID = s.CategoryID
				break
			}
		}
	}
	return summary
}

// summaryNotes appends the item list to the charge note. Past
// order.MaxNotesLength it drops to the short note, keeping the item list
// only while that still fits.
func (g *Generator) summaryNotes(c *order.Charge, lines []string) string {
	items := "\nItem(s):\n" + strings.Join(lines, "\n")
	if notes := c.Notes() + items; len(notes) < order.MaxNotesLength {
		return notes
	}
	g.logger.Warn("summarized notes too long, using short form",
		"order_id", c.OrderID(),
		"max", order.MaxNotesLength)
	if notes := c.ShortNotes() + items; len(notes) < order.MaxNotesLength {
		return notes
	}
	return c.ShortNotes()
}

// SummarizeTitle joins titles, truncating each so the whole fits in about
// 100 characters.
func SummarizeTitle(titles []string, prefix string) string {
	if len(titles) == 0 {
		return strings.TrimRight(prefix, " ")
	}
	n := float64(len(titles))
	each := (summaryTitleLength - float64(len(prefix)) - 2*n) / n
	truncated := make([]string, len(titles))
	for i, title := range titles {
		truncated[i] = order.TruncateTitle(title, each, "")
	}
	return prefix + strings.Join(truncated, ", ")
}

// Propose builds the full proposal for a matched transaction. Single-item
// debits are summarized unless VerboseItemize is set.
func (g *Generator) Propose(c *order.Charge, t *ledger.Transaction, prefix string) *ledger.Proposal {
	return g.Finish(c, t, g.Splits(c, t), prefix)
}

// Finish itemizes or summarizes already-built splits, so callers can adjust
// categories in between.
func (g *Generator) Finish(c *order.Charge, t *ledger.Transaction, splits []ledger.Split, prefix string) *ledger.Proposal {
	p := &ledger.Proposal{Transaction: t, OrderIDs: []string{c.OrderID()}}
	if g.shouldSummarize(c, t) {
		p.Splits = []ledger.Split{g.Summarize(c, t, splits, prefix)}
	} else {
		p.Splits = Itemize(splits, prefix)
	}
	return p
}

func (g *Generator) shouldSummarize(c *order.Charge, t *ledger.Transaction) bool {
	if !g.config.Itemize {
		return true
	}
	return t.IsDebit() && len(c.Items) == 1 && !g.config.VerboseItemize
}
