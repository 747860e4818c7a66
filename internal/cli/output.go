package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	appsync "github.com/eshaffer321/monarch-amazon-tagger/internal/application/sync"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/splitter"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, source string, dryRun bool) {
	mode := successStyle.Render("PRODUCTION")
	if dryRun {
		mode = warningStyle.Render("DRY-RUN")
	}
	fmt.Fprintf(w, "%s: ledger=%s (%s mode)\n\n", titleStyle.Render("amazon-tagger"), source, mode)
}

// PrintAmazonStats summarizes the order history that was loaded.
func PrintAmazonStats(w io.Writer, items []*order.Item, charges []*order.Charge, anchor order.Anchor) {
	fmt.Fprintln(w, headerStyle.Render("Amazon Stats"))
	if len(items) == 0 || len(charges) == 0 {
		fmt.Fprintln(w, "  There were no Amazon charges/items!")
		fmt.Fprintln(w)
		return
	}

	orders := make(map[string]bool)
	quantity := 0
	for _, i := range items {
		orders[i.OrderID] = true
		quantity += i.Quantity
	}
	fmt.Fprintf(w, "  %d total Amazon orders\n  %d payment charges\n  %d total items ordered\n",
		len(orders), len(charges), quantity)

	var first, last string
	var spend, minOwed, maxOwed currency.MicroUSD
	for n, c := range charges {
		if date, ok := c.TransactDate(anchor); ok {
			d := date.Format(ledger.DateLayout)
			if first == "" || d < first {
				first = d
			}
			if d > last {
				last = d
			}
		}
		owed := c.TotalOwed()
		spend = spend.Add(owed)
		if n == 0 || owed < minOwed {
			minOwed = owed
		}
		if n == 0 || owed > maxOwed {
			maxOwed = owed
		}
	}
	if first != "" {
		fmt.Fprintf(w, "  Charges ranging from %s to %s\n", first, last)
	}
	fmt.Fprintf(w, "  %s total spend\n", spend)
	fmt.Fprintf(w, "  %s avg order total (range: %s - %s)\n",
		spend.Div(int64(len(orders))), minOwed, maxOwed)

	itemTotals := order.SumTotals(items)
	fmt.Fprintf(w, "  %s avg item price\n\n", itemTotals.Div(int64(len(items))))
}

var statLines = []struct {
	label string
	stat  string
}{
	{"Ledger transactions", appsync.StatTrans},
	{"Transactions w/ \"Amazon\" in description", appsync.StatAmazonInDesc},
	{"Transactions ignored: is pending", appsync.StatPending},
	{"Charges matched w/ transactions", appsync.StatOrderMatch},
	{"Charges unmatched", appsync.StatOrderUnmatch},
	{"Transactions matched w/ charges", appsync.StatTransMatch},
	{"Transactions unmatched", appsync.StatTransUnmatch},
	{"Charges skipped: not shipped", appsync.StatSkippedUnshipped},
	{"Charges skipped: gift card used", appsync.StatSkippedGiftCard},
	{"Order fix-up: incorrect tax itemization", appsync.StatItemizedTax},
	{"Order fix-up: remove erroneous shipping", appsync.StatShippingError},
	{"Order fix-up: has a misc charge (e.g. gift wrap)", appsync.StatMiscCharge},
	{"Transactions ignored: already tagged & up to date", appsync.StatAlreadyUpToDate},
	{"Transactions ignored: already applied", appsync.StatAlreadyApplied},
	{"Transactions ignored: ignore retags", appsync.StatNoRetag},
	{"Transactions ignored: user skipped retag", appsync.StatUserSkippedRetag},
	{"Transactions ignored: credits", appsync.StatSkippedCredit},
	{"Transactions ignored: invalid charge", appsync.StatInvalidCharge},
	{"Transactions with personalized categories", appsync.StatPersonalCategory},
	{"Transactions to be retagged", appsync.StatRetag},
	{"Transactions to be newly tagged", appsync.StatNewTag},
}

// PrintProcessingStats prints the run's stat counters in a fixed order.
func PrintProcessingStats(w io.Writer, result *appsync.Result) {
	var b strings.Builder
	for _, line := range statLines {
		fmt.Fprintf(&b, "%-52s %d\n", line.label+":", result.Stats[line.stat])
	}
	if !result.EarliestUnmatched.IsZero() {
		fmt.Fprintf(&b, "Unmatched transactions from %s to %s\n",
			result.EarliestUnmatched.Format(ledger.DateLayout),
			result.LatestUnmatched.Format(ledger.DateLayout))
	}
	if n := result.Stats[appsync.StatBudgetExceeded]; n > 0 {
		fmt.Fprintf(&b, "%s\n", warningStyle.Render(fmt.Sprintf("Combination search gave up %d time(s)", n)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	fmt.Fprintln(w)
}

const unmatchedTitleLength = 100

// PrintUnmatched lists charges no transaction matched, one entry per order.
func PrintUnmatched(w io.Writer, charges []*order.Charge, anchor order.Anchor) {
	if len(charges) == 0 {
		return
	}
	fmt.Fprintln(w, warningStyle.Render("The following were not matched to ledger transactions:"))
	fmt.Fprintln(w)

	byOrder := make(map[string][]*order.Charge)
	var ids []string
	for _, c := range charges {
		id := c.OrderID()
		if _, seen := byOrder[id]; !seen {
			ids = append(ids, id)
		}
		byOrder[id] = append(byOrder[id], c)
	}

	for _, id := range ids {
		c := order.Merge(byOrder[id]...)
		titles := make([]string, 0, len(c.Items))
		for _, i := range c.Items {
			titles = append(titles, i.Title(unmatchedTitleLength))
		}
		fmt.Fprintln(w, splitter.SummarizeTitle(titles, c.Website()+": "))

		date := "Never shipped!"
		if d, ok := c.TransactDate(anchor); ok {
			date = d.Format(ledger.DateLayout)
		}
		fmt.Fprintf(w, "\t%s\t%s\t%s\n\n", date, c.TransactAmount(), order.InvoiceURL(id))
	}
}

// PrintDryRun prints every proposed update, oldest transaction first.
func PrintDryRun(w io.Writer, updates []*appsync.Update, ignoreCategory bool) {
	sorted := append([]*appsync.Update(nil), updates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Transaction().Date.Before(sorted[j].Transaction().Date)
	})
	for _, u := range sorted {
		PrintUpdate(w, u, ignoreCategory)
	}
}

// PrintUpdate prints one proposed update: the current transaction, then the
// edit or splits that would replace it.
func PrintUpdate(w io.Writer, u *appsync.Update, ignoreCategory bool) {
	t := u.Transaction()
	fmt.Fprintf(w, "%s\n", subtleStyle.Render("Current:"))
	fmt.Fprintf(w, "  %s \t %s \t %s \t %s\n",
		t.Date.Format(ledger.DateLayout), t.Merchant.Name, categoryColumn(t.Category.Name, ignoreCategory), t.Amount)

	label := "Proposed:"
	if u.Proposal.IsItemized() {
		label = "Proposed (itemized):"
	}
	fmt.Fprintf(w, "%s\n", successStyle.Render(label))
	for _, s := range u.Proposal.Splits {
		fmt.Fprintf(w, "  %s \t %s \t %s \t %s\n",
			t.Date.Format(ledger.DateLayout), s.Description, categoryColumn(s.CategoryName, ignoreCategory), s.Amount)
	}
	fmt.Fprintln(w)
}

func categoryColumn(name string, ignoreCategory bool) string {
	if ignoreCategory {
		return ""
	}
	return name
}

// PrintSyncSummary prints the run outcome and, when a store is available,
// all-time stats.
func PrintSyncSummary(w io.Writer, result *appsync.Result, store storage.Repository, dryRun bool) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Updates=%d Applied=%d Unmatched=%d Errors=%d\n",
		len(result.Updates), result.Applied, len(result.UnmatchedCharges), len(result.Errors))

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, err := range result.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}

	if store != nil {
		stats, _ := store.GetStats()
		if stats != nil && stats.TotalRecords > 0 {
			successRate := float64(stats.SuccessCount) / float64(stats.TotalRecords) * 100
			fmt.Fprintf(w, "\nAll-Time Stats: Transactions=%d Splits=%d Amount=$%.2f Success=%.1f%%\n",
				stats.TotalRecords,
				stats.TotalSplits,
				stats.TotalAmount,
				successRate)
		}
	}

	switch {
	case len(result.Updates) == 0:
		fmt.Fprintln(w, "\nAll done; no new tags to be updated at this point in time!")
	case !dryRun:
		fmt.Fprintf(w, "\n%s\n", successStyle.Render(fmt.Sprintf("Sent %d updates to the ledger.", result.Applied)))
	}
}
