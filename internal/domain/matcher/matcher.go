// Package matcher pairs Amazon charges with ledger transactions.
//
// Matching runs in two passes over a fixed index:
//   - 1:1: a transaction whose amount equals a charge's amount (within
//     epsilon) and was posted 0..N days after the charge's anchor date.
//     The date-closest charge wins.
//   - Combined: charges of one order still unmatched are tried in subsets
//     of increasing size against each remaining transaction. Orders with
//     more candidates than the combination budget are skipped up front.
//
// No charge or transaction is matched twice, and results are deterministic
// for the same input.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	result, err := m.Match(ctx, charges, transactions)
//	for _, match := range result.Matches {
//		// match.Transaction paid for match.Charges
//	}
package matcher

import (
	"context"
	"sort"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// Matcher matches charges with ledger transactions
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// indexedCharge caches the values matching reads repeatedly.
type indexedCharge struct {
	idx    int
	charge *order.Charge
	date   time.Time
	amount currency.MicroUSD
}

type indexedTransaction struct {
	idx  int
	tx   *ledger.Transaction
	date time.Time
}

// index is built completely before any match attempt.
type index struct {
	charges      []*indexedCharge
	transactions []*indexedTransaction
}

// Match pairs charges with transactions. Charges with no anchor date
// (nothing shipped yet) are left out and reported as Unshipped. Finding no
// match is not an error; the only errors are invalid configuration and
// context cancellation.
func (m *Matcher) Match(ctx context.Context, charges []*order.Charge, transactions []*ledger.Transaction) (*Result, error) {
	if err := m.config.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}
	idx := m.buildIndex(charges, transactions, result)
	result.Stats.Transactions = len(idx.transactions)
	result.Stats.Charges = len(idx.charges)
	result.Stats.Unshipped = len(result.Unshipped)

	set := newMatchSet()

	singles, err := m.matchSingles(ctx, idx, set)
	if err != nil {
		return nil, err
	}
	combined, exceeded, err := m.matchCombinations(ctx, idx, set)
	if err != nil {
		return nil, err
	}

	result.Stats.SingleMatches = len(singles)
	result.Stats.CombinedMatches = len(combined)
	result.Stats.BudgetExceeded = len(exceeded)
	result.BudgetExceeded = exceeded

	matches := append(singles, combined...)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].txIdx < matches[j].txIdx
	})
	for _, pm := range matches {
		result.Matches = append(result.Matches, pm.Match)
	}

	for _, c := range idx.charges {
		if !set.chargeClaimed(c.idx) {
			result.UnmatchedCharges = append(result.UnmatchedCharges, c.charge)
		}
	}
	for _, t := range idx.transactions {
		if !set.transactionClaimed(t.idx) {
			result.UnmatchedTransactions = append(result.UnmatchedTransactions, t.tx)
		}
	}
	return result, nil
}

// pendingMatch keeps the transaction position for output ordering.
type pendingMatch struct {
	*Match
	txIdx int
}

func (m *Matcher) buildIndex(charges []*order.Charge, transactions []*ledger.Transaction, result *Result) *index {
	idx := &index{}
	for _, c := range charges {
		date, ok := c.TransactDate(m.config.Anchor)
		if !ok {
			result.Unshipped = append(result.Unshipped, c)
			continue
		}
		idx.charges = append(idx.charges, &indexedCharge{
			charge: c,
			date:   date,
			amount: c.TransactAmount(),
		})
	}
	sort.SliceStable(idx.charges, func(i, j int) bool {
		a, b := idx.charges[i], idx.charges[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.charge.OrderID() != b.charge.OrderID() {
			return a.charge.OrderID() < b.charge.OrderID()
		}
		return a.amount < b.amount
	})
	for i, c := range idx.charges {
		c.idx = i
	}

	for _, t := range transactions {
		idx.transactions = append(idx.transactions, &indexedTransaction{
			tx:   t,
			date: calendarDate(t.Date),
		})
	}
	sort.SliceStable(idx.transactions, func(i, j int) bool {
		a, b := idx.transactions[i], idx.transactions[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		return a.tx.ID < b.tx.ID
	})
	for i, t := range idx.transactions {
		t.idx = i
	}
	return idx
}

// matchSingles runs the 1:1 pass in transaction order.
func (m *Matcher) matchSingles(ctx context.Context, idx *index, set *matchSet) ([]*pendingMatch, error) {
	// Charges by amount, so each transaction only scans plausible candidates.
	sorted := append([]*indexedCharge(nil), idx.charges...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].amount < sorted[j].amount })

	var matches []*pendingMatch
	for _, t := range idx.transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var best *indexedCharge
		bestDays := 0
		lo := sort.Search(len(sorted), func(i int) bool {
			return sorted[i].amount > t.tx.Amount-m.config.AmountEpsilon
		})
		for _, c := range sorted[lo:] {
			if c.amount >= t.tx.Amount+m.config.AmountEpsilon {
				break
			}
			if set.chargeClaimed(c.idx) {
				continue
			}
			days := daysBetween(c.date, t.date)
			if days < 0 || days > m.config.MaxDaysBetweenPaymentAndShipping {
				continue
			}
			if best == nil || days < bestDays || (days == bestDays && closerTie(c, best)) {
				best, bestDays = c, days
			}
		}

		if best == nil || !set.claim(t.idx, best.idx) {
			continue
		}
		matches = append(matches, &pendingMatch{
			txIdx: t.idx,
			Match: &Match{
				Transaction: t.tx,
				Charges:     []*order.Charge{best.charge},
				DaysApart:   bestDays,
				AmountDiff:  t.tx.Amount.Sub(best.amount),
			},
		})
	}
	return matches, nil
}

// closerTie breaks equal-distance ties by order id, then index position.
func closerTie(a, b *indexedCharge) bool {
	if a.charge.OrderID() != b.charge.OrderID() {
		return a.charge.OrderID() < b.charge.OrderID()
	}
	return a.idx < b.idx
}

// calendarDate drops the time of day, keeping the date as written.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns to - from in whole calendar days.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
