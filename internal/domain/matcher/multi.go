package matcher

import (
	"context"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/currency"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// orderGroup is the unmatched charges of one order, in index order.
type orderGroup struct {
	orderID string
	charges []*indexedCharge
}

// combination is one candidate subset found by the search.
type combination struct {
	charges []*indexedCharge
	days    int
}

// matchCombinations runs the multi-charge pass. Each remaining transaction
// is tried against subsets of same-order charges within the date window,
// smallest subsets first. A transaction whose window holds more candidates
// than MaxCombinations for some order is skipped before any enumeration and
// returned in exceeded.
func (m *Matcher) matchCombinations(ctx context.Context, idx *index, set *matchSet) ([]*pendingMatch, []*ledger.Transaction, error) {
	groups := m.unmatchedGroups(idx, set)
	if len(groups) == 0 {
		return nil, nil, nil
	}

	var matches []*pendingMatch
	var exceeded []*ledger.Transaction
	for _, t := range idx.transactions {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if set.transactionClaimed(t.idx) {
			continue
		}

		candidates, overBudget := m.windowCandidates(groups, t, set)
		if overBudget {
			exceeded = append(exceeded, t.tx)
			continue
		}

		best := m.search(candidates, t)
		if best == nil {
			continue
		}

		chargeIdxs := make([]int, len(best.charges))
		charges := make([]*order.Charge, len(best.charges))
		var amount currency.MicroUSD
		for i, c := range best.charges {
			chargeIdxs[i] = c.idx
			charges[i] = c.charge
			amount += c.amount
		}
		if !set.claim(t.idx, chargeIdxs...) {
			continue
		}
		matches = append(matches, &pendingMatch{
			txIdx: t.idx,
			Match: &Match{
				Transaction: t.tx,
				Charges:     charges,
				DaysApart:   best.days,
				AmountDiff:  t.tx.Amount.Sub(amount),
				Combined:    true,
			},
		})
	}
	return matches, exceeded, nil
}

// unmatchedGroups groups still-unmatched charges by order id, keeping only
// orders with at least two charges, in first-seen order.
func (m *Matcher) unmatchedGroups(idx *index, set *matchSet) []*orderGroup {
	byOrder := make(map[string]*orderGroup)
	var groups []*orderGroup
	for _, c := range idx.charges {
		if set.chargeClaimed(c.idx) {
			continue
		}
		g, ok := byOrder[c.charge.OrderID()]
		if !ok {
			g = &orderGroup{orderID: c.charge.OrderID()}
			byOrder[g.orderID] = g
			groups = append(groups, g)
		}
		g.charges = append(g.charges, c)
	}

	multi := groups[:0]
	for _, g := range groups {
		if len(g.charges) >= 2 {
			multi = append(multi, g)
		}
	}
	return multi
}

// windowCandidates returns, per order, the unclaimed charges dated within
// the window around the transaction. overBudget is set when any order has
// more candidates than the combination budget.
func (m *Matcher) windowCandidates(groups []*orderGroup, t *indexedTransaction, set *matchSet) ([][]*indexedCharge, bool) {
	maxDays := m.config.MaxDaysBetweenPaymentAndShipping
	var out [][]*indexedCharge
	for _, g := range groups {
		var inWindow []*indexedCharge
		for _, c := range g.charges {
			if set.chargeClaimed(c.idx) {
				continue
			}
			days := daysBetween(c.date, t.date)
			if days < -maxDays || days > maxDays {
				continue
			}
			inWindow = append(inWindow, c)
		}
		if len(inWindow) < 2 {
			continue
		}
		if len(inWindow) > m.config.MaxCombinations {
			return nil, true
		}
		out = append(out, inWindow)
	}
	return out, false
}

// search deepens over subset size. At the first size with any hit it stops
// and returns the hit whose latest charge is closest to the transaction
// date; ties go to the earlier order and then the lexicographically first
// subset.
func (m *Matcher) search(candidates [][]*indexedCharge, t *indexedTransaction) *combination {
	maxSize := 0
	for _, c := range candidates {
		if len(c) > maxSize {
			maxSize = len(c)
		}
	}

	for k := 2; k <= maxSize; k++ {
		var best *combination
		for _, group := range candidates {
			if len(group) < k {
				continue
			}
			m.forEachSubset(group, k, t.tx.Amount, func(subset []*indexedCharge) {
				days := daysBetween(latestDate(subset), t.date)
				if best == nil || abs(days) < abs(best.days) {
					best = &combination{
						charges: append([]*indexedCharge(nil), subset...),
						days:    days,
					}
				}
			})
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// forEachSubset calls fn for every k-subset of group, in lexicographic index
// order, whose amounts sum to target within epsilon. When every amount
// shares the target's sign, branches whose partial sum already overshoots
// are pruned.
func (m *Matcher) forEachSubset(group []*indexedCharge, k int, target currency.MicroUSD, fn func([]*indexedCharge)) {
	eps := m.config.AmountEpsilon
	prune := sameSign(group, target)
	subset := make([]*indexedCharge, 0, k)

	var walk func(start int, sum currency.MicroUSD)
	walk = func(start int, sum currency.MicroUSD) {
		if len(subset) == k {
			if (sum - target).Abs() < eps {
				fn(subset)
			}
			return
		}
		for i := start; i <= len(group)-(k-len(subset)); i++ {
			next := sum + group[i].amount
			if prune && next.Abs() >= target.Abs()+eps {
				continue
			}
			subset = append(subset, group[i])
			walk(i+1, next)
			subset = subset[:len(subset)-1]
		}
	}
	walk(0, 0)
}

func sameSign(group []*indexedCharge, target currency.MicroUSD) bool {
	for _, c := range group {
		if (c.amount < 0) != (target < 0) {
			return false
		}
	}
	return true
}

func latestDate(subset []*indexedCharge) (latest time.Time) {
	for _, c := range subset {
		if c.date.After(latest) {
			latest = c.date
		}
	}
	return latest
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
