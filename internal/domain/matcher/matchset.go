package matcher

import "sync"

// matchSet records which charges and transactions have been matched. A
// claim succeeds only if none of its members were claimed before, which
// keeps every match disjoint.
type matchSet struct {
	mu           sync.Mutex
	charges      map[int]bool
	transactions map[int]bool
}

func newMatchSet() *matchSet {
	return &matchSet{
		charges:      make(map[int]bool),
		transactions: make(map[int]bool),
	}
}

func (s *matchSet) claim(tx int, charges ...int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transactions[tx] {
		return false
	}
	for _, c := range charges {
		if s.charges[c] {
			return false
		}
	}
	s.transactions[tx] = true
	for _, c := range charges {
		s.charges[c] = true
	}
	return true
}

func (s *matchSet) chargeClaimed(c int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charges[c]
}

func (s *matchSet) transactionClaimed(tx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions[tx]
}
