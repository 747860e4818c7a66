package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu      sync.Mutex
	records map[string]*MatchRecord
	runs    map[string]*SyncRun
	nextID  int64

	// Hooks for test assertions
	SaveRecordCalls    int
	LastSavedRecord    *MatchRecord
	IsAppliedCalled    bool
	StartSyncRunCalled bool
	CompletedRuns      []string

	// Error injection for testing error paths
	SaveRecordErr      error
	StartSyncRunErr    error
	CompleteSyncRunErr error
	ListSyncRunsErr    error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		records: make(map[string]*MatchRecord),
		runs:    make(map[string]*SyncRun),
		nextID:  1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveRecord saves a copy of the record to the in-memory map
func (m *MockRepository) SaveRecord(record *MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveRecordCalls++
	m.LastSavedRecord = record
	if m.SaveRecordErr != nil {
		return m.SaveRecordErr
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}
	record.ID = m.nextID
	m.nextID++
	copied := *record
	m.records[record.TransactionID] = &copied
	return nil
}

// GetRecord retrieves a record from the in-memory map
func (m *MockRepository) GetRecord(transactionID string) (*MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[transactionID]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", transactionID, ErrNotFound)
	}
	copied := *record
	return &copied, nil
}

// IsApplied checks if a record exists with success status and not dry-run
func (m *MockRepository) IsApplied(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IsAppliedCalled = true
	record, ok := m.records[transactionID]
	return ok && record.IsApplied()
}

// ListRecords filters and pages the in-memory records, newest first.
func (m *MockRepository) ListRecords(filters RecordFilters) (*RecordListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cutoff time.Time
	if filters.DaysBack > 0 {
		cutoff = time.Now().AddDate(0, 0, -filters.DaysBack)
	}

	var matched []*MatchRecord
	for _, r := range m.records {
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		if filters.RunID != "" && r.RunID != filters.RunID {
			continue
		}
		if !cutoff.IsZero() && r.ProcessedAt.Before(cutoff) {
			continue
		}
		copied := *r
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ProcessedAt.Equal(matched[j].ProcessedAt) {
			return matched[i].ProcessedAt.After(matched[j].ProcessedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	result := &RecordListResult{
		Records:    []*MatchRecord{},
		TotalCount: len(matched),
		Limit:      filters.limit(),
		Offset:     filters.Offset,
	}
	if filters.Offset < len(matched) {
		end := min(filters.Offset+result.Limit, len(matched))
		result.Records = matched[filters.Offset:end]
	}
	return result, nil
}

// GetStats computes statistics from the in-memory records
func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{TotalRuns: len(m.runs)}
	for _, r := range m.records {
		stats.TotalRecords++
		stats.TotalSplits += r.SplitCount
		if r.TransactionAmount < 0 {
			stats.TotalAmount -= r.TransactionAmount
		} else {
			stats.TotalAmount += r.TransactionAmount
		}

		switch r.Status {
		case StatusSuccess:
			stats.SuccessCount++
		case StatusFailed:
			stats.FailedCount++
		case StatusSkipped:
			stats.SkippedCount++
		case StatusUpToDate:
			stats.UpToDate++
		}
		if r.DryRun {
			stats.DryRunCount++
		}
	}
	return stats, nil
}

// StartSyncRun creates a running sync run
func (m *MockRepository) StartSyncRun(runID string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartSyncRunCalled = true
	if m.StartSyncRunErr != nil {
		return m.StartSyncRunErr
	}
	m.runs[runID] = &SyncRun{
		ID:        runID,
		StartedAt: time.Now(),
		DryRun:    dryRun,
		Status:    RunStatusRunning,
	}
	return nil
}

// CompleteSyncRun marks a sync run as complete
func (m *MockRepository) CompleteSyncRun(runID string, summary RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CompleteSyncRunErr != nil {
		return m.CompleteSyncRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("sync run %s: %w", runID, ErrNotFound)
	}

	now := time.Now()
	run.CompletedAt = &now
	run.ItemsFound = summary.ItemsFound
	run.ChargesFound = summary.ChargesFound
	run.TransactionsMatched = summary.TransactionsMatched
	run.UpdatesProposed = summary.UpdatesProposed
	run.UpdatesApplied = summary.UpdatesApplied
	run.Errors = summary.Errors
	run.Stats = summary.Stats
	run.Status = summary.status()
	m.CompletedRuns = append(m.CompletedRuns, runID)
	return nil
}

// ListSyncRuns returns the runs newest first
func (m *MockRepository) ListSyncRuns(limit int) ([]SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListSyncRunsErr != nil {
		return nil, m.ListSyncRunsErr
	}

	runs := make([]SyncRun, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetSyncRun retrieves a run by ID
func (m *MockRepository) GetSyncRun(runID string) (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("sync run %s: %w", runID, ErrNotFound)
	}
	copied := *run
	return &copied, nil
}

// Records returns every stored record, for assertions.
func (m *MockRepository) Records() []*MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*MatchRecord, 0, len(m.records))
	for _, r := range m.records {
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
