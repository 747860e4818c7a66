package storage

import "errors"

// ErrNotFound is returned when a record or run does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations and makes testing with
// mocks straightforward.
type Repository interface {
	RecordRepository
	SyncRunRepository
	Close() error
}

// RecordRepository handles match record operations
type RecordRepository interface {
	// SaveRecord inserts or replaces the record for its transaction
	SaveRecord(record *MatchRecord) error

	// GetRecord retrieves a record by transaction ID
	GetRecord(transactionID string) (*MatchRecord, error)

	// IsApplied checks if a transaction was successfully updated (non-dry-run)
	IsApplied(transactionID string) bool

	// ListRecords returns records matching the filters with pagination
	ListRecords(filters RecordFilters) (*RecordListResult, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// RecordFilters defines filters for listing records
type RecordFilters struct {
	Status   string // empty = all
	RunID    string // empty = all
	DaysBack int    // 0 = all time
	Limit    int    // 0 = default 50
	Offset   int
}

// DefaultListLimit applies when RecordFilters.Limit is zero.
const DefaultListLimit = 50

func (f RecordFilters) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// RecordListResult contains paginated record results
type RecordListResult struct {
	Records    []*MatchRecord `json:"records"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// SyncRunRepository handles sync run tracking
type SyncRunRepository interface {
	// StartSyncRun records the start of a run
	StartSyncRun(runID string, dryRun bool) error

	// CompleteSyncRun records the completion of a run
	CompleteSyncRun(runID string, summary RunSummary) error

	// ListSyncRuns returns the most recent runs first
	ListSyncRuns(limit int) ([]SyncRun, error)

	// GetSyncRun retrieves a run by ID
	GetSyncRun(runID string) (*SyncRun, error)
}
