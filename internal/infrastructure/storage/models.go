package storage

import (
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

// Record statuses.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusUpToDate = "up_to_date"
)

// Sync run statuses.
const (
	RunStatusRunning             = "running"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
)

// MatchRecord is the outcome of processing one matched transaction.
type MatchRecord struct {
	ID                int64          `json:"id"`
	TransactionID     string         `json:"transaction_id"`
	RunID             string         `json:"run_id"`
	OrderIDs          []string       `json:"order_ids"`
	TransactionDate   time.Time      `json:"transaction_date"`
	ProcessedAt       time.Time      `json:"processed_at"`
	TransactionAmount float64        `json:"transaction_amount"`
	ChargeAmount      float64        `json:"charge_amount"`
	SplitCount        int            `json:"split_count"`
	Status            string         `json:"status"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	DryRun            bool           `json:"dry_run"`
	Repairs           []string       `json:"repairs"`
	Splits            []ledger.Split `json:"splits"`
}

// IsApplied reports whether the record's edits were sent to the ledger.
func (r *MatchRecord) IsApplied() bool {
	return r.Status == StatusSuccess && !r.DryRun
}

// SyncRun is one tagger run.
type SyncRun struct {
	ID                  string         `json:"id"`
	StartedAt           time.Time      `json:"started_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	DryRun              bool           `json:"dry_run"`
	ItemsFound          int            `json:"items_found"`
	ChargesFound        int            `json:"charges_found"`
	TransactionsMatched int            `json:"transactions_matched"`
	UpdatesProposed     int            `json:"updates_proposed"`
	UpdatesApplied      int            `json:"updates_applied"`
	Errors              int            `json:"errors"`
	Status              string         `json:"status"`
	Stats               map[string]int `json:"stats"`
}

// RunSummary carries the counts written when a run completes.
type RunSummary struct {
	ItemsFound          int
	ChargesFound        int
	TransactionsMatched int
	UpdatesProposed     int
	UpdatesApplied      int
	Errors              int
	Stats               map[string]int
	Failed              bool
}

func (s RunSummary) status() string {
	switch {
	case s.Failed:
		return RunStatusFailed
	case s.Errors > 0:
		return RunStatusCompletedWithErrors
	default:
		return RunStatusCompleted
	}
}

// Stats aggregates match records.
type Stats struct {
	TotalRecords int     `json:"total_records"`
	SuccessCount int     `json:"success_count"`
	FailedCount  int     `json:"failed_count"`
	SkippedCount int     `json:"skipped_count"`
	UpToDate     int     `json:"up_to_date_count"`
	DryRunCount  int     `json:"dry_run_count"`
	TotalAmount  float64 `json:"total_amount"`
	TotalSplits  int     `json:"total_splits"`
	TotalRuns    int     `json:"total_runs"`
}
