package dto

import "time"

// HealthResponse is returned by the health check endpoint. The last run
// fields are empty until the first tagging run starts.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	LastRunID     string `json:"last_run_id,omitempty"`
	LastRunStatus string `json:"last_run_status,omitempty"`
	LastRunAt     string `json:"last_run_at,omitempty"`
}

// NewHealthResponse creates a health response stamped with the current time.
func NewHealthResponse(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RecordResponse is one processed transaction.
type RecordResponse struct {
	TransactionID     string          `json:"transaction_id"`
	RunID             string          `json:"run_id,omitempty"`
	OrderIDs          []string        `json:"order_ids"`
	TransactionDate   string          `json:"transaction_date"`
	ProcessedAt       string          `json:"processed_at"`
	TransactionAmount float64         `json:"transaction_amount"`
	ChargeAmount      float64         `json:"charge_amount"`
	SplitCount        int             `json:"split_count"`
	Status            string          `json:"status"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	DryRun            bool            `json:"dry_run"`
	Repairs           []string        `json:"repairs,omitempty"`
	Splits            []SplitResponse `json:"splits,omitempty"`
}

// SplitResponse is one proposed split of a transaction.
type SplitResponse struct {
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	CategoryID   string  `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name"`
	Notes        string  `json:"notes,omitempty"`
}

// RecordListResponse is returned when listing records.
type RecordListResponse struct {
	Records    []RecordResponse `json:"records"`
	TotalCount int              `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

// SyncRunResponse represents a sync run in API responses.
type SyncRunResponse struct {
	ID                  string         `json:"id"`
	StartedAt           string         `json:"started_at"`
	CompletedAt         string         `json:"completed_at,omitempty"`
	DryRun              bool           `json:"dry_run"`
	ItemsFound          int            `json:"items_found"`
	ChargesFound        int            `json:"charges_found"`
	TransactionsMatched int            `json:"transactions_matched"`
	UpdatesProposed     int            `json:"updates_proposed"`
	UpdatesApplied      int            `json:"updates_applied"`
	Errors              int            `json:"errors"`
	Status              string         `json:"status"`
	Stats               map[string]int `json:"stats,omitempty"`
}

// SyncRunListResponse is returned when listing sync runs.
type SyncRunListResponse struct {
	Runs  []SyncRunResponse `json:"runs"`
	Count int               `json:"count"`
}

// StatsResponse aggregates every stored record.
type StatsResponse struct {
	TotalRecords int     `json:"total_records"`
	SuccessCount int     `json:"success_count"`
	FailedCount  int     `json:"failed_count"`
	SkippedCount int     `json:"skipped_count"`
	UpToDate     int     `json:"up_to_date"`
	DryRunCount  int     `json:"dry_run_count"`
	TotalAmount  float64 `json:"total_amount"`
	TotalSplits  int     `json:"total_splits"`
	TotalRuns    int     `json:"total_runs"`
}
