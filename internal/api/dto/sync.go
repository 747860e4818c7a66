package dto

// StartSyncRequest is the request body for starting a sync. Every field is
// optional.
type StartSyncRequest struct {
	DryRun       bool   `json:"dry_run"`       // Preview mode
	Force        bool   `json:"force"`         // Reprocess transactions already applied
	NumUpdates   int    `json:"num_updates"`   // Max updates to send (0 = configured)
	RetagChanged bool   `json:"retag_changed"` // Overwrite earlier tags that changed
	Verbose      bool   `json:"verbose"`       // Debug logging for this run
	StartDate    string `json:"start_date"`    // YYYY-MM-DD, with end_date
	EndDate      string `json:"end_date"`      // YYYY-MM-DD, with start_date
}

// StartSyncResponse is returned when a sync is started.
type StartSyncResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SyncJobResponse represents a sync job's status.
type SyncJobResponse struct {
	JobID       string               `json:"job_id"`
	Status      string               `json:"status"`
	DryRun      bool                 `json:"dry_run"`
	StartedAt   string               `json:"started_at"`
	CompletedAt *string              `json:"completed_at,omitempty"`
	Progress    SyncProgressResponse `json:"progress"`
	Result      *SyncResultResponse  `json:"result,omitempty"`
	Error       *string              `json:"error,omitempty"`
}

// SyncProgressResponse represents real-time progress.
type SyncProgressResponse struct {
	CurrentPhase string `json:"current_phase"`
	Total        int    `json:"total"`
	Processed    int    `json:"processed"`
	LastUpdate   string `json:"last_update"`
}

// SyncResultResponse summarizes a finished run.
type SyncResultResponse struct {
	RunID            string         `json:"run_id"`
	Items            int            `json:"items"`
	Charges          int            `json:"charges"`
	Updates          int            `json:"updates"`
	Applied          int            `json:"applied"`
	UnmatchedCharges int            `json:"unmatched_charges"`
	Errors           []string       `json:"errors,omitempty"`
	Stats            map[string]int `json:"stats"`
}

// SyncJobListResponse lists sync jobs.
type SyncJobListResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}
