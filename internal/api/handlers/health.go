package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/api/dto"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// HealthHandler reports liveness plus the most recent tagging run. A nil
// run repository only reports liveness.
type HealthHandler struct {
	runs storage.SyncRunRepository
}

func NewHealthHandler(runs storage.SyncRunRepository) *HealthHandler {
	return &HealthHandler{runs: runs}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := dto.NewHealthResponse(healthOK)

	if h.runs != nil {
		runs, err := h.runs.ListSyncRuns(1)
		switch {
		case err != nil:
			// database unreachable
			status = http.StatusServiceUnavailable
			response.Status = healthDegraded
		case len(runs) > 0:
			response.LastRunID = runs[0].ID
			response.LastRunStatus = runs[0].Status
			response.LastRunAt = runs[0].StartedAt.UTC().Format(time.RFC3339)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
