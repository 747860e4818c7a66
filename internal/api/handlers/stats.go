package handlers

import (
	"net/http"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/api/dto"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	repo storage.RecordRepository
}

func NewStatsHandler(repo storage.RecordRepository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		fail(w, dto.InternalError())
		return
	}

	respond(w, http.StatusOK, dto.StatsResponse{
		TotalRecords: stats.TotalRecords,
		SuccessCount: stats.SuccessCount,
		FailedCount:  stats.FailedCount,
		SkippedCount: stats.SkippedCount,
		UpToDate:     stats.UpToDate,
		DryRunCount:  stats.DryRunCount,
		TotalAmount:  stats.TotalAmount,
		TotalSplits:  stats.TotalSplits,
		TotalRuns:    stats.TotalRuns,
	})
}
