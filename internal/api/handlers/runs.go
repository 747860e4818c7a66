package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/api/dto"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// RunsHandler handles sync run-related HTTP requests.
type RunsHandler struct {
	repo storage.SyncRunRepository
}

func NewRunsHandler(repo storage.SyncRunRepository) *RunsHandler {
	return &RunsHandler{repo: repo}
}

const defaultRunsLimit = 20

// List handles GET /api/runs - returns list of sync runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryCount(r, "limit", defaultRunsLimit)
	if err != nil {
		fail(w, dto.BadRequestError(err.Error()))
		return
	}

	runs, err := h.repo.ListSyncRuns(limit)
	if err != nil {
		fail(w, dto.InternalError())
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toSyncRunResponse(run))
	}

	respond(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single sync run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		fail(w, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetSyncRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		fail(w, dto.NotFoundError("sync run"))
		return
	}
	if err != nil {
		fail(w, dto.InternalError())
		return
	}

	respond(w, http.StatusOK, toSyncRunResponse(*run))
}

// toSyncRunResponse converts a storage SyncRun to an API response.
func toSyncRunResponse(run storage.SyncRun) dto.SyncRunResponse {
	response := dto.SyncRunResponse{
		ID:                  run.ID,
		StartedAt:           run.StartedAt.UTC().Format(time.RFC3339),
		DryRun:              run.DryRun,
		ItemsFound:          run.ItemsFound,
		ChargesFound:        run.ChargesFound,
		TransactionsMatched: run.TransactionsMatched,
		UpdatesProposed:     run.UpdatesProposed,
		UpdatesApplied:      run.UpdatesApplied,
		Errors:              run.Errors,
		Status:              run.Status,
		Stats:               run.Stats,
	}
	if run.CompletedAt != nil {
		response.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return response
}
