package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/api/dto"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/application/service"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	syncService *service.SyncService
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// StartSync handles POST /api/sync - starts a new sync job. An empty body
// runs with the configured defaults.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(w, dto.BadRequestError("invalid request body"))
		return
	}

	serviceReq, apiErr := toSyncRequest(req)
	if apiErr != nil {
		fail(w, *apiErr)
		return
	}

	jobID, err := h.syncService.StartSync(r.Context(), serviceReq)
	if errors.Is(err, service.ErrSyncRunning) {
		fail(w, dto.ConflictError(err.Error()))
		return
	}
	if err != nil {
		fail(w, dto.InternalError())
		return
	}

	respond(w, http.StatusAccepted, dto.StartSyncResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

func toSyncRequest(req dto.StartSyncRequest) (service.SyncRequest, *dto.APIError) {
	out := service.SyncRequest{
		DryRun:       req.DryRun,
		Force:        req.Force,
		NumUpdates:   req.NumUpdates,
		RetagChanged: req.RetagChanged,
		Verbose:      req.Verbose,
	}
	if req.NumUpdates < 0 {
		e := dto.ValidationError("num_updates must not be negative")
		return out, &e
	}
	if (req.StartDate == "") != (req.EndDate == "") {
		e := dto.ValidationError("start_date and end_date must be given together")
		return out, &e
	}
	if req.StartDate == "" {
		return out, nil
	}

	start, err1 := ledger.ParseDate(req.StartDate)
	end, err2 := ledger.ParseDate(req.EndDate)
	if err1 != nil || err2 != nil {
		e := dto.ValidationError("dates must be formatted YYYY-MM-DD")
		return out, &e
	}
	if end.Before(start) {
		e := dto.ValidationError("end_date is before start_date")
		return out, &e
	}
	out.StartDate, out.EndDate = start, end
	return out, nil
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets sync job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		fail(w, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.syncService.GetSyncJob(jobID)
	if err != nil {
		fail(w, dto.NotFoundError("sync job"))
		return
	}

	respond(w, http.StatusOK, toSyncJobResponse(job))
}

// ListActiveSyncs handles GET /api/sync/active - lists active sync jobs.
func (h *SyncHandler) ListActiveSyncs(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, toSyncJobList(h.syncService.ListActiveSyncJobs()))
}

// ListAllSyncs handles GET /api/sync - lists all sync jobs.
func (h *SyncHandler) ListAllSyncs(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, toSyncJobList(h.syncService.ListAllSyncJobs()))
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a sync job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		fail(w, dto.BadRequestError("job ID is required"))
		return
	}

	err := h.syncService.CancelSync(jobID)
	if errors.Is(err, service.ErrJobNotFound) {
		fail(w, dto.NotFoundError("sync job"))
		return
	}
	if err != nil {
		fail(w, dto.ConflictError(err.Error()))
		return
	}

	respond(w, http.StatusOK, dto.MessageResponse{
		Message: "Sync job cancelled successfully",
	})
}

func toSyncJobList(jobs []*service.SyncJob) dto.SyncJobListResponse {
	response := dto.SyncJobListResponse{
		Jobs:  make([]dto.SyncJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toSyncJobResponse(job))
	}
	return response
}

// toSyncJobResponse converts a service model to an API response.
func toSyncJobResponse(job *service.SyncJob) dto.SyncJobResponse {
	response := dto.SyncJobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.SyncProgressResponse{
			CurrentPhase: job.Progress.CurrentPhase,
			Total:        job.Progress.Total,
			Processed:    job.Progress.Processed,
			LastUpdate:   job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if res := job.Result; res != nil {
		result := &dto.SyncResultResponse{
			RunID:            res.RunID,
			Items:            len(res.Items),
			Charges:          len(res.Charges),
			Updates:          len(res.Updates),
			Applied:          res.Applied,
			UnmatchedCharges: len(res.UnmatchedCharges),
			Stats:            res.Stats,
		}
		for _, err := range res.Errors {
			result.Errors = append(result.Errors, err.Error())
		}
		response.Result = result
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
