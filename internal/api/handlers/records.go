package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/api/dto"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// RecordsHandler serves the per-transaction match records.
type RecordsHandler struct {
	repo storage.RecordRepository
}

func NewRecordsHandler(repo storage.RecordRepository) *RecordsHandler {
	return &RecordsHandler{repo: repo}
}

// List handles GET /api/records - returns a page of records, newest first.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.RecordFilters{
		Status: r.URL.Query().Get("status"),
		RunID:  r.URL.Query().Get("run_id"),
	}
	for _, p := range []struct {
		name string
		dst  *int
		def  int
	}{
		{"days_back", &filters.DaysBack, 0},
		{"limit", &filters.Limit, storage.DefaultListLimit},
		{"offset", &filters.Offset, 0},
	} {
		n, err := queryCount(r, p.name, p.def)
		if err != nil {
			fail(w, dto.BadRequestError(err.Error()))
			return
		}
		*p.dst = n
	}

	result, err := h.repo.ListRecords(filters)
	if err != nil {
		fail(w, dto.InternalError())
		return
	}

	response := dto.RecordListResponse{
		Records:    make([]dto.RecordResponse, 0, len(result.Records)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, record := range result.Records {
		response.Records = append(response.Records, toRecordResponse(record))
	}

	respond(w, http.StatusOK, response)
}

// Get handles GET /api/records/{id} - returns the record of one transaction.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		fail(w, dto.BadRequestError("transaction ID is required"))
		return
	}

	record, err := h.repo.GetRecord(id)
	if errors.Is(err, storage.ErrNotFound) {
		fail(w, dto.NotFoundError("record"))
		return
	}
	if err != nil {
		fail(w, dto.InternalError())
		return
	}

	respond(w, http.StatusOK, toRecordResponse(record))
}

func toRecordResponse(record *storage.MatchRecord) dto.RecordResponse {
	response := dto.RecordResponse{
		TransactionID:     record.TransactionID,
		RunID:             record.RunID,
		OrderIDs:          record.OrderIDs,
		TransactionDate:   record.TransactionDate.Format(ledger.DateLayout),
		ProcessedAt:       record.ProcessedAt.UTC().Format(time.RFC3339),
		TransactionAmount: record.TransactionAmount,
		ChargeAmount:      record.ChargeAmount,
		SplitCount:        record.SplitCount,
		Status:            record.Status,
		ErrorMessage:      record.ErrorMessage,
		DryRun:            record.DryRun,
		Repairs:           record.Repairs,
		Splits:            make([]dto.SplitResponse, 0, len(record.Splits)),
	}
	if response.OrderIDs == nil {
		response.OrderIDs = []string{}
	}
	for _, s := range record.Splits {
		response.Splits = append(response.Splits, dto.SplitResponse{
			Description:  s.Description,
			Amount:       s.Amount.ToFloat(),
			CategoryID:   s.CategoryID,
			CategoryName: s.CategoryName,
			Notes:        s.Notes,
		})
	}
	return response
}
