package sync

import (
	"log/slog"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// Recording functions persist run and per-transaction outcomes. Storage
// failures are logged and never fail the run.

func (o *Orchestrator) startRun(runID string, dryRun bool) {
	if o.storage == nil {
		return
	}
	if err := o.storage.StartSyncRun(runID, dryRun); err != nil {
		o.logger.Warn("failed to start sync run tracking", slog.Any("error", err))
	}
}

func (o *Orchestrator) completeRun(result *Result, runErr error) {
	if o.storage == nil {
		return
	}
	summary := storage.RunSummary{
		ItemsFound:          len(result.Items),
		ChargesFound:        len(result.Charges),
		TransactionsMatched: result.Stats[StatTransMatch],
		UpdatesProposed:     len(result.Updates),
		UpdatesApplied:      result.Applied,
		Errors:              len(result.Errors),
		Stats:               result.Stats,
		Failed:              runErr != nil,
	}
	if err := o.storage.CompleteSyncRun(result.RunID, summary); err != nil {
		o.logger.Warn("failed to complete sync run tracking", slog.Any("error", err))
	}
}

func (o *Orchestrator) recordUpdate(runID string, u *Update, status string, dryRun bool, err error) {
	t := u.Transaction()
	record := &storage.MatchRecord{
		TransactionID:     t.ID,
		RunID:             runID,
		OrderIDs:          u.Proposal.OrderIDs,
		TransactionDate:   t.Date,
		TransactionAmount: t.Amount.ToFloat(),
		ChargeAmount:      u.Charge.TransactAmount().ToFloat(),
		SplitCount:        len(u.Proposal.Splits),
		Status:            status,
		DryRun:            dryRun,
		Repairs:           u.Repairs,
		Splits:            u.Proposal.Splits,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	o.saveRecord(record)
}

func (o *Orchestrator) saveRecord(record *storage.MatchRecord) {
	if o.storage == nil {
		return
	}
	if err := o.storage.SaveRecord(record); err != nil {
		o.logger.Error("failed to save match record",
			slog.String("transaction_id", record.TransactionID),
			slog.Any("error", err))
	}
}
