package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Storage provides SQLite database access for match records and runs.
// It implements the Repository interface.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens the SQLite database at dbPath and applies pending migrations.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; the API and sync jobs share this handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRecord inserts or replaces the record keyed by transaction ID.
func (s *Storage) SaveRecord(record *MatchRecord) error {
	if record.TransactionID == "" {
		return errors.New("record has no transaction id")
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = s.now()
	}

	orderIDs, err := marshalJSON(record.OrderIDs, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode order ids: %w", err)
	}
	repairs, err := marshalJSON(record.Repairs, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode repairs: %w", err)
	}
	splits, err := marshalJSON(record.Splits, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode proposal: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO match_records
	(transaction_id, run_id, order_ids_json, transaction_date, processed_at,
	 transaction_amount, charge_amount, split_count, status, error_message,
	 dry_run, repairs_json, proposal_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		record.TransactionID,
		record.RunID,
		orderIDs,
		record.TransactionDate.UTC(),
		record.ProcessedAt.UTC(),
		record.TransactionAmount,
		record.ChargeAmount,
		record.SplitCount,
		record.Status,
		record.ErrorMessage,
		record.DryRun,
		repairs,
		splits,
	)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

const recordColumns = `
	id, transaction_id, run_id, order_ids_json, transaction_date, processed_at,
	transaction_amount, charge_amount, split_count, status, error_message,
	dry_run, repairs_json, proposal_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*MatchRecord, error) {
	record := &MatchRecord{}
	var orderIDs, repairs, splits string
	err := row.Scan(
		&record.ID,
		&record.TransactionID,
		&record.RunID,
		&orderIDs,
		&record.TransactionDate,
		&record.ProcessedAt,
		&record.TransactionAmount,
		&record.ChargeAmount,
		&record.SplitCount,
		&record.Status,
		&record.ErrorMessage,
		&record.DryRun,
		&repairs,
		&splits,
	)
	if err != nil {
		return nil, err
	}

	// Stored JSON is written by SaveRecord; a corrupt column only loses enrichment.
	_ = json.Unmarshal([]byte(orderIDs), &record.OrderIDs)
	_ = json.Unmarshal([]byte(repairs), &record.Repairs)
	_ = json.Unmarshal([]byte(splits), &record.Splits)
	return record, nil
}

// GetRecord retrieves a record by transaction ID. Missing records return ErrNotFound.
func (s *Storage) GetRecord(transactionID string) (*MatchRecord, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM match_records WHERE transaction_id = ?`, transactionID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", transactionID, ErrNotFound)
	}
	return record, err
}

// IsApplied checks if a transaction has already been successfully updated (non-dry-run)
func (s *Storage) IsApplied(transactionID string) bool {
	var count int
	query := `SELECT COUNT(*) FROM match_records WHERE transaction_id = ? AND dry_run = 0 AND status = ?`
	err := s.db.QueryRow(query, transactionID, StatusSuccess).Scan(&count)
	return err == nil && count > 0
}

// ListRecords returns records newest first.
func (s *Storage) ListRecords(filters RecordFilters) (*RecordListResult, error) {
	var where []string
	var args []any
	if filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filters.Status)
	}
	if filters.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filters.RunID)
	}
	if filters.DaysBack > 0 {
		where = append(where, "processed_at >= ?")
		args = append(args, s.now().UTC().AddDate(0, 0, -filters.DaysBack))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	result := &RecordListResult{
		Records: []*MatchRecord{},
		Limit:   filters.limit(),
		Offset:  filters.Offset,
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM match_records`+clause, args...).Scan(&result.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM match_records` + clause +
		` ORDER BY processed_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, result.Limit, result.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, record)
	}
	return result, rows.Err()
}

// GetStats returns aggregate statistics over all records and runs.
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	query := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN status = 'success' THEN 1 END) as success,
		COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed,
		COUNT(CASE WHEN status = 'skipped' THEN 1 END) as skipped,
		COUNT(CASE WHEN status = 'up_to_date' THEN 1 END) as up_to_date,
		COUNT(CASE WHEN dry_run = 1 THEN 1 END) as dry_run,
		COALESCE(SUM(ABS(transaction_amount)), 0) as total_amount,
		COALESCE(SUM(split_count), 0) as total_splits
	FROM match_records
	`
	err := s.db.QueryRow(query).Scan(
		&stats.TotalRecords,
		&stats.SuccessCount,
		&stats.FailedCount,
		&stats.SkippedCount,
		&stats.UpToDate,
		&stats.DryRunCount,
		&stats.TotalAmount,
		&stats.TotalSplits,
	)
	if err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_runs`).Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}
	return stats, nil
}

// StartSyncRun records the start of a run
func (s *Storage) StartSyncRun(runID string, dryRun bool) error {
	query := `
		INSERT INTO sync_runs (id, started_at, dry_run, status)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, runID, s.now().UTC(), dryRun, RunStatusRunning)
	return err
}

// CompleteSyncRun records the completion of a run
func (s *Storage) CompleteSyncRun(runID string, summary RunSummary) error {
	stats, err := marshalJSON(summary.Stats, "{}")
	if err != nil {
		return fmt.Errorf("failed to encode run stats: %w", err)
	}

	query := `
		UPDATE sync_runs
		SET completed_at = ?,
		    items_found = ?,
		    charges_found = ?,
		    transactions_matched = ?,
		    updates_proposed = ?,
		    updates_applied = ?,
		    errors = ?,
		    status = ?,
		    stats_json = ?
		WHERE id = ?
	`
	result, err := s.db.Exec(query,
		s.now().UTC(),
		summary.ItemsFound,
		summary.ChargesFound,
		summary.TransactionsMatched,
		summary.UpdatesProposed,
		summary.UpdatesApplied,
		summary.Errors,
		summary.status(),
		stats,
		runID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sync run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `
	id, started_at, completed_at, dry_run, items_found, charges_found,
	transactions_matched, updates_proposed, updates_applied, errors, status, stats_json`

func scanRun(row rowScanner) (*SyncRun, error) {
	run := &SyncRun{}
	var completed sql.NullTime
	var stats string
	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&completed,
		&run.DryRun,
		&run.ItemsFound,
		&run.ChargesFound,
		&run.TransactionsMatched,
		&run.UpdatesProposed,
		&run.UpdatesApplied,
		&run.Errors,
		&run.Status,
		&stats,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		run.CompletedAt = &completed.Time
	}
	_ = json.Unmarshal([]byte(stats), &run.Stats)
	return run, nil
}

// ListSyncRuns returns recent runs, newest first
func (s *Storage) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := []SyncRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetSyncRun retrieves a run by ID. Missing runs return ErrNotFound.
func (s *Storage) GetSyncRun(runID string) (*SyncRun, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

func marshalJSON(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}
