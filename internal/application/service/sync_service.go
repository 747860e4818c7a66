package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appsync "github.com/eshaffer321/monarch-amazon-tagger/internal/application/sync"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

// SyncStatus represents the current state of a sync job.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusCancelled SyncStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress
	// updates before it is considered hung.
	DefaultJobStaleThreshold = 30 * time.Minute

	// DefaultJobMaxDuration is the longest a job may run before it is
	// forcefully marked as failed.
	DefaultJobMaxDuration = 2 * time.Hour
)

var (
	// ErrSyncRunning is returned when a job is started while another is active.
	ErrSyncRunning = errors.New("a sync is already running")
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
)

// SyncRequest holds parameters for starting a sync. Zero values keep the
// configured defaults.
type SyncRequest struct {
	DryRun       bool
	Force        bool
	NumUpdates   int
	RetagChanged bool
	Verbose      bool
	StartDate    time.Time
	EndDate      time.Time
}

// SyncProgress holds real-time progress information.
type SyncProgress struct {
	CurrentPhase string // Stage label reported by the orchestrator
	Total        int
	Processed    int
	LastUpdate   time.Time
}

// SyncJob represents a running or completed sync job.
type SyncJob struct {
	ID          string
	Status      SyncStatus
	Request     SyncRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    SyncProgress
	Result      *appsync.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// Runner executes one tagging run.
type Runner interface {
	Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error)
}

// RunnerFactory builds a runner for a job. verbose asks for debug logging.
type RunnerFactory func(cfg *config.Config, verbose bool) (Runner, error)

// SyncService runs tagging jobs in the background, one at a time.
type SyncService struct {
	cfg       *config.Config
	newRunner RunnerFactory
	logger    *slog.Logger
	newJobID  func() string

	jobs      map[string]*SyncJob
	activeJob string
	jobsMutex sync.RWMutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewSyncService creates a new sync service.
func NewSyncService(cfg *config.Config, newRunner RunnerFactory, logger *slog.Logger) *SyncService {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		cfg:       cfg,
		newRunner: newRunner,
		logger:    logger,
		newJobID:  uuid.NewString,
		jobs:      make(map[string]*SyncJob),
	}
}

// StartSync starts a new sync job asynchronously.
// The passed context is NOT the parent of the job: background jobs outlive
// the HTTP request that started them. Use CancelSync to stop one.
func (s *SyncService) StartSync(_ context.Context, req SyncRequest) (string, error) {
	if s.newRunner == nil {
		return "", errors.New("sync service has no runner factory")
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	job := &SyncJob{
		ID:         s.newJobID(),
		Status:     StatusPending,
		Request:    req,
		StartedAt:  now,
		cancelFunc: cancel,
		Progress:   SyncProgress{CurrentPhase: "pending", LastUpdate: now},
	}

	s.jobsMutex.Lock()
	if active := s.activeJob; active != "" {
		s.jobsMutex.Unlock()
		cancel()
		return "", fmt.Errorf("%w: %s", ErrSyncRunning, active)
	}
	s.activeJob = job.ID
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runSyncJob(jobCtx, job.ID, req)

	s.logger.Info("sync job started",
		"job_id", job.ID,
		"dry_run", req.DryRun,
		"force", req.Force,
		"num_updates", req.NumUpdates,
	)
	return job.ID, nil
}

// GetSyncJob returns a snapshot of a sync job.
func (s *SyncService) GetSyncJob(jobID string) (*SyncJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snapshot := *job
	return &snapshot, nil
}

// ListActiveSyncJobs returns snapshots of running or pending jobs.
func (s *SyncService) ListActiveSyncJobs() []*SyncJob {
	return s.listJobs(func(job *SyncJob) bool {
		return job.Status == StatusPending || job.Status == StatusRunning
	})
}

// ListAllSyncJobs returns snapshots of every tracked job, newest first.
func (s *SyncService) ListAllSyncJobs() []*SyncJob {
	return s.listJobs(func(*SyncJob) bool { return true })
}

func (s *SyncService) listJobs(keep func(*SyncJob) bool) []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*SyncJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if keep(job) {
			snapshot := *job
			jobs = append(jobs, &snapshot)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	return jobs
}

// CancelSync cancels a running sync job.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	now := time.Now()
	job.Status = StatusCancelled
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("sync job cancelled", "job_id", jobID)
	return nil
}

// runSyncJob executes the sync job in a background goroutine.
func (s *SyncService) runSyncJob(ctx context.Context, jobID string, req SyncRequest) {
	defer s.release(jobID)

	s.setPhase(jobID, "initializing")

	runner, err := s.newRunner(s.cfg, req.Verbose)
	if err != nil {
		s.failJob(jobID, fmt.Errorf("failed to create runner: %w", err))
		return
	}

	result, err := runner.Run(ctx, s.options(jobID, req))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Already marked as cancelled in CancelSync
			return
		}
		s.failJob(jobID, err)
		return
	}
	s.completeJob(jobID, result)
}

// options layers the request over the configured run options. Jobs never
// prompt: there is no terminal to answer.
func (s *SyncService) options(jobID string, req SyncRequest) appsync.Options {
	opts := appsync.NewOptions(s.cfg)
	opts.DryRun = req.DryRun
	opts.Force = req.Force
	if req.NumUpdates > 0 {
		opts.NumUpdates = req.NumUpdates
	}
	if req.RetagChanged {
		opts.RetagChanged = true
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() {
		opts.StartDate, opts.EndDate = req.StartDate, req.EndDate
	}
	opts.PromptRetag = false
	opts.ConfirmRetag = nil
	opts.Progress = &jobProgress{svc: s, jobID: jobID}
	return opts
}

// jobProgress feeds orchestrator stage progress into the job.
type jobProgress struct {
	svc   *SyncService
	jobID string
}

func (p *jobProgress) Start(label string, total int) {
	p.svc.updateProgress(p.jobID, func(prog *SyncProgress) {
		prog.CurrentPhase = label
		prog.Total = total
		prog.Processed = 0
	})
}

func (p *jobProgress) Increment() {
	p.svc.updateProgress(p.jobID, func(prog *SyncProgress) { prog.Processed++ })
}

func (p *jobProgress) Finish() {
	p.svc.updateProgress(p.jobID, func(*SyncProgress) {})
}

func (s *SyncService) setPhase(jobID, phase string) {
	s.updateProgress(jobID, func(prog *SyncProgress) {
		prog.CurrentPhase = phase
	})
}

// updateProgress mutates a job that is still pending or running.
func (s *SyncService) updateProgress(jobID string, update func(*SyncProgress)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || (job.Status != StatusPending && job.Status != StatusRunning) {
		return
	}
	job.Status = StatusRunning
	update(&job.Progress)
	job.Progress.LastUpdate = time.Now()
}

// completeJob marks a job as completed with results.
func (s *SyncService) completeJob(jobID string, result *appsync.Result) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != StatusRunning {
		return
	}
	now := time.Now()
	job.Status = StatusCompleted
	job.CompletedAt = &now
	job.Result = result
	job.Progress.CurrentPhase = "completed"
	job.Progress.LastUpdate = now
	s.logger.Info("sync job completed",
		"job_id", jobID,
		"run_id", result.RunID,
		"updates", len(result.Updates),
		"applied", result.Applied,
		"errors", len(result.Errors),
	)
}

// failJob marks a job as failed with an error.
func (s *SyncService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || (job.Status != StatusPending && job.Status != StatusRunning) {
		return
	}
	now := time.Now()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Error = err
	job.Progress.CurrentPhase = "failed"
	job.Progress.LastUpdate = now
	s.logger.Error("sync job failed", "job_id", jobID, "error", err)
}

// release frees the single run slot if jobID still holds it.
func (s *SyncService) release(jobID string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if s.activeJob == jobID {
		s.activeJob = ""
	}
}

// CleanupOldJobs removes finished jobs that completed more than maxAge ago.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.Status != StatusCompleted && job.Status != StatusFailed && job.Status != StatusCancelled {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old sync jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed fails jobs that have run longer than maxDuration or
// reported no progress within staleThreshold, and frees the run slot they
// held.
func (s *SyncService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0
	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}

		reason := ""
		switch {
		case now.Sub(job.StartedAt) > maxDuration:
			reason = fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, now.Sub(job.StartedAt).Round(time.Second))
		case now.Sub(job.Progress.LastUpdate) > staleThreshold:
			reason = fmt.Sprintf("no progress update for %v (threshold: %v)", now.Sub(job.Progress.LastUpdate).Round(time.Second), staleThreshold)
		default:
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}
		lastUpdate := job.Progress.LastUpdate
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		job.Progress.CurrentPhase = "failed"
		job.Progress.LastUpdate = now
		if s.activeJob == id {
			s.activeJob = ""
		}

		s.logger.Warn("marked stale job as failed",
			"job_id", id,
			"reason", reason,
			"started_at", job.StartedAt,
			"last_update", lastUpdate,
		)
		marked++
	}
	return marked
}

// IsJobStale checks if a specific job is considered stale.
func (s *SyncService) IsJobStale(jobID string, staleThreshold, maxDuration time.Duration) bool {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return false
	}
	if job.Status != StatusRunning && job.Status != StatusPending {
		return false
	}

	now := time.Now()
	return now.Sub(job.StartedAt) > maxDuration || now.Sub(job.Progress.LastUpdate) > staleThreshold
}

// StartBackgroundCleanup periodically fails stale jobs and drops jobs
// finished more than a day ago. Call StopBackgroundCleanup to stop it.
func (s *SyncService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", DefaultJobStaleThreshold,
			"max_duration", DefaultJobMaxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				if marked := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); marked > 0 {
					s.logger.Info("marked stale jobs as failed", "count", marked)
				}
				s.CleanupOldJobs(24 * time.Hour)
			}
		}
	}()
}

// StopBackgroundCleanup stops the cleanup goroutine and waits for it.
func (s *SyncService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
