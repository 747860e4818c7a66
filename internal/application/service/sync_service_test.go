package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/eshaffer321/monarch-amazon-tagger/internal/application/sync"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

// Helper to create a test logger
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeRunner reports progress, hands back its options, then blocks until
// released or cancelled.
type fakeRunner struct {
	release chan struct{}
	opts    chan appsync.Options
	result  *appsync.Result
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		release: make(chan struct{}),
		opts:    make(chan appsync.Options, 1),
		result:  &appsync.Result{RunID: "run-1", Applied: 2},
	}
}

func (r *fakeRunner) Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error) {
	opts.Progress.Start("Updating ledger", 3)
	opts.Progress.Increment()
	r.opts <- opts
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func factoryFor(r Runner) RunnerFactory {
	return func(*config.Config, bool) (Runner, error) { return r, nil }
}

func waitForStatus(t *testing.T, svc *SyncService, jobID string, want SyncStatus) *SyncJob {
	t.Helper()
	var job *SyncJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.GetSyncJob(jobID)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestSyncService_StartSync_Completes(t *testing.T) {
	// Arrange
	runner := newFakeRunner()
	svc := NewSyncService(config.Default(), factoryFor(runner), testLogger())
	svc.newJobID = func() string { return "job-1" }

	// Act
	jobID, err := svc.StartSync(context.Background(), SyncRequest{DryRun: true, NumUpdates: 7})
	require.NoError(t, err)
	opts := <-runner.opts

	// Assert
	assert.Equal(t, "job-1", jobID)
	assert.True(t, opts.DryRun)
	assert.Equal(t, 7, opts.NumUpdates)
	assert.False(t, opts.PromptRetag)
	assert.Equal(t, config.DefaultDescriptionFilter, opts.DescriptionFilter)

	running := waitForStatus(t, svc, jobID, StatusRunning)
	assert.Equal(t, "Updating ledger", running.Progress.CurrentPhase)
	assert.Equal(t, 3, running.Progress.Total)
	assert.Equal(t, 1, running.Progress.Processed)
	assert.Len(t, svc.ListActiveSyncJobs(), 1)

	close(runner.release)
	done := waitForStatus(t, svc, jobID, StatusCompleted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 2, done.Result.Applied)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, "completed", done.Progress.CurrentPhase)
	assert.Eventually(t, func() bool { return len(svc.ListActiveSyncJobs()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSyncService_StartSync_OneAtATime(t *testing.T) {
	// Arrange
	runner := newFakeRunner()
	svc := NewSyncService(config.Default(), factoryFor(runner), testLogger())
	first, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	<-runner.opts

	// Act
	_, err = svc.StartSync(context.Background(), SyncRequest{})

	// Assert
	require.ErrorIs(t, err, ErrSyncRunning)
	assert.Contains(t, err.Error(), first)

	close(runner.release)
	waitForStatus(t, svc, first, StatusCompleted)
	require.Eventually(t, func() bool {
		second := newFakeRunner()
		close(second.release)
		svc.newRunner = factoryFor(second)
		_, err := svc.StartSync(context.Background(), SyncRequest{})
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSyncService_StartSync_RunnerFailure(t *testing.T) {
	tests := []struct {
		name    string
		factory RunnerFactory
		runErr  error
		wantMsg string
	}{
		{
			name: "factory error",
			factory: func(*config.Config, bool) (Runner, error) {
				return nil, errors.New("no export files")
			},
			wantMsg: "failed to create runner: no export files",
		},
		{
			name:    "run error",
			runErr:  appsync.ErrNoItems,
			wantMsg: appsync.ErrNoItems.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			factory := tt.factory
			if factory == nil {
				runner := newFakeRunner()
				runner.err = tt.runErr
				close(runner.release)
				factory = factoryFor(runner)
			}
			svc := NewSyncService(config.Default(), factory, testLogger())

			// Act
			jobID, err := svc.StartSync(context.Background(), SyncRequest{})

			// Assert
			require.NoError(t, err)
			job := waitForStatus(t, svc, jobID, StatusFailed)
			require.Error(t, job.Error)
			assert.Equal(t, tt.wantMsg, job.Error.Error())
			assert.Equal(t, "failed", job.Progress.CurrentPhase)
		})
	}
}

func TestSyncService_CancelSync(t *testing.T) {
	// Arrange
	runner := newFakeRunner()
	svc := NewSyncService(config.Default(), factoryFor(runner), testLogger())
	jobID, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	<-runner.opts

	// Act
	err = svc.CancelSync(jobID)

	// Assert
	require.NoError(t, err)
	job, err := svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)
	assert.Equal(t, "cancelled", job.Progress.CurrentPhase)

	// The run slot frees once the runner returns.
	assert.Eventually(t, func() bool {
		svc.jobsMutex.RLock()
		defer svc.jobsMutex.RUnlock()
		return svc.activeJob == ""
	}, time.Second, 5*time.Millisecond)

	// Cancelling again is refused.
	err = svc.CancelSync(jobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be cancelled")

	// The status stays cancelled after the runner exits.
	job, err = svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)
}

func TestSyncService_StartSync_NoFactory(t *testing.T) {
	svc := NewSyncService(nil, nil, nil)

	_, err := svc.StartSync(context.Background(), SyncRequest{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no runner factory")
}

func TestSyncService_GetSyncJob_NotFound(t *testing.T) {
	svc := NewSyncService(nil, nil, nil)

	_, err := svc.GetSyncJob("non-existent")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSyncService_ListJobs_Empty(t *testing.T) {
	svc := NewSyncService(nil, nil, nil)

	assert.Empty(t, svc.ListActiveSyncJobs())
	assert.Empty(t, svc.ListAllSyncJobs())
}

func TestSyncService_ListAllSyncJobs_NewestFirst(t *testing.T) {
	// Arrange
	svc := NewSyncService(nil, nil, testLogger())
	now := time.Now()
	svc.jobsMutex.Lock()
	svc.jobs["old"] = &SyncJob{ID: "old", Status: StatusCompleted, StartedAt: now.Add(-time.Hour)}
	svc.jobs["new"] = &SyncJob{ID: "new", Status: StatusRunning, StartedAt: now}
	svc.jobs["mid"] = &SyncJob{ID: "mid", Status: StatusFailed, StartedAt: now.Add(-time.Minute)}
	svc.jobsMutex.Unlock()

	// Act
	jobs := svc.ListAllSyncJobs()

	// Assert
	require.Len(t, jobs, 3)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "mid", jobs[1].ID)
	assert.Equal(t, "old", jobs[2].ID)
}

func TestSyncService_CancelSync_NotFound(t *testing.T) {
	svc := NewSyncService(nil, nil, nil)

	err := svc.CancelSync("non-existent")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSyncService_IsJobStale(t *testing.T) {
	tests := []struct {
		name       string
		status     SyncStatus
		startedAgo time.Duration
		updatedAgo time.Duration
		want       bool
	}{
		{name: "completed job never stale", status: StatusCompleted, startedAgo: 3 * time.Hour, updatedAgo: 2 * time.Hour, want: false},
		{name: "stale by progress", status: StatusRunning, startedAgo: 10 * time.Minute, updatedAgo: 35 * time.Minute, want: true},
		{name: "stale by duration", status: StatusRunning, startedAgo: 3 * time.Hour, updatedAgo: 0, want: true},
		{name: "healthy", status: StatusRunning, startedAgo: 10 * time.Minute, updatedAgo: 5 * time.Minute, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := NewSyncService(nil, nil, testLogger())
			svc.jobs["job"] = &SyncJob{
				ID:        "job",
				Status:    tt.status,
				StartedAt: time.Now().Add(-tt.startedAgo),
				Progress:  SyncProgress{LastUpdate: time.Now().Add(-tt.updatedAgo)},
			}

			// Act
			got := svc.IsJobStale("job", 30*time.Minute, 2*time.Hour)

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown job", func(t *testing.T) {
		svc := NewSyncService(nil, nil, testLogger())
		assert.False(t, svc.IsJobStale("non-existent", 30*time.Minute, 2*time.Hour))
	})
}

func TestSyncService_MarkStaleJobsAsFailed(t *testing.T) {
	// Arrange
	svc := NewSyncService(nil, nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completedAt := time.Now().Add(-time.Hour)
	svc.jobsMutex.Lock()
	svc.jobs["stale"] = &SyncJob{
		ID:         "stale",
		Status:     StatusRunning,
		StartedAt:  time.Now().Add(-3 * time.Hour),
		Progress:   SyncProgress{LastUpdate: time.Now().Add(-35 * time.Minute)},
		cancelFunc: cancel,
	}
	svc.jobs["healthy"] = &SyncJob{
		ID:         "healthy",
		Status:     StatusRunning,
		StartedAt:  time.Now().Add(-10 * time.Minute),
		Progress:   SyncProgress{LastUpdate: time.Now().Add(-5 * time.Minute)},
		cancelFunc: func() {},
	}
	svc.jobs["done"] = &SyncJob{
		ID:          "done",
		Status:      StatusCompleted,
		StartedAt:   time.Now().Add(-3 * time.Hour),
		CompletedAt: &completedAt,
		Progress:    SyncProgress{LastUpdate: completedAt},
	}
	svc.activeJob = "stale"
	svc.jobsMutex.Unlock()

	// Act
	marked := svc.MarkStaleJobsAsFailed(30*time.Minute, 2*time.Hour)

	// Assert
	assert.Equal(t, 1, marked)

	stale, err := svc.GetSyncJob("stale")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stale.Status)
	assert.NotNil(t, stale.CompletedAt)
	require.Error(t, stale.Error)
	assert.Contains(t, stale.Error.Error(), "stale")
	assert.Empty(t, svc.activeJob, "stale job releases the run slot")

	select {
	case <-ctx.Done():
	default:
		t.Error("context should have been cancelled")
	}

	healthy, err := svc.GetSyncJob("healthy")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, healthy.Status)

	done, err := svc.GetSyncJob("done")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestSyncService_CleanupOldJobs(t *testing.T) {
	// Arrange
	svc := NewSyncService(nil, nil, testLogger())
	oldTime := time.Now().Add(-25 * time.Hour)
	recentTime := time.Now().Add(-time.Hour)
	svc.jobsMutex.Lock()
	svc.jobs["old"] = &SyncJob{ID: "old", Status: StatusCompleted, CompletedAt: &oldTime}
	svc.jobs["old-cancelled"] = &SyncJob{ID: "old-cancelled", Status: StatusCancelled, CompletedAt: &oldTime}
	svc.jobs["recent"] = &SyncJob{ID: "recent", Status: StatusFailed, CompletedAt: &recentTime}
	svc.jobs["running"] = &SyncJob{ID: "running", Status: StatusRunning, StartedAt: oldTime}
	svc.jobsMutex.Unlock()

	// Act
	removed := svc.CleanupOldJobs(24 * time.Hour)

	// Assert
	assert.Equal(t, 2, removed)
	_, err := svc.GetSyncJob("old")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = svc.GetSyncJob("recent")
	assert.NoError(t, err)
	_, err = svc.GetSyncJob("running")
	assert.NoError(t, err)
}

func TestSyncService_BackgroundCleanup_StartStop(t *testing.T) {
	svc := NewSyncService(nil, nil, testLogger())

	svc.StartBackgroundCleanup(10 * time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	svc.StopBackgroundCleanup()

	// Stopping twice without a start is a no-op.
	NewSyncService(nil, nil, testLogger()).StopBackgroundCleanup()
}
