package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/gekko-logistics/waybills-server/internal/imports"
	"github.com/gekko-logistics/waybills-server/internal/metrics"
)

// DefaultStuckJobThreshold is how long an import job may sit RUNNING
// without an update before the sweep fails it.
const DefaultStuckJobThreshold = 30 * time.Minute

// StuckJobError is the error recorded on swept jobs.
const StuckJobError = "import worker did not report a terminal state"

// ImportJobSweepArgs defines the periodic job that fails stuck imports.
type ImportJobSweepArgs struct{}

func (ImportJobSweepArgs) Kind() string { return JobKindImportJobSweep }

// ImportJobSweepWorker moves RUNNING import jobs that stopped updating to
// FAILED. A job only ends up in that state when both terminal-state writes
// failed, so the sweep is the backstop that keeps pollers from waiting
// forever.
type ImportJobSweepWorker struct {
	river.WorkerDefaults[ImportJobSweepArgs]
	Jobs      imports.JobStore
	Threshold time.Duration
	Logger    *slog.Logger
}

func (ImportJobSweepWorker) Kind() string { return JobKindImportJobSweep }

func (w ImportJobSweepWorker) Work(ctx context.Context, job *river.Job[ImportJobSweepArgs]) error {
	if w.Jobs == nil {
		return fmt.Errorf("job store not configured")
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	threshold := w.Threshold
	if threshold <= 0 {
		threshold = DefaultStuckJobThreshold
	}

	cutoff := time.Now().UTC().Add(-threshold)
	count, err := w.Jobs.FailStuck(ctx, cutoff, StuckJobError)
	if err != nil {
		return fmt.Errorf("fail stuck import jobs: %w", err)
	}

	if count > 0 {
		metrics.StuckJobsSwept.Add(float64(count))
		logger.Warn("swept stuck import jobs",
			"count", count,
			"threshold", threshold.String(),
			"attempt", job.Attempt,
		)
	} else {
		logger.Debug("no stuck import jobs")
	}
	return nil
}
