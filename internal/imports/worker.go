package imports

import (
	"bytes"
	"context"

	"github.com/rs/zerolog"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
)

// Worker is the single consumer of the import queue. It processes tasks
// strictly in arrival order, one at a time.
type Worker struct {
	queue    *Queue
	jobs     JobStore
	engine   *Engine
	versions waybills.VersionBumper
	logger   zerolog.Logger
}

func NewWorker(queue *Queue, jobs JobStore, engine *Engine, versions waybills.VersionBumper, logger zerolog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		jobs:     jobs,
		engine:   engine,
		versions: versions,
		logger:   logger.With().Str("component", "import-worker").Logger(),
	}
}

// Run drains the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-w.queue.Tasks():
			w.process(ctx, task)
		}
	}
}

func (w *Worker) process(ctx context.Context, task Task) {
	logger := w.logger.With().
		Str("job_id", task.JobID.String()).
		Str("tenant", task.TenantID).
		Logger()

	if err := w.jobs.MarkRunning(ctx, task.JobID); err != nil {
		// A QUEUED job is invisible to the stuck-job sweep, so it must
		// reach a terminal state here.
		logger.Error().Err(err).Msg("mark running failed, failing job")
		w.writeTerminal(ctx, logger, func(ctx context.Context) error {
			return w.jobs.MarkFailed(ctx, task.JobID, "could not start import: "+err.Error())
		})
		return
	}

	result, runErr := w.engine.Run(ctx, task.TenantID, task.JobID.String(), bytes.NewReader(task.Payload))
	if runErr != nil {
		logger.Error().Err(runErr).Msg("import run failed")
		w.writeTerminal(ctx, logger, func(ctx context.Context) error {
			return w.jobs.MarkFailed(ctx, task.JobID, runErr.Error())
		})
		return
	}

	counts := JobCounts{
		TotalRows:     result.TotalRows,
		InsertedCount: result.InsertedCount,
		UpdatedCount:  result.UpdatedCount,
		RejectedCount: result.RejectedCount,
	}
	if ok := w.writeTerminal(ctx, logger, func(ctx context.Context) error {
		return w.jobs.MarkSucceeded(ctx, task.JobID, counts)
	}); ok {
		w.versions.Increment(task.TenantID, "import-succeeded")
	}
}

// writeTerminal attempts the terminal-state write, retrying once. A second
// failure leaves the job RUNNING for the sweep to pick up.
func (w *Worker) writeTerminal(ctx context.Context, logger zerolog.Logger, write func(context.Context) error) bool {
	err := write(ctx)
	if err == nil {
		return true
	}
	logger.Warn().Err(err).Msg("terminal state write failed, retrying once")
	if err = write(ctx); err == nil {
		return true
	}
	logger.Error().Err(err).Msg("terminal state write failed twice, job left running")
	return false
}
