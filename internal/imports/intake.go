package imports

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Intake owns the async submission path: persist the QUEUED job row, then
// hand the payload to the queue. The caller only sees the job id once the
// row is durable.
type Intake struct {
	jobs   JobStore
	queue  *Queue
	logger zerolog.Logger
}

func NewIntake(jobs JobStore, queue *Queue, logger zerolog.Logger) *Intake {
	return &Intake{jobs: jobs, queue: queue, logger: logger}
}

func (i *Intake) Submit(ctx context.Context, tenantID string, payload []byte) (*ImportJob, error) {
	job := NewImportJob(tenantID)
	if err := i.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	task := Task{JobID: job.ID, TenantID: tenantID, Payload: payload}
	if err := i.queue.Enqueue(ctx, task); err != nil {
		// The row exists but will never run. Mark it failed so the poller
		// sees a terminal state instead of a job stuck in QUEUED.
		if markErr := i.jobs.MarkFailed(ctx, job.ID, "import queue full"); markErr != nil {
			i.logger.Error().Err(markErr).
				Str("job_id", job.ID.String()).
				Msg("failed to mark overflowed job")
		}
		return nil, err
	}
	return job, nil
}
