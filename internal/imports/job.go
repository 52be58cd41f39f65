package imports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the import job lifecycle state. Transitions are one way:
// QUEUED to RUNNING to SUCCEEDED or FAILED.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
)

const (
	progressQueued  = 0
	progressRunning = 10
	progressDone    = 100
)

// ErrJobNotFound is returned when a job id does not exist for the tenant.
var ErrJobNotFound = errors.New("import job not found")

// ImportJob is the durable record of one async import. Jobs are retained
// for polling and audit, never deleted by the pipeline.
type ImportJob struct {
	ID            uuid.UUID `json:"id"`
	TenantID      string    `json:"tenantId"`
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progress"`
	TotalRows     int       `json:"totalRows"`
	InsertedCount int       `json:"insertedCount"`
	UpdatedCount  int       `json:"updatedCount"`
	RejectedCount int       `json:"rejectedCount"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewImportJob builds a QUEUED job for the tenant.
func NewImportJob(tenantID string) *ImportJob {
	now := time.Now().UTC()
	return &ImportJob{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Status:    JobQueued,
		Progress:  progressQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobCounts mirrors an ImportResult's aggregates into the job row.
type JobCounts struct {
	TotalRows     int
	InsertedCount int
	UpdatedCount  int
	RejectedCount int
}

// JobStore persists import jobs. Only the single worker writes state
// transitions; Get serves the polling endpoint.
type JobStore interface {
	Create(ctx context.Context, job *ImportJob) error
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*ImportJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID, counts JobCounts) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// FailStuck moves RUNNING jobs whose last update is older than the
	// cutoff to FAILED with the given message, returning how many changed.
	FailStuck(ctx context.Context, cutoff time.Time, message string) (int, error)
}
