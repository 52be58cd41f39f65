package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gekko-logistics/waybills-server/internal/imports"
)

var _ imports.JobStore = (*ImportJobRepository)(nil)

func (r *ImportJobRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *ImportJobRepository) Create(ctx context.Context, job *imports.ImportJob) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO import_jobs (
    id, tenant_id, status, progress,
    total_rows, inserted_count, updated_count, rejected_count,
    error, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`,
		job.ID,
		job.TenantID,
		string(job.Status),
		job.Progress,
		job.TotalRows,
		job.InsertedCount,
		job.UpdatedCount,
		job.RejectedCount,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (*imports.ImportJob, error) {
	var job imports.ImportJob
	err := r.queryer().QueryRow(ctx, `
SELECT id, tenant_id, status, progress,
       total_rows, inserted_count, updated_count, rejected_count,
       error, created_at, updated_at
  FROM import_jobs
 WHERE tenant_id = $1 AND id = $2
`, tenantID, id).Scan(
		&job.ID,
		&job.TenantID,
		&job.Status,
		&job.Progress,
		&job.TotalRows,
		&job.InsertedCount,
		&job.UpdatedCount,
		&job.RejectedCount,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, imports.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return &job, nil
}

func (r *ImportJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE import_jobs
   SET status = 'RUNNING', progress = 10, updated_at = now()
 WHERE id = $1 AND status = 'QUEUED'
`, id)
	if err != nil {
		return fmt.Errorf("mark import job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import job %s is not queued", id)
	}
	return nil
}

func (r *ImportJobRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, counts imports.JobCounts) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE import_jobs
   SET status = 'SUCCEEDED', progress = 100,
       total_rows = $2, inserted_count = $3, updated_count = $4, rejected_count = $5,
       error = '', updated_at = now()
 WHERE id = $1 AND status = 'RUNNING'
`, id, counts.TotalRows, counts.InsertedCount, counts.UpdatedCount, counts.RejectedCount)
	if err != nil {
		return fmt.Errorf("mark import job succeeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import job %s is not running", id)
	}
	return nil
}

func (r *ImportJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE import_jobs
   SET status = 'FAILED', progress = 100, error = $2, updated_at = now()
 WHERE id = $1 AND status IN ('QUEUED', 'RUNNING')
`, id, message)
	if err != nil {
		return fmt.Errorf("mark import job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import job %s is already terminal", id)
	}
	return nil
}

func (r *ImportJobRepository) FailStuck(ctx context.Context, cutoff time.Time, message string) (int, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE import_jobs
   SET status = 'FAILED', progress = 100, error = $2, updated_at = now()
 WHERE status = 'RUNNING' AND updated_at < $1
`, cutoff, message)
	if err != nil {
		return 0, fmt.Errorf("fail stuck import jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
