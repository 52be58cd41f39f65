package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/gekko-logistics/waybills-server/internal/events"
)

// DefaultAuditRetention is how long audit rows are kept.
const DefaultAuditRetention = 90 * 24 * time.Hour

// ImportAuditCleanupArgs defines the daily audit retention job.
type ImportAuditCleanupArgs struct{}

func (ImportAuditCleanupArgs) Kind() string { return JobKindImportAuditCleanup }

// ImportAuditCleanupWorker deletes audit rows past the retention window.
type ImportAuditCleanupWorker struct {
	river.WorkerDefaults[ImportAuditCleanupArgs]
	Audits    events.AuditStore
	Retention time.Duration
	Logger    *slog.Logger
}

func (ImportAuditCleanupWorker) Kind() string { return JobKindImportAuditCleanup }

func (w ImportAuditCleanupWorker) Work(ctx context.Context, job *river.Job[ImportAuditCleanupArgs]) error {
	if w.Audits == nil {
		return fmt.Errorf("audit store not configured")
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retention := w.Retention
	if retention <= 0 {
		retention = DefaultAuditRetention
	}

	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := w.Audits.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete old import audits: %w", err)
	}

	logger.Info("import audit cleanup completed",
		"deleted_count", deleted,
		"retention", retention.String(),
		"attempt", job.Attempt,
	)
	return nil
}
