package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gekko-logistics/waybills-server/internal/events"
)

var _ events.AuditStore = (*AuditRepository)(nil)

func (r *AuditRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *AuditRepository) Insert(ctx context.Context, audit *events.ImportAudit) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO import_audits (
    id, tenant_id, import_job_id,
    total_rows, inserted_count, updated_count, rejected_count,
    occurred_at, received_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`,
		audit.ID,
		audit.TenantID,
		audit.ImportJobID,
		audit.TotalRows,
		audit.InsertedCount,
		audit.UpdatedCount,
		audit.RejectedCount,
		audit.OccurredAt,
		audit.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import audit: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]events.ImportAudit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.queryer().Query(ctx, `
SELECT id, tenant_id, import_job_id,
       total_rows, inserted_count, updated_count, rejected_count,
       occurred_at, received_at
  FROM import_audits
 WHERE tenant_id = $1
 ORDER BY received_at DESC
 LIMIT $2
`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list import audits: %w", err)
	}
	defer rows.Close()

	audits := make([]events.ImportAudit, 0, limit)
	for rows.Next() {
		var audit events.ImportAudit
		if err := rows.Scan(
			&audit.ID,
			&audit.TenantID,
			&audit.ImportJobID,
			&audit.TotalRows,
			&audit.InsertedCount,
			&audit.UpdatedCount,
			&audit.RejectedCount,
			&audit.OccurredAt,
			&audit.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import audit: %w", err)
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.queryer().Exec(ctx, `
DELETE FROM import_audits WHERE received_at < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete import audits: %w", err)
	}
	return tag.RowsAffected(), nil
}
