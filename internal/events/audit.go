package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportAudit is the durable record written for every received import
// notification. Consumers are at-least-once, so rows may occasionally
// duplicate; readers treat them as a log, not a ledger.
type ImportAudit struct {
	ID            uuid.UUID `json:"id"`
	TenantID      string    `json:"tenantId"`
	ImportJobID   string    `json:"importJobId"`
	TotalRows     int       `json:"totalRows"`
	InsertedCount int       `json:"insertedCount"`
	UpdatedCount  int       `json:"updatedCount"`
	RejectedCount int       `json:"rejectedCount"`
	OccurredAt    time.Time `json:"occurredAt"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// AuditStore persists and serves audit rows.
type AuditStore interface {
	Insert(ctx context.Context, audit *ImportAudit) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]ImportAudit, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewAuditFromEvent builds the audit row for a received event.
func NewAuditFromEvent(event ImportedEvent) *ImportAudit {
	return &ImportAudit{
		ID:            uuid.New(),
		TenantID:      event.TenantID,
		ImportJobID:   event.ImportJobID,
		TotalRows:     event.TotalRows,
		InsertedCount: event.InsertedCount,
		UpdatedCount:  event.UpdatedCount,
		RejectedCount: event.RejectedCount,
		OccurredAt:    event.OccurredAt,
		ReceivedAt:    time.Now().UTC(),
	}
}
