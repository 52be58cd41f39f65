// Package events publishes and consumes import lifecycle notifications.
package events

import "time"

// SubjectWaybillsImported is the subject a completed import is announced on.
const SubjectWaybillsImported = "waybills.imported"

// StreamName is the JetStream stream holding import notifications.
const StreamName = "WAYBILLS"

// ImportedEvent is emitted exactly once per committed import run.
type ImportedEvent struct {
	TenantID      string    `json:"tenantId"`
	ImportJobID   string    `json:"importJobId"`
	TotalRows     int       `json:"totalRows"`
	InsertedCount int       `json:"insertedCount"`
	UpdatedCount  int       `json:"updatedCount"`
	RejectedCount int       `json:"rejectedCount"`
	OccurredAt    time.Time `json:"occurredAt"`
}
