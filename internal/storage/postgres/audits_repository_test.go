package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gekko-logistics/waybills-server/internal/events"
)

func seedAudit(t *testing.T, ctx context.Context, repo *AuditRepository, tenantID string, receivedAt time.Time) *events.ImportAudit {
	t.Helper()
	audit := &events.ImportAudit{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ImportJobID:   uuid.NewString(),
		TotalRows:     5,
		InsertedCount: 3,
		UpdatedCount:  1,
		RejectedCount: 1,
		OccurredAt:    receivedAt.Add(-time.Second),
		ReceivedAt:    receivedAt,
	}
	require.NoError(t, repo.Insert(ctx, audit))
	return audit
}

func TestAuditRepositoryInsertAndList(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := &AuditRepository{pool: pool}

	now := time.Now().UTC().Truncate(time.Millisecond)
	oldest := seedAudit(t, ctx, repo, "acme", now.Add(-2*time.Hour))
	middle := seedAudit(t, ctx, repo, "acme", now.Add(-time.Hour))
	newest := seedAudit(t, ctx, repo, "acme", now)
	seedAudit(t, ctx, repo, "globex", now)

	audits, err := repo.ListByTenant(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, audits, 3)
	require.Equal(t, newest.ID, audits[0].ID)
	require.Equal(t, middle.ID, audits[1].ID)
	require.Equal(t, oldest.ID, audits[2].ID)
	require.Equal(t, 5, audits[0].TotalRows)
	require.Equal(t, 3, audits[0].InsertedCount)

	limited, err := repo.ListByTenant(ctx, "acme", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, newest.ID, limited[0].ID)
}

func TestAuditRepositoryDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := &AuditRepository{pool: pool}

	now := time.Now().UTC()
	seedAudit(t, ctx, repo, "acme", now.Add(-100*24*time.Hour))
	seedAudit(t, ctx, repo, "acme", now.Add(-91*24*time.Hour))
	kept := seedAudit(t, ctx, repo, "acme", now.Add(-time.Hour))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	audits, err := repo.ListByTenant(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	require.Equal(t, kept.ID, audits[0].ID)
}
