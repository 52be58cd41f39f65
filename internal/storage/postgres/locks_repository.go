package postgres

import (
	"context"
	"fmt"

	"github.com/gekko-logistics/waybills-server/internal/locks"
)

var _ locks.LockStore = (*LockRepository)(nil)

func (r *LockRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// TryAcquire is one atomic statement: the insert wins when no row exists,
// and the conflict update only fires when the existing lease has expired.
// Rows affected decides the outcome, so two racing callers cannot both
// acquire.
func (r *LockRepository) TryAcquire(ctx context.Context, lease locks.Lease) (bool, error) {
	tag, err := r.queryer().Exec(ctx, `
INSERT INTO execution_locks (tenant_id, lock_name, holder, acquired_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id, lock_name) DO UPDATE
   SET holder = EXCLUDED.holder,
       acquired_at = EXCLUDED.acquired_at,
       expires_at = EXCLUDED.expires_at
 WHERE execution_locks.expires_at < now()
`,
		lease.TenantID,
		lease.Name,
		lease.Holder,
		lease.AcquiredAt,
		lease.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LockRepository) Release(ctx context.Context, tenantID, name string) error {
	if _, err := r.queryer().Exec(ctx, `
DELETE FROM execution_locks WHERE tenant_id = $1 AND lock_name = $2
`, tenantID, name); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
