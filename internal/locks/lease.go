// Package locks provides tenant-scoped lease locks backed by the store.
package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LockNameMonthlyReport guards the monthly report generation endpoint.
const LockNameMonthlyReport = "MONTHLY_REPORT"

// Lease is one acquired lock row.
type Lease struct {
	TenantID   string
	Name       string
	Holder     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// LockStore persists leases. TryAcquire must be a single atomic statement:
// it succeeds when no row exists or the existing row has expired, and
// reports false otherwise.
type LockStore interface {
	TryAcquire(ctx context.Context, lease Lease) (bool, error)
	Release(ctx context.Context, tenantID, name string) error
}

// Service coordinates mutually exclusive work per (tenant, lock name).
type Service struct {
	store  LockStore
	logger zerolog.Logger
}

func NewService(store LockStore, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// TryAcquire attempts to take the lease for the given duration. It never
// blocks; contention returns false.
func (s *Service) TryAcquire(ctx context.Context, tenantID, name string, duration time.Duration, holder string) (bool, error) {
	if duration <= 0 {
		return false, fmt.Errorf("lease duration must be positive")
	}
	now := time.Now().UTC()
	lease := Lease{
		TenantID:   tenantID,
		Name:       name,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(duration),
	}
	acquired, err := s.store.TryAcquire(ctx, lease)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s/%s: %w", tenantID, name, err)
	}
	if !acquired {
		s.logger.Debug().
			Str("tenant", tenantID).
			Str("lock", name).
			Msg("lease held elsewhere")
	}
	return acquired, nil
}

// Release drops the lease. Releasing a lease that does not exist is not an
// error.
func (s *Service) Release(ctx context.Context, tenantID, name string) error {
	if err := s.store.Release(ctx, tenantID, name); err != nil {
		return fmt.Errorf("release lease %s/%s: %w", tenantID, name, err)
	}
	return nil
}
