// Package storage groups data access behind one repository surface.
package storage

import (
	"context"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
	"github.com/gekko-logistics/waybills-server/internal/imports"
	"github.com/gekko-logistics/waybills-server/internal/locks"
)

// Repository groups data access by domain. WithTx runs the closure against
// a repository bound to a single transaction.
type Repository interface {
	Waybills() waybills.Repository
	Catalog() waybills.CatalogRepository
	Imports() imports.Store
	ImportJobs() imports.JobStore
	Locks() locks.LockStore
	Audits() events.AuditStore

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
