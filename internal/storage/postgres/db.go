package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
	"github.com/gekko-logistics/waybills-server/internal/imports"
	"github.com/gekko-logistics/waybills-server/internal/locks"
	"github.com/gekko-logistics/waybills-server/internal/storage"
)

// Repository implements storage.Repository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Waybills() waybills.Repository {
	return &WaybillRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Catalog() waybills.CatalogRepository {
	return &CatalogRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Imports() imports.Store {
	return &ImportStore{repo: r}
}

func (r *Repository) ImportJobs() imports.JobStore {
	return &ImportJobRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Locks() locks.LockStore {
	return &LockRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Audits() events.AuditStore {
	return &AuditRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type WaybillRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type CatalogRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type ImportJobRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type LockRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type AuditRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
