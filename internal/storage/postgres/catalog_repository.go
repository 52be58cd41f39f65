package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
)

var _ waybills.CatalogRepository = (*CatalogRepository)(nil)

func (r *CatalogRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *CatalogRepository) ListProjects(ctx context.Context, tenantID string) ([]waybills.Project, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, tenant_id, name, created_at, updated_at
  FROM projects
 WHERE tenant_id = $1
 ORDER BY name
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]waybills.Project, 0)
	for rows.Next() {
		var project waybills.Project
		if err := rows.Scan(&project.ID, &project.TenantID, &project.Name, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *CatalogRepository) GetProject(ctx context.Context, tenantID string, id uuid.UUID) (*waybills.Project, error) {
	var project waybills.Project
	err := r.queryer().QueryRow(ctx, `
SELECT id, tenant_id, name, created_at, updated_at
  FROM projects
 WHERE tenant_id = $1 AND id = $2
`, tenantID, id).Scan(&project.ID, &project.TenantID, &project.Name, &project.CreatedAt, &project.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, waybills.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

func (r *CatalogRepository) ListSuppliers(ctx context.Context, tenantID string) ([]waybills.Supplier, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, tenant_id, name, created_at, updated_at
  FROM suppliers
 WHERE tenant_id = $1
 ORDER BY name
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]waybills.Supplier, 0)
	for rows.Next() {
		var supplier waybills.Supplier
		if err := rows.Scan(&supplier.ID, &supplier.TenantID, &supplier.Name, &supplier.CreatedAt, &supplier.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

func (r *CatalogRepository) GetSupplier(ctx context.Context, tenantID string, id uuid.UUID) (*waybills.Supplier, error) {
	var supplier waybills.Supplier
	err := r.queryer().QueryRow(ctx, `
SELECT id, tenant_id, name, created_at, updated_at
  FROM suppliers
 WHERE tenant_id = $1 AND id = $2
`, tenantID, id).Scan(&supplier.ID, &supplier.TenantID, &supplier.Name, &supplier.CreatedAt, &supplier.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, waybills.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &supplier, nil
}
