package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/imports"
	"github.com/gekko-logistics/waybills-server/internal/storage"
)

var _ imports.Store = (*ImportStore)(nil)

// ImportStore serves the reconciliation engine: three set-membership reads
// up front, then one transactional batch write.
type ImportStore struct {
	repo *Repository
}

func (s *ImportStore) queryer() queryer {
	if s.repo.tx != nil {
		return s.repo.tx
	}
	return s.repo.pool
}

func (s *ImportStore) FetchBatchContext(ctx context.Context, tenantID string, projectNames, supplierNames, waybillNumbers []string) (*imports.BatchContext, error) {
	q := s.queryer()
	batch := &imports.BatchContext{
		Projects:  make(map[string]waybills.Project),
		Suppliers: make(map[string]waybills.Supplier),
		Waybills:  make(map[string]waybills.Waybill),
	}

	if len(projectNames) > 0 {
		rows, err := q.Query(ctx, `
SELECT id, tenant_id, name, created_at, updated_at
  FROM projects
 WHERE tenant_id = $1 AND lower(name) = ANY($2)
`, tenantID, lowered(projectNames))
		if err != nil {
			return nil, fmt.Errorf("fetch projects: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var project waybills.Project
			if err := rows.Scan(&project.ID, &project.TenantID, &project.Name, &project.CreatedAt, &project.UpdatedAt); err != nil {
				return nil, fmt.Errorf("scan project: %w", err)
			}
			batch.Projects[strings.ToLower(project.Name)] = project
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("fetch projects: %w", err)
		}
	}

	if len(supplierNames) > 0 {
		rows, err := q.Query(ctx, `
SELECT id, tenant_id, name, created_at, updated_at
  FROM suppliers
 WHERE tenant_id = $1 AND lower(name) = ANY($2)
`, tenantID, lowered(supplierNames))
		if err != nil {
			return nil, fmt.Errorf("fetch suppliers: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var supplier waybills.Supplier
			if err := rows.Scan(&supplier.ID, &supplier.TenantID, &supplier.Name, &supplier.CreatedAt, &supplier.UpdatedAt); err != nil {
				return nil, fmt.Errorf("scan supplier: %w", err)
			}
			batch.Suppliers[strings.ToLower(supplier.Name)] = supplier
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("fetch suppliers: %w", err)
		}
	}

	if len(waybillNumbers) > 0 {
		rows, err := q.Query(ctx, `
SELECT id, tenant_id, waybill_number, project_id, supplier_id,
       waybill_date, delivery_date, product_code,
       quantity::text, unit_price::text, total_amount::text,
       status, row_token, created_at, updated_at
  FROM waybills
 WHERE tenant_id = $1 AND lower(waybill_number) = ANY($2)
`, tenantID, lowered(waybillNumbers))
		if err != nil {
			return nil, fmt.Errorf("fetch waybills: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			record, err := scanWaybill(rows)
			if err != nil {
				return nil, fmt.Errorf("scan waybill: %w", err)
			}
			batch.Waybills[strings.ToLower(record.WaybillNumber)] = *record
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("fetch waybills: %w", err)
		}
	}

	return batch, nil
}

// ApplyBatch persists all reconciliation changes in one transaction.
func (s *ImportStore) ApplyBatch(ctx context.Context, tenantID string, changes imports.BatchChanges) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, txRepo storage.Repository) error {
		tx := txRepo.(*Repository).tx

		for _, project := range changes.NewProjects {
			if _, err := tx.Exec(ctx, `
INSERT INTO projects (id, tenant_id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`, project.ID, project.TenantID, project.Name, project.CreatedAt, project.UpdatedAt); err != nil {
				return fmt.Errorf("insert project %s: %w", project.Name, err)
			}
		}
		for _, supplier := range changes.NewSuppliers {
			if _, err := tx.Exec(ctx, `
INSERT INTO suppliers (id, tenant_id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`, supplier.ID, supplier.TenantID, supplier.Name, supplier.CreatedAt, supplier.UpdatedAt); err != nil {
				return fmt.Errorf("insert supplier %s: %w", supplier.Name, err)
			}
		}
		for _, record := range changes.Inserts {
			if err := insertWaybill(ctx, tx, record); err != nil {
				return err
			}
		}
		for _, record := range changes.Updates {
			if err := updateWaybill(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = strings.ToLower(value)
	}
	return out
}
