package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
)

var _ waybills.Repository = (*WaybillRepository)(nil)

const waybillColumns = `
w.id, w.tenant_id, w.waybill_number, w.project_id, w.supplier_id,
w.waybill_date, w.delivery_date, w.product_code,
w.quantity::text, w.unit_price::text, w.total_amount::text,
w.status, w.row_token, w.created_at, w.updated_at,
p.name, s.name`

func (r *WaybillRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func scanListItem(row pgx.Row) (*waybills.ListItem, error) {
	var item waybills.ListItem
	var quantity, unitPrice, totalAmount string
	err := row.Scan(
		&item.ID,
		&item.TenantID,
		&item.WaybillNumber,
		&item.ProjectID,
		&item.SupplierID,
		&item.WaybillDate,
		&item.DeliveryDate,
		&item.ProductCode,
		&quantity,
		&unitPrice,
		&totalAmount,
		&item.Status,
		&item.RowToken,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.ProjectName,
		&item.SupplierName,
	)
	if err != nil {
		return nil, err
	}
	if item.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit price: %w", err)
	}
	if item.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	return &item, nil
}

// scanWaybill reads a bare waybill row without the joined names.
func scanWaybill(row pgx.Row) (*waybills.Waybill, error) {
	var record waybills.Waybill
	var quantity, unitPrice, totalAmount string
	err := row.Scan(
		&record.ID,
		&record.TenantID,
		&record.WaybillNumber,
		&record.ProjectID,
		&record.SupplierID,
		&record.WaybillDate,
		&record.DeliveryDate,
		&record.ProductCode,
		&quantity,
		&unitPrice,
		&totalAmount,
		&record.Status,
		&record.RowToken,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if record.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	if record.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit price: %w", err)
	}
	if record.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	return &record, nil
}

func (r *WaybillRepository) List(ctx context.Context, tenantID string, filters waybills.Filters, page waybills.Page) (waybills.ListResult, error) {
	q := r.queryer()

	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = waybills.DefaultPageSize
	}
	offset := (page.Number - 1) * page.Size

	status := ""
	if filters.Status != nil {
		status = string(*filters.Status)
	}
	var total int
	if err := q.QueryRow(ctx, `
SELECT COUNT(*)
  FROM waybills w
  JOIN projects p ON p.id = w.project_id
  JOIN suppliers s ON s.id = w.supplier_id
 WHERE w.tenant_id = $1
   AND ($2 = '' OR w.status = $2)
   AND ($3::date IS NULL OR w.waybill_date >= $3::date)
   AND ($4::date IS NULL OR w.waybill_date <= $4::date)
   AND ($5::date IS NULL OR w.delivery_date >= $5::date)
   AND ($6::date IS NULL OR w.delivery_date <= $6::date)
   AND ($7::uuid IS NULL OR w.project_id = $7::uuid)
   AND ($8::uuid IS NULL OR w.supplier_id = $8::uuid)
   AND ($9 = '' OR w.product_code = $9)
   AND ($10 = '' OR p.name ILIKE '%' || $10 || '%' OR s.name ILIKE '%' || $10 || '%')
`,
		tenantID,
		status,
		filters.WaybillDateFrom,
		filters.WaybillDateTo,
		filters.DeliveryDateFrom,
		filters.DeliveryDateTo,
		filters.ProjectID,
		filters.SupplierID,
		filters.ProductCode,
		filters.Search,
	).Scan(&total); err != nil {
		return waybills.ListResult{}, fmt.Errorf("count waybills: %w", err)
	}

	rows, err := q.Query(ctx, `
SELECT `+waybillColumns+`
  FROM waybills w
  JOIN projects p ON p.id = w.project_id
  JOIN suppliers s ON s.id = w.supplier_id
 WHERE w.tenant_id = $1
   AND ($2 = '' OR w.status = $2)
   AND ($3::date IS NULL OR w.waybill_date >= $3::date)
   AND ($4::date IS NULL OR w.waybill_date <= $4::date)
   AND ($5::date IS NULL OR w.delivery_date >= $5::date)
   AND ($6::date IS NULL OR w.delivery_date <= $6::date)
   AND ($7::uuid IS NULL OR w.project_id = $7::uuid)
   AND ($8::uuid IS NULL OR w.supplier_id = $8::uuid)
   AND ($9 = '' OR w.product_code = $9)
   AND ($10 = '' OR p.name ILIKE '%' || $10 || '%' OR s.name ILIKE '%' || $10 || '%')
 ORDER BY w.delivery_date DESC, w.waybill_date DESC, w.waybill_number ASC
 LIMIT $11 OFFSET $12
`,
		tenantID,
		status,
		filters.WaybillDateFrom,
		filters.WaybillDateTo,
		filters.DeliveryDateFrom,
		filters.DeliveryDateTo,
		filters.ProjectID,
		filters.SupplierID,
		filters.ProductCode,
		filters.Search,
		page.Size,
		offset,
	)
	if err != nil {
		return waybills.ListResult{}, fmt.Errorf("list waybills: %w", err)
	}
	defer rows.Close()

	items := make([]waybills.ListItem, 0, page.Size)
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return waybills.ListResult{}, fmt.Errorf("scan waybill: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return waybills.ListResult{}, fmt.Errorf("list waybills: %w", err)
	}

	return waybills.ListResult{
		Items:      items,
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}, nil
}

func (r *WaybillRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*waybills.ListItem, error) {
	item, err := scanListItem(r.queryer().QueryRow(ctx, `
SELECT `+waybillColumns+`
  FROM waybills w
  JOIN projects p ON p.id = w.project_id
  JOIN suppliers s ON s.id = w.supplier_id
 WHERE w.tenant_id = $1 AND w.id = $2
`, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, waybills.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get waybill: %w", err)
	}
	return item, nil
}

func (r *WaybillRepository) ListByProject(ctx context.Context, tenantID string, projectID uuid.UUID) ([]waybills.ListItem, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+waybillColumns+`
  FROM waybills w
  JOIN projects p ON p.id = w.project_id
  JOIN suppliers s ON s.id = w.supplier_id
 WHERE w.tenant_id = $1 AND w.project_id = $2
 ORDER BY w.delivery_date DESC, w.waybill_date DESC
`, tenantID, projectID)
	if err != nil {
		return nil, fmt.Errorf("list waybills by project: %w", err)
	}
	defer rows.Close()

	items := make([]waybills.ListItem, 0)
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waybill: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *WaybillRepository) ReplaceChecked(ctx context.Context, tenantID string, id uuid.UUID, expectedToken string, fields waybills.UpdateFields, newToken string) (bool, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE waybills
   SET delivery_date = $1,
       product_code = $2,
       quantity = $3::numeric,
       unit_price = $4::numeric,
       total_amount = $5::numeric,
       status = $6,
       row_token = $7,
       updated_at = now()
 WHERE tenant_id = $8 AND id = $9 AND row_token = $10
`,
		fields.DeliveryDate,
		fields.ProductCode,
		fields.Quantity.String(),
		fields.UnitPrice.String(),
		fields.TotalAmount.String(),
		string(fields.Status),
		newToken,
		tenantID,
		id,
		expectedToken,
	)
	if err != nil {
		return false, fmt.Errorf("replace waybill: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WaybillRepository) Summary(ctx context.Context, tenantID string) (*waybills.Summary, error) {
	q := r.queryer()
	summary := &waybills.Summary{
		StatusTotals:           []waybills.StatusTotals{},
		MonthlyTotals:          []waybills.MonthlyTotals{},
		TopSuppliersByQuantity: []waybills.TopSupplier{},
		ProjectTotals:          []waybills.ProjectTotals{},
	}

	rows, err := q.Query(ctx, `
SELECT status, COALESCE(SUM(quantity), 0)::text, COALESCE(SUM(total_amount), 0)::text
  FROM waybills
 WHERE tenant_id = $1
 GROUP BY status
 ORDER BY status
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("status totals: %w", err)
	}
	summary.StatusTotals, err = scanStatusTotals(rows)
	if err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
SELECT EXTRACT(YEAR FROM delivery_date)::int,
       EXTRACT(MONTH FROM delivery_date)::int,
       COALESCE(SUM(quantity), 0)::text,
       COALESCE(SUM(total_amount), 0)::text
  FROM waybills
 WHERE tenant_id = $1
 GROUP BY 1, 2
 ORDER BY 1, 2
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var monthly waybills.MonthlyTotals
		var quantity, amount string
		if err := rows.Scan(&monthly.Year, &monthly.Month, &quantity, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		if monthly.TotalQuantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if monthly.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		summary.MonthlyTotals = append(summary.MonthlyTotals, monthly)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}

	rows, err = q.Query(ctx, `
SELECT s.id, s.name, COALESCE(SUM(w.quantity), 0)::text
  FROM waybills w
  JOIN suppliers s ON s.id = w.supplier_id
 WHERE w.tenant_id = $1
 GROUP BY s.id, s.name
 ORDER BY SUM(w.quantity) DESC
 LIMIT 5
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("top suppliers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var top waybills.TopSupplier
		var quantity string
		if err := rows.Scan(&top.SupplierID, &top.SupplierName, &quantity); err != nil {
			return nil, fmt.Errorf("scan top suppliers: %w", err)
		}
		if top.TotalQuantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		summary.TopSuppliersByQuantity = append(summary.TopSuppliersByQuantity, top)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top suppliers: %w", err)
	}

	rows, err = q.Query(ctx, `
SELECT p.id, p.name, COALESCE(SUM(w.quantity), 0)::text, COALESCE(SUM(w.total_amount), 0)::text
  FROM waybills w
  JOIN projects p ON p.id = w.project_id
 WHERE w.tenant_id = $1
 GROUP BY p.id, p.name
 ORDER BY p.name
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("project totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var project waybills.ProjectTotals
		var quantity, amount string
		if err := rows.Scan(&project.ProjectID, &project.ProjectName, &quantity, &amount); err != nil {
			return nil, fmt.Errorf("scan project totals: %w", err)
		}
		if project.TotalQuantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if project.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		summary.ProjectTotals = append(summary.ProjectTotals, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("project totals: %w", err)
	}

	return summary, nil
}

func (r *WaybillRepository) SupplierSummary(ctx context.Context, tenantID string, supplierID uuid.UUID) (*waybills.SupplierSummary, error) {
	q := r.queryer()
	summary := &waybills.SupplierSummary{
		SupplierID:        supplierID,
		TotalQuantity:     decimal.Zero,
		TotalAmount:       decimal.Zero,
		BreakdownByStatus: []waybills.StatusTotals{},
	}

	var quantity, amount string
	err := q.QueryRow(ctx, `
SELECT COALESCE(SUM(quantity), 0)::text, COALESCE(SUM(total_amount), 0)::text
  FROM waybills
 WHERE tenant_id = $1 AND supplier_id = $2
`, tenantID, supplierID).Scan(&quantity, &amount)
	if err != nil {
		return nil, fmt.Errorf("supplier totals: %w", err)
	}
	if summary.TotalQuantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, err
	}
	if summary.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
SELECT status, COALESCE(SUM(quantity), 0)::text, COALESCE(SUM(total_amount), 0)::text
  FROM waybills
 WHERE tenant_id = $1 AND supplier_id = $2
 GROUP BY status
 ORDER BY status
`, tenantID, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier status totals: %w", err)
	}
	summary.BreakdownByStatus, err = scanStatusTotals(rows)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func scanStatusTotals(rows pgx.Rows) ([]waybills.StatusTotals, error) {
	defer rows.Close()
	totals := []waybills.StatusTotals{}
	for rows.Next() {
		var entry waybills.StatusTotals
		var quantity, amount string
		if err := rows.Scan(&entry.Status, &quantity, &amount); err != nil {
			return nil, fmt.Errorf("scan status totals: %w", err)
		}
		var err error
		if entry.TotalQuantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if entry.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		totals = append(totals, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status totals: %w", err)
	}
	return totals, nil
}

// insertWaybill is used by the import batch writer.
func insertWaybill(ctx context.Context, q queryer, record waybills.Waybill) error {
	_, err := q.Exec(ctx, `
INSERT INTO waybills (
    id, tenant_id, waybill_number, project_id, supplier_id,
    waybill_date, delivery_date, product_code,
    quantity, unit_price, total_amount, status, row_token,
    created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12, $13, $14, $15)
`,
		record.ID,
		record.TenantID,
		record.WaybillNumber,
		record.ProjectID,
		record.SupplierID,
		record.WaybillDate,
		record.DeliveryDate,
		record.ProductCode,
		record.Quantity.String(),
		record.UnitPrice.String(),
		record.TotalAmount.String(),
		string(record.Status),
		record.RowToken,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert waybill %s: %w", record.WaybillNumber, err)
	}
	return nil
}

func updateWaybill(ctx context.Context, q queryer, record waybills.Waybill) error {
	_, err := q.Exec(ctx, `
UPDATE waybills
   SET project_id = $1,
       supplier_id = $2,
       waybill_date = $3,
       delivery_date = $4,
       product_code = $5,
       quantity = $6::numeric,
       unit_price = $7::numeric,
       total_amount = $8::numeric,
       status = $9,
       row_token = $10,
       updated_at = $11
 WHERE tenant_id = $12 AND lower(waybill_number) = lower($13)
`,
		record.ProjectID,
		record.SupplierID,
		record.WaybillDate,
		record.DeliveryDate,
		record.ProductCode,
		record.Quantity.String(),
		record.UnitPrice.String(),
		record.TotalAmount.String(),
		string(record.Status),
		record.RowToken,
		record.UpdatedAt,
		record.TenantID,
		record.WaybillNumber,
	)
	if err != nil {
		return fmt.Errorf("update waybill %s: %w", record.WaybillNumber, err)
	}
	return nil
}
