package imports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	dateparser "github.com/markusmobius/go-dateparser"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
)

// BatchContext holds the existing entities matched by one batch's keys.
// Maps are keyed by the lowercased name or waybill number.
type BatchContext struct {
	Projects  map[string]waybills.Project
	Suppliers map[string]waybills.Supplier
	Waybills  map[string]waybills.Waybill
}

// BatchChanges is everything one reconciliation run persists. The store
// must apply it in a single transaction.
type BatchChanges struct {
	NewProjects  []waybills.Project
	NewSuppliers []waybills.Supplier
	Inserts      []waybills.Waybill
	Updates      []waybills.Waybill
}

// Store is the persistence surface the engine reconciles against.
type Store interface {
	FetchBatchContext(ctx context.Context, tenantID string, projectNames, supplierNames, waybillNumbers []string) (*BatchContext, error)
	ApplyBatch(ctx context.Context, tenantID string, changes BatchChanges) error
}

// Notifier announces a committed import. A publish failure fails the run.
type Notifier interface {
	PublishImported(ctx context.Context, event events.ImportedEvent) error
}

// Metrics receives row-level counters. May be nil.
type Metrics interface {
	ObserveImport(tenantID string, inserted, updated, rejected int)
}

// Engine validates rows and reconciles the accepted set in one batch.
type Engine struct {
	store    Store
	notifier Notifier
	metrics  Metrics
	logger   zerolog.Logger

	dateConfig *dateparser.Configuration
}

func NewEngine(store Store, notifier Notifier, metrics Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		dateConfig: &dateparser.Configuration{DefaultTimezone: time.UTC},
	}
}

// acceptedRow is a data row that passed every validation check.
type acceptedRow struct {
	lineNumber    int
	waybillNumber string
	projectName   string
	supplierName  string
	productCode   string
	waybillDate   time.Time
	deliveryDate  time.Time
	quantity      decimal.Decimal
	unitPrice     decimal.Decimal
	totalAmount   decimal.Decimal
	status        waybills.Status
}

// Run parses, validates and reconciles one CSV payload. correlationID is
// the import job id on the async path and a fresh id otherwise.
func (e *Engine) Run(ctx context.Context, tenantID, correlationID string, payload io.Reader) (*ImportResult, error) {
	rows, err := readRows(payload)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Rejected: []RejectedRow{},
		Warnings: []WarningRow{},
	}
	var accepted []acceptedRow
	for _, row := range rows {
		result.TotalRows++
		parsed, errs, warnings := e.validateRow(tenantID, row)
		if len(errs) > 0 {
			result.Rejected = append(result.Rejected, RejectedRow{RowNumber: row.lineNumber, Errors: errs})
			result.RejectedCount++
			continue
		}
		if len(warnings) > 0 {
			result.Warnings = append(result.Warnings, WarningRow{RowNumber: row.lineNumber, Warnings: warnings})
		}
		accepted = append(accepted, *parsed)
	}

	if err := e.reconcile(ctx, tenantID, accepted, result); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ObserveImport(tenantID, result.InsertedCount, result.UpdatedCount, result.RejectedCount)
	}

	event := events.ImportedEvent{
		TenantID:      tenantID,
		ImportJobID:   correlationID,
		TotalRows:     result.TotalRows,
		InsertedCount: result.InsertedCount,
		UpdatedCount:  result.UpdatedCount,
		RejectedCount: result.RejectedCount,
		OccurredAt:    time.Now().UTC(),
	}
	if err := e.notifier.PublishImported(ctx, event); err != nil {
		return nil, fmt.Errorf("publish import event: %w", err)
	}

	e.logger.Info().
		Str("tenant", tenantID).
		Str("correlation_id", correlationID).
		Int("total", result.TotalRows).
		Int("inserted", result.InsertedCount).
		Int("updated", result.UpdatedCount).
		Int("rejected", result.RejectedCount).
		Msg("import run finished")
	return result, nil
}

// validateRow accumulates every applicable error code. Only a malformed
// line short-circuits.
func (e *Engine) validateRow(tenantID string, row rawRow) (*acceptedRow, []string, []string) {
	if row.malformed {
		return nil, []string{CodeInvalidRow}, nil
	}

	var errs, warnings []string

	if rowTenant := row.get(colTenantID); rowTenant != "" && !strings.EqualFold(rowTenant, tenantID) {
		errs = append(errs, CodeTenantMismatch)
	}

	parsed := acceptedRow{
		lineNumber:    row.lineNumber,
		waybillNumber: row.get(colWaybillNumber),
		projectName:   row.get(colProjectName),
		supplierName:  row.get(colSupplierName),
		productCode:   row.get(colProductCode),
	}
	if parsed.waybillNumber == "" {
		errs = append(errs, CodeWaybillNumberRequired)
	}
	if parsed.projectName == "" {
		errs = append(errs, CodeProjectNameRequired)
	}
	if parsed.supplierName == "" {
		errs = append(errs, CodeSupplierNameRequired)
	}
	if parsed.productCode == "" {
		errs = append(errs, CodeProductCodeRequired)
	}

	waybillDate, wdErr := e.parseDate(row.get(colWaybillDate))
	if wdErr != nil {
		errs = append(errs, CodeInvalidWaybillDate)
	} else {
		parsed.waybillDate = waybillDate
	}
	deliveryDate, ddErr := e.parseDate(row.get(colDeliveryDate))
	if ddErr != nil {
		errs = append(errs, CodeInvalidDeliveryDate)
	} else {
		parsed.deliveryDate = deliveryDate
	}
	if wdErr == nil && ddErr == nil && deliveryDate.Before(waybillDate) {
		errs = append(errs, CodeDeliveryBeforeWaybill)
	}

	quantity, qtyErr := parseDecimal(row.get(colQuantity))
	if qtyErr != nil {
		errs = append(errs, CodeInvalidQuantity)
	} else {
		if !waybills.QuantityInRange(quantity) {
			errs = append(errs, CodeQuantityOutOfRange)
		}
		parsed.quantity = quantity
	}

	unitPrice, priceErr := parseDecimal(row.get(colUnitPrice))
	if priceErr != nil {
		errs = append(errs, CodeInvalidUnitPrice)
	} else {
		parsed.unitPrice = unitPrice
	}

	totalAmount, totalErr := parseDecimal(row.get(colTotalAmount))
	if totalErr != nil {
		errs = append(errs, CodeInvalidTotalAmount)
	} else {
		parsed.totalAmount = totalAmount
	}

	status, ok := waybills.ParseStatus(row.get(colStatus))
	if !ok {
		errs = append(errs, CodeInvalidStatus)
	} else {
		parsed.status = status
	}

	if qtyErr == nil && priceErr == nil && totalErr == nil &&
		!waybills.TotalMatches(quantity, unitPrice, totalAmount) {
		warnings = append(warnings, CodePriceDiscrepancy)
	}

	if len(errs) > 0 {
		return nil, errs, warnings
	}
	return &parsed, nil, warnings
}

func (e *Engine) parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	parsed, err := dateparser.Parse(e.dateConfig, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.Time, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
}

// reconcile resolves projects and suppliers, classifies each accepted row
// as insert or update, and applies everything in one batch write. Later
// rows win over earlier intra-batch duplicates.
func (e *Engine) reconcile(ctx context.Context, tenantID string, accepted []acceptedRow, result *ImportResult) error {
	if len(accepted) == 0 {
		return nil
	}

	projectNames := distinctKeys(accepted, func(r acceptedRow) string { return r.projectName })
	supplierNames := distinctKeys(accepted, func(r acceptedRow) string { return r.supplierName })
	waybillNumbers := distinctKeys(accepted, func(r acceptedRow) string { return r.waybillNumber })

	batch, err := e.store.FetchBatchContext(ctx, tenantID, projectNames, supplierNames, waybillNumbers)
	if err != nil {
		return fmt.Errorf("fetch batch context: %w", err)
	}

	var changes BatchChanges
	now := time.Now().UTC()

	// pending tracks upserts keyed by lowercased waybill number so a later
	// duplicate overwrites the earlier row instead of adding a second one.
	pending := make(map[string]*waybills.Waybill)
	pendingOrder := make([]string, 0, len(accepted))
	pendingIsInsert := make(map[string]bool)
	for _, row := range accepted {
		project, ok := batch.Projects[strings.ToLower(row.projectName)]
		if !ok {
			project = waybills.Project{
				ID:        uuid.New(),
				TenantID:  tenantID,
				Name:      row.projectName,
				CreatedAt: now,
				UpdatedAt: now,
			}
			batch.Projects[strings.ToLower(row.projectName)] = project
			changes.NewProjects = append(changes.NewProjects, project)
		}
		supplier, ok := batch.Suppliers[strings.ToLower(row.supplierName)]
		if !ok {
			supplier = waybills.Supplier{
				ID:        uuid.New(),
				TenantID:  tenantID,
				Name:      row.supplierName,
				CreatedAt: now,
				UpdatedAt: now,
			}
			batch.Suppliers[strings.ToLower(row.supplierName)] = supplier
			changes.NewSuppliers = append(changes.NewSuppliers, supplier)
		}

		key := strings.ToLower(row.waybillNumber)
		if existing, seen := pending[key]; seen {
			e.logger.Warn().
				Str("tenant", tenantID).
				Str("waybill_number", row.waybillNumber).
				Int("row", row.lineNumber).
				Msg("duplicate waybill number in batch, later row wins")
			applyRow(existing, row, project.ID, supplier.ID, now)
			result.UpdatedCount++
			continue
		}

		record, exists := batch.Waybills[key]
		if !exists {
			record = waybills.Waybill{
				ID:            uuid.New(),
				TenantID:      tenantID,
				WaybillNumber: row.waybillNumber,
				RowToken:      waybills.NewRowToken(),
				CreatedAt:     now,
			}
			result.InsertedCount++
		} else {
			record.RowToken = waybills.NewRowToken()
			result.UpdatedCount++
		}
		applyRow(&record, row, project.ID, supplier.ID, now)

		pending[key] = &record
		pendingOrder = append(pendingOrder, key)
		pendingIsInsert[key] = !exists
	}

	for _, key := range pendingOrder {
		if pendingIsInsert[key] {
			changes.Inserts = append(changes.Inserts, *pending[key])
		} else {
			changes.Updates = append(changes.Updates, *pending[key])
		}
	}

	if err := e.store.ApplyBatch(ctx, tenantID, changes); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

func applyRow(record *waybills.Waybill, row acceptedRow, projectID, supplierID uuid.UUID, now time.Time) {
	record.ProjectID = projectID
	record.SupplierID = supplierID
	record.WaybillDate = row.waybillDate
	record.DeliveryDate = row.deliveryDate
	record.ProductCode = row.productCode
	record.Quantity = row.quantity
	record.UnitPrice = row.unitPrice
	record.TotalAmount = row.totalAmount
	record.Status = row.status
	record.UpdatedAt = now
}

func distinctKeys(rows []acceptedRow, key func(acceptedRow) string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, row := range rows {
		k := strings.ToLower(key(row))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, key(row))
	}
	return keys
}
