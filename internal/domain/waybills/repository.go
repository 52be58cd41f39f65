package waybills

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("waybill not found")

// ErrConflict signals that the stored row token no longer matches the one
// the caller read; the caller must reload and retry.
var ErrConflict = errors.New("waybill was modified concurrently")

// Filters narrows waybill listings. Zero values mean "no filter".
type Filters struct {
	Status           *Status
	WaybillDateFrom  *time.Time
	WaybillDateTo    *time.Time
	DeliveryDateFrom *time.Time
	DeliveryDateTo   *time.Time
	ProjectID        *uuid.UUID
	SupplierID       *uuid.UUID
	ProductCode      string
	// Search matches project or supplier names, case-insensitively.
	Search string
}

// Page is 1-based offset pagination.
type Page struct {
	Number int
	Size   int
}

// ListItem is a waybill joined with its project and supplier names.
type ListItem struct {
	Waybill
	ProjectName  string
	SupplierName string
}

type ListResult struct {
	Items      []ListItem
	TotalCount int
	Page       int
	PageSize   int
}

// StatusTotals aggregates quantity and amount for one status.
type StatusTotals struct {
	Status        Status
	TotalQuantity decimal.Decimal
	TotalAmount   decimal.Decimal
}

// MonthlyTotals aggregates by delivery month.
type MonthlyTotals struct {
	Year          int
	Month         int
	TotalQuantity decimal.Decimal
	TotalAmount   decimal.Decimal
}

type ProjectTotals struct {
	ProjectID     uuid.UUID
	ProjectName   string
	TotalQuantity decimal.Decimal
	TotalAmount   decimal.Decimal
}

type TopSupplier struct {
	SupplierID    uuid.UUID
	SupplierName  string
	TotalQuantity decimal.Decimal
}

// Summary is the aggregated tenant dashboard view.
type Summary struct {
	StatusTotals           []StatusTotals
	MonthlyTotals          []MonthlyTotals
	TopSuppliersByQuantity []TopSupplier
	ProjectTotals          []ProjectTotals
}

// SupplierSummary is the per-supplier totals view.
type SupplierSummary struct {
	SupplierID        uuid.UUID
	TotalQuantity     decimal.Decimal
	TotalAmount       decimal.Decimal
	BreakdownByStatus []StatusTotals
}

// UpdateFields are the mutable fields an optimistic update may replace.
type UpdateFields struct {
	DeliveryDate time.Time
	ProductCode  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TotalAmount  decimal.Decimal
	Status       Status
}

// Repository is tenant-scoped waybill access. Every method takes the tenant
// id explicitly; implementations must bake the tenant predicate into each
// query.
type Repository interface {
	List(ctx context.Context, tenantID string, filters Filters, page Page) (ListResult, error)
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ListItem, error)
	ListByProject(ctx context.Context, tenantID string, projectID uuid.UUID) ([]ListItem, error)
	Summary(ctx context.Context, tenantID string) (*Summary, error)
	SupplierSummary(ctx context.Context, tenantID string, supplierID uuid.UUID) (*SupplierSummary, error)

	// ReplaceChecked performs the conditional write: it applies fields and
	// swaps expectedToken for newToken in one statement, and reports whether
	// any row matched (tenant, id, expectedToken).
	ReplaceChecked(ctx context.Context, tenantID string, id uuid.UUID, expectedToken string, fields UpdateFields, newToken string) (bool, error)
}

// CatalogRepository is tenant-scoped access to projects and suppliers.
type CatalogRepository interface {
	ListProjects(ctx context.Context, tenantID string) ([]Project, error)
	GetProject(ctx context.Context, tenantID string, id uuid.UUID) (*Project, error)
	ListSuppliers(ctx context.Context, tenantID string) ([]Supplier, error)
	GetSupplier(ctx context.Context, tenantID string, id uuid.UUID) (*Supplier, error)
}
