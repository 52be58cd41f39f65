package waybills

import (
	"context"

	"github.com/google/uuid"
)

// Service is the tenant-scoped read side for waybills and their catalog
// references.
type Service struct {
	repo    Repository
	catalog CatalogRepository
}

func NewService(repo Repository, catalog CatalogRepository) *Service {
	return &Service{repo: repo, catalog: catalog}
}

func (s *Service) List(ctx context.Context, tenantID string, filters Filters, page Page) (ListResult, error) {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = DefaultPageSize
	}
	if page.Size > MaxPageSize {
		page.Size = MaxPageSize
	}
	return s.repo.List(ctx, tenantID, filters, page)
}

func (s *Service) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ListItem, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *Service) Summary(ctx context.Context, tenantID string) (*Summary, error) {
	return s.repo.Summary(ctx, tenantID)
}

func (s *Service) ListProjects(ctx context.Context, tenantID string) ([]Project, error) {
	return s.catalog.ListProjects(ctx, tenantID)
}

// ListByProject returns a project's waybills, newest delivery first.
// It returns ErrNotFound when the project is absent for the tenant.
func (s *Service) ListByProject(ctx context.Context, tenantID string, projectID uuid.UUID) ([]ListItem, error) {
	if _, err := s.catalog.GetProject(ctx, tenantID, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, tenantID, projectID)
}

func (s *Service) ListSuppliers(ctx context.Context, tenantID string) ([]Supplier, error) {
	return s.catalog.ListSuppliers(ctx, tenantID)
}

// SupplierSummary returns a supplier's totals with a per-status breakdown.
// It returns ErrNotFound when the supplier is absent for the tenant.
func (s *Service) SupplierSummary(ctx context.Context, tenantID string, supplierID uuid.UUID) (*SupplierSummary, error) {
	if _, err := s.catalog.GetSupplier(ctx, tenantID, supplierID); err != nil {
		return nil, err
	}
	return s.repo.SupplierSummary(ctx, tenantID, supplierID)
}
