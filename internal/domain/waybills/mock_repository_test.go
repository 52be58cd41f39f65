package waybills

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MockRepository is an in-memory Repository and CatalogRepository used by
// the domain tests.
type MockRepository struct {
	records   map[uuid.UUID]*ListItem
	projects  map[uuid.UUID]Project
	suppliers map[uuid.UUID]Supplier

	ReplaceCheckedCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		records:   make(map[uuid.UUID]*ListItem),
		projects:  make(map[uuid.UUID]Project),
		suppliers: make(map[uuid.UUID]Supplier),
	}
}

func (m *MockRepository) AddRecord(item ListItem) {
	copied := item
	m.records[item.ID] = &copied
}

func (m *MockRepository) AddProject(project Project) {
	m.projects[project.ID] = project
}

func (m *MockRepository) AddSupplier(supplier Supplier) {
	m.suppliers[supplier.ID] = supplier
}

func (m *MockRepository) List(_ context.Context, tenantID string, filters Filters, page Page) (ListResult, error) {
	items := make([]ListItem, 0)
	for _, item := range m.records {
		if !strings.EqualFold(item.TenantID, tenantID) {
			continue
		}
		if filters.Status != nil && item.Status != *filters.Status {
			continue
		}
		items = append(items, *item)
	}
	return ListResult{Items: items, TotalCount: len(items), Page: page.Number, PageSize: page.Size}, nil
}

func (m *MockRepository) GetByID(_ context.Context, tenantID string, id uuid.UUID) (*ListItem, error) {
	item, ok := m.records[id]
	if !ok || !strings.EqualFold(item.TenantID, tenantID) {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *MockRepository) ListByProject(_ context.Context, tenantID string, projectID uuid.UUID) ([]ListItem, error) {
	items := make([]ListItem, 0)
	for _, item := range m.records {
		if strings.EqualFold(item.TenantID, tenantID) && item.ProjectID == projectID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *MockRepository) Summary(_ context.Context, _ string) (*Summary, error) {
	return &Summary{}, nil
}

func (m *MockRepository) SupplierSummary(_ context.Context, _ string, supplierID uuid.UUID) (*SupplierSummary, error) {
	return &SupplierSummary{SupplierID: supplierID}, nil
}

func (m *MockRepository) ReplaceChecked(_ context.Context, tenantID string, id uuid.UUID, expectedToken string, fields UpdateFields, newToken string) (bool, error) {
	m.ReplaceCheckedCalls++
	item, ok := m.records[id]
	if !ok || !strings.EqualFold(item.TenantID, tenantID) || item.RowToken != expectedToken {
		return false, nil
	}
	item.DeliveryDate = fields.DeliveryDate
	item.ProductCode = fields.ProductCode
	item.Quantity = fields.Quantity
	item.UnitPrice = fields.UnitPrice
	item.TotalAmount = fields.TotalAmount
	item.Status = fields.Status
	item.RowToken = newToken
	return true, nil
}

func (m *MockRepository) ListProjects(_ context.Context, tenantID string) ([]Project, error) {
	projects := make([]Project, 0)
	for _, project := range m.projects {
		if strings.EqualFold(project.TenantID, tenantID) {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (m *MockRepository) GetProject(_ context.Context, tenantID string, id uuid.UUID) (*Project, error) {
	project, ok := m.projects[id]
	if !ok || !strings.EqualFold(project.TenantID, tenantID) {
		return nil, ErrNotFound
	}
	return &project, nil
}

func (m *MockRepository) ListSuppliers(_ context.Context, tenantID string) ([]Supplier, error) {
	suppliers := make([]Supplier, 0)
	for _, supplier := range m.suppliers {
		if strings.EqualFold(supplier.TenantID, tenantID) {
			suppliers = append(suppliers, supplier)
		}
	}
	return suppliers, nil
}

func (m *MockRepository) GetSupplier(_ context.Context, tenantID string, id uuid.UUID) (*Supplier, error) {
	supplier, ok := m.suppliers[id]
	if !ok || !strings.EqualFold(supplier.TenantID, tenantID) {
		return nil, ErrNotFound
	}
	return &supplier, nil
}

// recordingBumper captures cache version increments.
type recordingBumper struct {
	calls []string
}

func (b *recordingBumper) Increment(tenantID string, reason string) {
	b.calls = append(b.calls, tenantID+":"+reason)
}
