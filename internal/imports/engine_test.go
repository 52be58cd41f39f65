package imports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
)

type mockStore struct {
	projects  map[string]waybills.Project
	suppliers map[string]waybills.Supplier
	waybills  map[string]waybills.Waybill

	applied  []BatchChanges
	applyErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		projects:  make(map[string]waybills.Project),
		suppliers: make(map[string]waybills.Supplier),
		waybills:  make(map[string]waybills.Waybill),
	}
}

func (m *mockStore) FetchBatchContext(_ context.Context, _ string, projectNames, supplierNames, waybillNumbers []string) (*BatchContext, error) {
	batch := &BatchContext{
		Projects:  make(map[string]waybills.Project),
		Suppliers: make(map[string]waybills.Supplier),
		Waybills:  make(map[string]waybills.Waybill),
	}
	for _, name := range projectNames {
		if p, ok := m.projects[strings.ToLower(name)]; ok {
			batch.Projects[strings.ToLower(name)] = p
		}
	}
	for _, name := range supplierNames {
		if s, ok := m.suppliers[strings.ToLower(name)]; ok {
			batch.Suppliers[strings.ToLower(name)] = s
		}
	}
	for _, number := range waybillNumbers {
		if w, ok := m.waybills[strings.ToLower(number)]; ok {
			batch.Waybills[strings.ToLower(number)] = w
		}
	}
	return batch, nil
}

func (m *mockStore) ApplyBatch(_ context.Context, _ string, changes BatchChanges) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, changes)
	return nil
}

type mockNotifier struct {
	events []events.ImportedEvent
	err    error
}

func (m *mockNotifier) PublishImported(_ context.Context, event events.ImportedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func newTestEngine(store *mockStore, notifier *mockNotifier) *Engine {
	return NewEngine(store, notifier, nil, zerolog.Nop())
}

const validHeader = "waybill_number,project_name,supplier_name,waybill_date,delivery_date,product_code,quantity,unit_price,total_amount,status\n"

func TestEngineInsertsValidRows(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	engine := newTestEngine(store, notifier)

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING\n" +
		"WB-002,North Yard,Acme,2026-03-11,2026-03-13,CEM-42,5,4,20,DELIVERED\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRows)
	require.Equal(t, 2, result.InsertedCount)
	require.Zero(t, result.UpdatedCount)
	require.Zero(t, result.RejectedCount)
	require.Empty(t, result.Rejected)
	require.Empty(t, result.Warnings)

	require.Len(t, store.applied, 1)
	changes := store.applied[0]
	require.Len(t, changes.Inserts, 2)
	require.Empty(t, changes.Updates)
	// Both rows share one lazily created project and supplier.
	require.Len(t, changes.NewProjects, 1)
	require.Len(t, changes.NewSuppliers, 1)
	require.Equal(t, changes.NewProjects[0].ID, changes.Inserts[0].ProjectID)
	require.Equal(t, changes.NewSuppliers[0].ID, changes.Inserts[1].SupplierID)
	require.Equal(t, waybills.StatusDelivered, changes.Inserts[1].Status)

	require.Len(t, notifier.events, 1)
	require.Equal(t, "job-1", notifier.events[0].ImportJobID)
	require.Equal(t, 2, notifier.events[0].InsertedCount)
}

func TestEngineUpdatesExistingWaybill(t *testing.T) {
	store := newMockStore()
	store.waybills["wb-001"] = waybills.Waybill{
		TenantID:      "tenant-a",
		WaybillNumber: "WB-001",
		Status:        waybills.StatusPending,
	}
	store.suppliers["acme"] = waybills.Supplier{TenantID: "tenant-a", Name: "Acme"}
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,DELIVERED\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Zero(t, result.InsertedCount)
	require.Equal(t, 1, result.UpdatedCount)

	changes := store.applied[0]
	require.Empty(t, changes.Inserts)
	require.Len(t, changes.Updates, 1)
	require.Len(t, changes.NewProjects, 1)
	require.Empty(t, changes.NewSuppliers, "existing supplier must not be recreated")
	require.Equal(t, waybills.StatusDelivered, changes.Updates[0].Status)
}

func TestEngineAccumulatesErrorCodes(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	// Missing waybill number and product code, bad dates, bad quantity.
	csv := validHeader +
		",North Yard,Acme,not-a-date,also-bad,,abc,4,40,PENDING\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalRows)
	require.Equal(t, 1, result.RejectedCount)
	require.Len(t, result.Rejected, 1)
	require.Equal(t, 2, result.Rejected[0].RowNumber)
	require.Equal(t, []string{
		CodeWaybillNumberRequired,
		CodeProductCodeRequired,
		CodeInvalidWaybillDate,
		CodeInvalidDeliveryDate,
		CodeInvalidQuantity,
	}, result.Rejected[0].Errors)
	require.Empty(t, store.applied, "nothing accepted, nothing persisted")
}

func TestEngineRejectsTenantMismatch(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := "waybill_number,project_name,supplier_name,waybill_date,delivery_date,product_code,quantity,unit_price,total_amount,status,tenant_id\n" +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING,tenant-b\n" +
		"WB-002,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING,TENANT-A\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.RejectedCount)
	require.Equal(t, []string{CodeTenantMismatch}, result.Rejected[0].Errors)
	// Case-insensitive match on row two passes.
	require.Equal(t, 1, result.InsertedCount)
}

func TestEngineQuantityBounds(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,0.4,4,1.6,PENDING\n" +
		"WB-002,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,50.5,4,202,PENDING\n" +
		"WB-003,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,0.5,4,2,PENDING\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, result.RejectedCount)
	require.Equal(t, []string{CodeQuantityOutOfRange}, result.Rejected[0].Errors)
	require.Equal(t, []string{CodeQuantityOutOfRange}, result.Rejected[1].Errors)
	require.Equal(t, 1, result.InsertedCount)
}

func TestEngineDeliveryBeforeWaybill(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-12,2026-03-10,CEM-42,10,4,40,PENDING\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, []string{CodeDeliveryBeforeWaybill}, result.Rejected[0].Errors)
}

func TestEngineInvalidStatus(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,SHIPPED\n" +
		"WB-002,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	// An empty status is rejected like any unknown value.
	require.Equal(t, 2, result.RejectedCount)
	require.Equal(t, []string{CodeInvalidStatus}, result.Rejected[0].Errors)
	require.Equal(t, []string{CodeInvalidStatus}, result.Rejected[1].Errors)
	require.Zero(t, result.InsertedCount)
	require.Empty(t, store.applied)
}

func TestEnginePriceDiscrepancyIsWarningOnly(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,45,PENDING\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Zero(t, result.RejectedCount)
	require.Equal(t, 1, result.InsertedCount)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, []string{CodePriceDiscrepancy}, result.Warnings[0].Warnings)
	// The supplied total persists, not the computed one.
	require.True(t, decimal.NewFromInt(45).Equal(store.applied[0].Inserts[0].TotalAmount))
}

func TestEngineMalformedRowShortCircuits(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme\n" +
		"WB-002,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRows)
	require.Equal(t, []string{CodeInvalidRow}, result.Rejected[0].Errors)
	require.Equal(t, 2, result.Rejected[0].RowNumber)
	require.Equal(t, 1, result.InsertedCount)
}

func TestEngineIntraBatchDuplicateLastWins(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING\n" +
		"wb-001,North Yard,Acme,2026-03-10,2026-03-14,CEM-43,5,4,20,DELIVERED\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.InsertedCount)
	require.Equal(t, 1, result.UpdatedCount, "second occurrence counts as an update")

	changes := store.applied[0]
	require.Len(t, changes.Inserts, 1)
	require.Empty(t, changes.Updates)
	require.Equal(t, "CEM-43", changes.Inserts[0].ProductCode)
	require.Equal(t, waybills.StatusDelivered, changes.Inserts[0].Status)
}

func TestEngineFlexibleDateFormats(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(store, &mockNotifier{})

	csv := validHeader +
		"WB-001,North Yard,Acme,10 Mar 2026,2026/03/12,CEM-42,10,4,40,PENDING\n"

	result, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.InsertedCount)
	insert := store.applied[0].Inserts[0]
	require.Equal(t, time.March, insert.WaybillDate.Month())
	require.Equal(t, 10, insert.WaybillDate.Day())
	require.Equal(t, 12, insert.DeliveryDate.Day())
}

func TestEnginePublishFailureFailsRun(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{err: errors.New("broker down")}
	engine := newTestEngine(store, notifier)

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING\n"

	_, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.Error(t, err)
	require.Contains(t, err.Error(), "broker down")
	// The batch itself still committed before the publish attempt.
	require.Len(t, store.applied, 1)
}

func TestEngineApplyFailurePropagates(t *testing.T) {
	store := newMockStore()
	store.applyErr = errors.New("tx aborted")
	notifier := &mockNotifier{}
	engine := newTestEngine(store, notifier)

	csv := validHeader +
		"WB-001,North Yard,Acme,2026-03-10,2026-03-12,CEM-42,10,4,40,PENDING\n"

	_, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(csv))
	require.Error(t, err)
	require.Empty(t, notifier.events, "no event on a failed commit")
}

func TestEngineEmptyFile(t *testing.T) {
	engine := newTestEngine(newMockStore(), &mockNotifier{})

	_, err := engine.Run(context.Background(), "tenant-a", "job-1", strings.NewReader(""))
	require.Error(t, err)
}
