package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
)

var (
	sharedOnce      sync.Once
	sharedInitErr   error
	sharedContainer *postgres.PostgresContainer
	sharedPool      *pgxpool.Pool
	sharedDBURL     string
)

const sharedContainerName = "waybills-storage-db"

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupShared()
	os.Exit(code)
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	initShared(t)
	resetDatabase(t, sharedPool)

	return sharedPool
}

func initShared(t *testing.T) {
	t.Helper()
	sharedOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		// Disable ryuk (resource reaper) to prevent premature container cleanup
		_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

		container, err := postgres.Run(
			ctx,
			"postgres:16",
			postgres.WithDatabase("waybills"),
			postgres.WithUsername("waybills"),
			postgres.WithPassword("waybills_dev"),
			testcontainers.WithReuseByName(sharedContainerName),
		)
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedContainer = container

		dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedDBURL = dbURL

		migrationsPath := filepath.Join(projectRoot(), DefaultMigrationsPath)
		if err := migrateWithRetry(dbURL, migrationsPath, 10*time.Second); err != nil {
			sharedInitErr = err
			return
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			sharedInitErr = err
			return
		}

		sharedPool = pool
	})

	require.NoError(t, sharedInitErr)
}

func cleanupShared() {
	if sharedPool != nil {
		sharedPool.Close()
	}
	// Note: Do NOT terminate the shared container - testcontainers will clean it up
	// Terminating it here causes connection errors in tests that haven't run yet
}

func resetDatabase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if pool == nil {
		require.Fail(t, "shared pool is nil")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := pool.Query(ctx, `
SELECT tablename
  FROM pg_tables
 WHERE schemaname = 'public'
   AND tablename <> 'schema_migrations'
 ORDER BY tablename;
`)
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		if name == "" {
			continue
		}
		safe := strings.ReplaceAll(name, "\"", "\"\"")
		tables = append(tables, "\"public\".\""+safe+"\"")
	}
	require.NoError(t, rows.Err())

	if len(tables) == 0 {
		return
	}

	truncateSQL := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;"
	_, err = pool.Exec(ctx, truncateSQL)
	require.NoError(t, err)
}

func insertProject(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(ctx,
		`INSERT INTO projects (id, tenant_id, name) VALUES ($1, $2, $3)`,
		id, tenantID, name,
	)
	require.NoError(t, err)
	return id
}

func insertSupplier(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(ctx,
		`INSERT INTO suppliers (id, tenant_id, name) VALUES ($1, $2, $3)`,
		id, tenantID, name,
	)
	require.NoError(t, err)
	return id
}

type waybillSeed struct {
	TenantID     string
	Number       string
	ProjectID    uuid.UUID
	SupplierID   uuid.UUID
	WaybillDate  string
	DeliveryDate string
	ProductCode  string
	Quantity     string
	UnitPrice    string
	TotalAmount  string
	Status       string
	RowToken     string
}

func insertWaybillRow(t *testing.T, ctx context.Context, pool *pgxpool.Pool, seed waybillSeed) uuid.UUID {
	t.Helper()
	if seed.Status == "" {
		seed.Status = string(waybills.StatusPending)
	}
	if seed.RowToken == "" {
		seed.RowToken = waybills.NewRowToken()
	}
	if seed.ProductCode == "" {
		seed.ProductCode = "CEM-42.5"
	}
	if seed.Quantity == "" {
		seed.Quantity = "10"
	}
	if seed.UnitPrice == "" {
		seed.UnitPrice = "25.50"
	}
	if seed.TotalAmount == "" {
		seed.TotalAmount = "255.00"
	}
	id := uuid.New()
	_, err := pool.Exec(ctx, `
INSERT INTO waybills (
    id, tenant_id, waybill_number, project_id, supplier_id,
    waybill_date, delivery_date, product_code,
    quantity, unit_price, total_amount, status, row_token
) VALUES ($1, $2, $3, $4, $5, $6::date, $7::date, $8, $9::numeric, $10::numeric, $11::numeric, $12, $13)
`,
		id, seed.TenantID, seed.Number, seed.ProjectID, seed.SupplierID,
		seed.WaybillDate, seed.DeliveryDate, seed.ProductCode,
		seed.Quantity, seed.UnitPrice, seed.TotalAmount, seed.Status, seed.RowToken,
	)
	require.NoError(t, err)
	return id
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return parsed
}

func projectRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", ".."))
}

func migrateWithRetry(databaseURL string, migrationsPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := MigrateUp(databaseURL, migrationsPath); err != nil {
			if time.Now().After(deadline) {
				return err
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}
		return nil
	}
}
