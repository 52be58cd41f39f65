package waybills

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseFiltersDefaults(t *testing.T) {
	filters, page, err := ParseFilters(url.Values{})
	require.NoError(t, err)
	require.Equal(t, Filters{}, filters)
	require.Equal(t, 1, page.Number)
	require.Equal(t, DefaultPageSize, page.Size)
}

func TestParseFiltersFull(t *testing.T) {
	projectID := uuid.New()
	supplierID := uuid.New()
	values := url.Values{}
	values.Set("page", "3")
	values.Set("pageSize", "50")
	values.Set("status", "delivered")
	values.Set("waybillDateFrom", "2026-01-01")
	values.Set("waybillDateTo", "2026-01-31")
	values.Set("deliveryDateFrom", "2026-02-01")
	values.Set("deliveryDateTo", "2026-02-28")
	values.Set("projectId", projectID.String())
	values.Set("supplierId", supplierID.String())
	values.Set("productCode", "CEM-42")
	values.Set("search", "north yard")

	filters, page, err := ParseFilters(values)
	require.NoError(t, err)
	require.Equal(t, 3, page.Number)
	require.Equal(t, 50, page.Size)
	require.NotNil(t, filters.Status)
	require.Equal(t, StatusDelivered, *filters.Status)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *filters.WaybillDateFrom)
	require.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *filters.WaybillDateTo)
	require.Equal(t, projectID, *filters.ProjectID)
	require.Equal(t, supplierID, *filters.SupplierID)
	require.Equal(t, "CEM-42", filters.ProductCode)
	require.Equal(t, "north yard", filters.Search)
}

func TestParseFiltersPageSizeClamped(t *testing.T) {
	values := url.Values{}
	values.Set("pageSize", "1000")

	_, page, err := ParseFilters(values)
	require.NoError(t, err)
	require.Equal(t, MaxPageSize, page.Size)
}

func TestParseFiltersErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"bad page", "page", "zero", "page"},
		{"negative page", "page", "-1", "page"},
		{"bad status", "status", "SHIPPED", "status"},
		{"bad date", "waybillDateFrom", "01/02/2026", "waybillDateFrom"},
		{"bad project id", "projectId", "not-a-uuid", "projectId"},
		{"bad supplier id", "supplierId", "123", "supplierId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			values.Set(tt.key, tt.value)

			_, _, err := ParseFilters(values)
			require.Error(t, err)
			var filterErr FilterError
			require.ErrorAs(t, err, &filterErr)
			require.Equal(t, tt.field, filterErr.Field)
		})
	}
}

func TestParseFiltersRangeOrder(t *testing.T) {
	values := url.Values{}
	values.Set("waybillDateFrom", "2026-03-01")
	values.Set("waybillDateTo", "2026-02-01")

	_, _, err := ParseFilters(values)
	require.Error(t, err)
}
