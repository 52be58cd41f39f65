package waybills

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// FilterError reports an invalid query parameter.
type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseFilters builds Filters and a Page from request query values.
func ParseFilters(values url.Values) (Filters, Page, error) {
	filters := Filters{}
	page := Page{Number: 1, Size: DefaultPageSize}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Filters{}, Page{}, FilterError{Field: "page", Message: "must be a number"}
		}
		if parsed < 1 {
			return Filters{}, Page{}, FilterError{Field: "page", Message: "must be >= 1"}
		}
		page.Number = parsed
	}

	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Filters{}, Page{}, FilterError{Field: "pageSize", Message: "must be a number"}
		}
		if parsed < 1 {
			return Filters{}, Page{}, FilterError{Field: "pageSize", Message: "must be >= 1"}
		}
		if parsed > MaxPageSize {
			parsed = MaxPageSize
		}
		page.Size = parsed
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			return Filters{}, Page{}, FilterError{Field: "status", Message: "unsupported status"}
		}
		filters.Status = &status
	}

	dateFields := []struct {
		name   string
		target **time.Time
	}{
		{"waybillDateFrom", &filters.WaybillDateFrom},
		{"waybillDateTo", &filters.WaybillDateTo},
		{"deliveryDateFrom", &filters.DeliveryDateFrom},
		{"deliveryDateTo", &filters.DeliveryDateTo},
	}
	for _, field := range dateFields {
		raw := strings.TrimSpace(values.Get(field.name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Filters{}, Page{}, FilterError{Field: field.name, Message: "must be ISO8601 date"}
		}
		value := parsed.UTC()
		*field.target = &value
	}

	if filters.WaybillDateFrom != nil && filters.WaybillDateTo != nil &&
		filters.WaybillDateTo.Before(*filters.WaybillDateFrom) {
		return Filters{}, Page{}, FilterError{Field: "waybillDateTo", Message: "must be on or after waybillDateFrom"}
	}
	if filters.DeliveryDateFrom != nil && filters.DeliveryDateTo != nil &&
		filters.DeliveryDateTo.Before(*filters.DeliveryDateFrom) {
		return Filters{}, Page{}, FilterError{Field: "deliveryDateTo", Message: "must be on or after deliveryDateFrom"}
	}

	idFields := []struct {
		name   string
		target **uuid.UUID
	}{
		{"projectId", &filters.ProjectID},
		{"supplierId", &filters.SupplierID},
	}
	for _, field := range idFields {
		raw := strings.TrimSpace(values.Get(field.name))
		if raw == "" {
			continue
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return Filters{}, Page{}, FilterError{Field: field.name, Message: "must be a UUID"}
		}
		*field.target = &parsed
	}

	filters.ProductCode = strings.TrimSpace(values.Get("productCode"))
	filters.Search = strings.TrimSpace(values.Get("search"))

	return filters, page, nil
}
