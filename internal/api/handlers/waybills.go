package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gekko-logistics/waybills-server/internal/api/middleware"
	"github.com/gekko-logistics/waybills-server/internal/api/problem"
	"github.com/gekko-logistics/waybills-server/internal/cache"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/metrics"
)

type WaybillsHandler struct {
	Service  *waybills.Service
	Updates  *waybills.UpdateService
	Cache    *cache.ResponseCache
	Env      string
	validate *validator.Validate
}

func NewWaybillsHandler(service *waybills.Service, updates *waybills.UpdateService, responseCache *cache.ResponseCache, env string) *WaybillsHandler {
	return &WaybillsHandler{
		Service:  service,
		Updates:  updates,
		Cache:    responseCache,
		Env:      env,
		validate: validator.New(),
	}
}

func (h *WaybillsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	filters, page, err := waybills.ParseFilters(r.URL.Query())
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	if h.cached(w, "waybills", tenantID, r.URL.RawQuery) {
		return
	}

	result, err := h.Service.List(r.Context(), tenantID, filters, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	view := listPageView{
		Items:      newWaybillViews(result.Items),
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
	}
	h.respondCached(w, r, "waybills", tenantID, r.URL.RawQuery, view)
}

func (h *WaybillsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	id, ok := waybillID(w, r, h.Env)
	if !ok {
		return
	}

	item, err := h.Service.GetByID(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, waybills.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, newWaybillView(*item))
}

func (h *WaybillsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	if h.cached(w, "summary", tenantID, "") {
		return
	}

	summary, err := h.Service.Summary(r.Context(), tenantID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	h.respondCached(w, r, "summary", tenantID, "", newSummaryView(summary))
}

type updateWaybillRequest struct {
	RowToken     string          `json:"rowToken"`
	DeliveryDate string          `json:"deliveryDate" validate:"required"`
	ProductCode  string          `json:"productCode" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Status       string          `json:"status" validate:"required"`
}

func (h *WaybillsHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	id, ok := waybillID(w, r, h.Env)
	if !ok {
		return
	}

	var body updateWaybillRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(fieldErrors(err)))
		return
	}

	deliveryDate, err := time.Parse(dateLayout, strings.TrimSpace(body.DeliveryDate))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithCode("INVALID_DELIVERY_DATE"))
		return
	}
	status, ok := waybills.ParseStatus(body.Status)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", nil, h.Env,
			problem.WithCode("INVALID_STATUS"),
			problem.WithDetail("unsupported status "+body.Status))
		return
	}

	item, err := h.Updates.Update(r.Context(), tenantID, id, waybills.UpdateRequest{
		RowToken:     body.RowToken,
		DeliveryDate: deliveryDate.UTC(),
		ProductCode:  strings.TrimSpace(body.ProductCode),
		Quantity:     body.Quantity,
		UnitPrice:    body.UnitPrice,
		TotalAmount:  body.TotalAmount,
		Status:       status,
	})
	if err != nil {
		var vErr waybills.ValidationError
		switch {
		case errors.As(err, &vErr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithCode(vErr.Code))
		case errors.Is(err, waybills.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
		case errors.Is(err, waybills.ErrConflict):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, h.Env,
				problem.WithDetail("the waybill was modified concurrently; reload and retry"))
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, newWaybillView(*item))
}

// cached serves a memoized payload when present. It reports whether the
// response was written.
func (h *WaybillsHandler) cached(w http.ResponseWriter, endpoint, tenantID, rawQuery string) bool {
	if h.Cache == nil {
		return false
	}
	key := h.Cache.Key(endpoint, tenantID, rawQuery)
	payload, ok := h.Cache.Get(key)
	if !ok {
		metrics.CacheRequestsTotal.WithLabelValues(endpoint, "miss").Inc()
		return false
	}
	metrics.CacheRequestsTotal.WithLabelValues(endpoint, "hit").Inc()
	writeJSONBytes(w, http.StatusOK, payload)
	return true
}

func (h *WaybillsHandler) respondCached(w http.ResponseWriter, r *http.Request, endpoint, tenantID, rawQuery string, view any) {
	payload, err := json.Marshal(view)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(h.Cache.Key(endpoint, tenantID, rawQuery), payload)
	}
	writeJSONBytes(w, http.StatusOK, payload)
}

func waybillID(w http.ResponseWriter, r *http.Request, env string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(pathParam(r, "id"))
	if raw == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", waybills.FilterError{Field: "id", Message: "missing"}, env)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", waybills.FilterError{Field: "id", Message: "must be a UUID"}, env)
		return uuid.Nil, false
	}
	return id, true
}

func fieldErrors(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make(map[string]any, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields[fieldError.Field()] = fieldError.Tag()
	}
	return fields
}
