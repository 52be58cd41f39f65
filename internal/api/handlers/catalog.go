package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gekko-logistics/waybills-server/internal/api/middleware"
	"github.com/gekko-logistics/waybills-server/internal/api/problem"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
)

// CatalogHandler serves the project and supplier reference endpoints.
type CatalogHandler struct {
	Service *waybills.Service
	Env     string
}

func NewCatalogHandler(service *waybills.Service, env string) *CatalogHandler {
	return &CatalogHandler{Service: service, Env: env}
}

type catalogListResponse struct {
	Items []catalogEntryView `json:"items"`
}

func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	projects, err := h.Service.ListProjects(r.Context(), tenantID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]catalogEntryView, 0, len(projects))
	for _, project := range projects {
		items = append(items, catalogEntryView{
			ID:        project.ID.String(),
			Name:      project.Name,
			CreatedAt: project.CreatedAt,
			UpdatedAt: project.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, catalogListResponse{Items: items})
}

func (h *CatalogHandler) ProjectWaybills(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	id, ok := catalogID(w, r, h.Env)
	if !ok {
		return
	}

	items, err := h.Service.ListByProject(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, waybills.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": newWaybillViews(items)})
}

func (h *CatalogHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	suppliers, err := h.Service.ListSuppliers(r.Context(), tenantID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]catalogEntryView, 0, len(suppliers))
	for _, supplier := range suppliers {
		items = append(items, catalogEntryView{
			ID:        supplier.ID.String(),
			Name:      supplier.Name,
			CreatedAt: supplier.CreatedAt,
			UpdatedAt: supplier.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, catalogListResponse{Items: items})
}

func (h *CatalogHandler) SupplierSummary(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	id, ok := catalogID(w, r, h.Env)
	if !ok {
		return
	}

	summary, err := h.Service.SupplierSummary(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, waybills.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, newSupplierSummaryView(summary))
}

func catalogID(w http.ResponseWriter, r *http.Request, env string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(pathParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", waybills.FilterError{Field: "id", Message: "must be a UUID"}, env)
		return uuid.Nil, false
	}
	return id, true
}
