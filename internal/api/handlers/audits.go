package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gekko-logistics/waybills-server/internal/api/middleware"
	"github.com/gekko-logistics/waybills-server/internal/api/problem"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
)

// AuditsHandler serves the import notification log.
type AuditsHandler struct {
	Store events.AuditStore
	Env   string
}

func NewAuditsHandler(store events.AuditStore, env string) *AuditsHandler {
	return &AuditsHandler{Store: store, Env: env}
}

func (h *AuditsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", waybills.FilterError{Field: "limit", Message: "must be a positive number"}, h.Env)
			return
		}
		limit = parsed
	}

	audits, err := h.Store.ListByTenant(r.Context(), tenantID, limit)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": audits})
}
