package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gekko-logistics/waybills-server/internal/api/middleware"
	"github.com/gekko-logistics/waybills-server/internal/api/problem"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/locks"
)

// reportLeaseDuration bounds how long one report run may hold the lock.
const reportLeaseDuration = 10 * time.Minute

// ReportsHandler triggers monthly report generation under a tenant-scoped
// lease so concurrent triggers cannot run twice.
type ReportsHandler struct {
	Service *waybills.Service
	Locks   *locks.Service
	Env     string
}

func NewReportsHandler(service *waybills.Service, lockService *locks.Service, env string) *ReportsHandler {
	return &ReportsHandler{Service: service, Locks: lockService, Env: env}
}

func (h *ReportsHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	holder := middleware.GetRequestID(r.Context())
	acquired, err := h.Locks.TryAcquire(r.Context(), tenantID, locks.LockNameMonthlyReport, reportLeaseDuration, holder)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	if !acquired {
		problem.Write(w, r, http.StatusConflict, problem.TypeLockHeld, "Report generation already running", nil, h.Env,
			problem.WithDetail("a monthly report is already being generated for this tenant"))
		return
	}
	defer func() {
		if err := h.Locks.Release(r.Context(), tenantID, locks.LockNameMonthlyReport); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).
				Str("tenant", tenantID).
				Msg("monthly report lease release failed")
		}
	}()

	summary, err := h.Service.Summary(r.Context(), tenantID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"generatedAt":   time.Now().UTC(),
		"monthlyTotals": newSummaryView(summary).MonthlyTotals,
	})
}
