package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gekko-logistics/waybills-server/internal/api/problem"
)

// TenantHeader carries the caller's tenant identifier. Every /api/v1
// endpoint is tenant scoped and rejects requests without it.
const TenantHeader = "X-Tenant-ID"

const tenantIDKey contextKey = "tenant_id"

// RequireTenant rejects requests that do not carry a tenant header and
// stores the tenant id in the request context.
func RequireTenant(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
			if tenantID == "" {
				problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing tenant", nil, env,
					problem.WithDetail("the "+TenantHeader+" header is required"))
				return
			}

			ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant id stored by RequireTenant.
func TenantFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
