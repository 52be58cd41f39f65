package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gekko-logistics/waybills-server/internal/api/handlers"
	"github.com/gekko-logistics/waybills-server/internal/api/middleware"
	"github.com/gekko-logistics/waybills-server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps carries the constructed handlers and middleware inputs.
type RouterDeps struct {
	Waybills *handlers.WaybillsHandler
	Imports  *handlers.ImportsHandler
	Catalog  *handlers.CatalogHandler
	Reports  *handlers.ReportsHandler
	Audits   *handlers.AuditsHandler
	DB       handlers.Pinger
	Env      string
	Logger   zerolog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(deps.DB))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	api := http.NewServeMux()
	api.Handle("/api/v1/waybills", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Waybills.List),
	}))
	api.Handle("/api/v1/waybills/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Waybills.Get),
		http.MethodPut: http.HandlerFunc(deps.Waybills.Update),
	}))
	api.Handle("/api/v1/waybills/import", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(deps.Imports.Import),
	}))
	api.Handle("/api/v1/import-jobs/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Imports.GetJob),
	}))
	api.Handle("/api/v1/import-audits", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Audits.List),
	}))
	api.Handle("/api/v1/summary", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Waybills.Summary),
	}))
	api.Handle("/api/v1/reports/generate-monthly-report", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(deps.Reports.GenerateMonthly),
	}))
	api.Handle("/api/v1/projects", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Catalog.ListProjects),
	}))
	api.Handle("/api/v1/projects/{id}/waybills", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Catalog.ProjectWaybills),
	}))
	api.Handle("/api/v1/suppliers", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Catalog.ListSuppliers),
	}))
	api.Handle("/api/v1/suppliers/{id}/summary", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(deps.Catalog.SupplierSummary),
	}))

	requireTenant := middleware.RequireTenant(deps.Env)
	mux.Handle("/api/v1/", requireTenant(api))

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
