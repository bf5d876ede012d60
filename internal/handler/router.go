package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financio-bfa-go/internal/port"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the router serves. Routes of a nil service are not
// registered.
type Services struct {
	Ledger    *service.Ledger
	Dashboard *service.Dashboard
	Advisor   *service.Advisor
	Events    port.EventPublisher
	Store     Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, auth AuthConfig, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store))
	r.Get("/readyz", readyzHandler(svc.Store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(auth, logger))

		// =============================================
		// 1. Ledger
		// =============================================
		if svc.Ledger != nil {
			r.Get("/transactions", listTransactionsHandler(svc.Ledger, logger))
			r.Post("/transactions", createTransactionHandler(svc.Ledger, logger))
			r.Get("/transactions/{id}", getTransactionHandler(svc.Ledger, logger))
			r.Patch("/transactions/{id}", updateTransactionHandler(svc.Ledger, logger))
			r.Delete("/transactions/{id}", deleteTransactionHandler(svc.Ledger, logger))

			r.Get("/categories", listCategoriesHandler(svc.Ledger, logger))
			r.Post("/categories", createCategoryHandler(svc.Ledger, logger))
			r.Post("/categories/seed", seedCategoriesHandler(svc.Ledger, logger))
			r.Patch("/categories/{id}", updateCategoryHandler(svc.Ledger, logger))
			r.Delete("/categories/{id}", deleteCategoryHandler(svc.Ledger, logger))
		}

		// =============================================
		// 2. Aggregations
		// =============================================
		if svc.Dashboard != nil {
			r.Get("/dashboard", dashboardHandler(svc.Dashboard, logger))
			r.Get("/analytics/cashflow", cashFlowHandler(svc.Dashboard, logger))
			r.Get("/analytics/breakdown", breakdownHandler(svc.Dashboard, logger))
			r.Get("/analytics/summary", summaryHandler(svc.Dashboard, logger))
			r.Get("/reports/weekly", weeklyReportHandler(svc.Dashboard, logger))
		}

		// =============================================
		// 3. AI advisor
		// =============================================
		if svc.Advisor != nil {
			r.Get("/advisor/credits", creditsHandler(svc.Advisor, logger))
			r.Post("/advisor/analyses", runAnalysisHandler(svc.Advisor, logger))
			r.Get("/advisor/analyses", listAnalysesHandler(svc.Advisor, logger))
			r.Get("/advisor/analyses/latest", latestAnalysisHandler(svc.Advisor, logger))
			r.Get("/advisor/analyses/{id}", getAnalysisHandler(svc.Advisor, logger))
			r.Delete("/advisor/analyses/{id}", deleteAnalysisHandler(svc.Advisor, logger))
		}
		r.Get("/metrics/advisor", advisorMetricsHandler(metrics))

		// =============================================
		// 4. Realtime webhook
		// =============================================
		if svc.Events != nil {
			r.Post("/events", ingestEventHandler(svc.Events, logger))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "financio-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = s.Status
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func advisorMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAdvisorSnapshot())
	}
}
