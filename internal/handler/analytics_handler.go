package handler

import (
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/aggregate"
	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard & analytics
// ============================================================

type summaryResponse struct {
	Period  domain.Period  `json:"period"`
	Summary domain.Summary `json:"summary"`
	Trends  domain.Trends  `json:"trends"`
}

// dashboardFor resolves ?days= and fetches the owner's dashboard, writing
// the error response itself on failure.
func dashboardFor(w http.ResponseWriter, r *http.Request, dash *service.Dashboard, op string, logger *zap.Logger) (*domain.Dashboard, bool) {
	ctx, span := tracer.Start(r.Context(), op)
	defer span.End()

	days, err := parseDays(r, aggregate.DefaultWindowDays)
	if err != nil {
		handleServiceError(w, err, logger)
		return nil, false
	}
	span.SetAttributes(attribute.Int("window.days", days))

	d, err := dash.Get(ctx, UserIDFromContext(ctx), days)
	if err != nil {
		handleServiceError(w, err, logger)
		return nil, false
	}
	return d, true
}

func dashboardHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := dashboardFor(w, r, dash, "GET /v1/dashboard", logger)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func cashFlowHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := dashboardFor(w, r, dash, "GET /v1/analytics/cashflow", logger)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, d.CashFlow)
	}
}

func breakdownHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := dashboardFor(w, r, dash, "GET /v1/analytics/breakdown", logger)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, d.Breakdown)
	}
}

func summaryHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := dashboardFor(w, r, dash, "GET /v1/analytics/summary", logger)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse{Period: d.Period, Summary: d.Summary, Trends: d.Trends})
	}
}

func weeklyReportHandler(dash *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/weekly")
		defer span.End()

		report, err := dash.Weekly(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
