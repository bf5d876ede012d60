package handler

import (
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// AI advisor
// ============================================================

func creditsHandler(adv *service.Advisor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/advisor/credits")
		defer span.End()

		acc, err := adv.Credits(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, acc.View())
	}
}

// runAnalysisHandler answers 201 with the stored analysis, or 200 with
// status "no_credits" when the owner has nothing left to spend.
func runAnalysisHandler(adv *service.Advisor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/advisor/analyses")
		defer span.End()

		out, err := adv.Run(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("analysis.status", out.Status))

		status := http.StatusOK
		if out.Status == domain.OutcomeCompleted {
			status = http.StatusCreated
		}
		writeJSON(w, status, out)
	}
}

func listAnalysesHandler(adv *service.Advisor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		list, err := adv.List(ctx, UserIDFromContext(ctx), parseLimit(r, 20, 100))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.AIAnalysis]{Data: list, Total: len(list)})
	}
}

func latestAnalysisHandler(adv *service.Advisor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := adv.Latest(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func getAnalysisHandler(adv *service.Advisor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := adv.Get(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func deleteAnalysisHandler(adv *service.Advisor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		if err := adv.Delete(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "analysis deleted", ID: id})
	}
}
