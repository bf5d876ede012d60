package handler

import (
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Categories
// ============================================================

type seedResponse struct {
	Created    bool              `json:"created"`
	Categories []domain.Category `json:"categories"`
}

func listCategoriesHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		kind := domain.Kind(r.URL.Query().Get("type"))
		if kind != "" && !kind.Valid() {
			handleServiceError(w, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}, logger)
			return
		}
		cats, err := ledger.ListCategories(ctx, UserIDFromContext(ctx), kind)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Category]{Data: cats, Total: len(cats)})
	}
}

func createCategoryHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categories")
		defer span.End()

		var in domain.CategoryInput
		if err := decodeJSON(r, &in); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		cat, err := ledger.CreateCategory(ctx, UserIDFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, cat)
	}
}

func seedCategoriesHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categories/seed")
		defer span.End()

		cats, created, err := ledger.SeedDefaults(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, seedResponse{Created: created, Categories: cats})
	}
}

func updateCategoryHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/categories/{id}")
		defer span.End()

		var patch domain.CategoryPatch
		if err := decodeJSON(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		cat, err := ledger.UpdateCategory(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cat)
	}
}

func deleteCategoryHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		if err := ledger.DeleteCategory(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "category deleted", ID: id})
	}
}
