package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

type transactionRequest struct {
	Type        domain.Kind `json:"type"`
	Amount      float64     `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	ReceiptID   string      `json:"receiptId"`
}

func (req transactionRequest) input() (domain.TransactionInput, error) {
	in := domain.TransactionInput{
		Type:        req.Type,
		Amount:      req.Amount,
		CategoryID:  strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		ReceiptID:   req.ReceiptID,
	}
	if strings.TrimSpace(req.Date) == "" {
		return in, &domain.ErrValidation{Field: "date", Message: "required"}
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return in, err
	}
	in.Date = date
	return in, nil
}

type transactionPatchRequest struct {
	Type        *domain.Kind `json:"type"`
	Amount      *float64     `json:"amount"`
	Category    *string      `json:"category"`
	Description *string      `json:"description"`
	Date        *string      `json:"date"`
	ReceiptID   *string      `json:"receiptId"`
}

func (req transactionPatchRequest) patch() (domain.TransactionPatch, error) {
	p := domain.TransactionPatch{
		Type:        req.Type,
		Amount:      req.Amount,
		CategoryID:  req.Category,
		Description: req.Description,
		ReceiptID:   req.ReceiptID,
	}
	if req.Date != nil {
		date, err := domain.ParseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	return p, nil
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	f := domain.TransactionFilter{
		CategoryID: q.Get("category"),
		Type:       domain.Kind(q.Get("type")),
		Limit:      parseLimit(r, 0, 1000),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if v := q.Get("from"); v != "" {
		t, err := domain.ParseDate(v)
		if err != nil {
			return f, &domain.ErrValidation{Field: "from", Message: err.Error()}
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := domain.ParseDateUntil(v)
		if err != nil {
			return f, &domain.ErrValidation{Field: "to", Message: err.Error()}
		}
		f.To = t
	}
	return f, nil
}

func listTransactionsHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		filter, err := parseTransactionFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		txns, err := ledger.ListTransactions(ctx, UserIDFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Transaction]{Data: txns, Total: len(txns)})
	}
}

func createTransactionHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req transactionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		in, err := req.input()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txn, err := ledger.CreateTransaction(ctx, UserIDFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("transaction.id", txn.ID))
		writeJSON(w, http.StatusCreated, txn)
	}
}

func getTransactionHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		txn, err := ledger.GetTransaction(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txn)
	}
}

func updateTransactionHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/transactions/{id}")
		defer span.End()

		var req transactionPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		patch, err := req.patch()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txn, err := ledger.UpdateTransaction(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txn)
	}
}

func deleteTransactionHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		if err := ledger.DeleteTransaction(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "transaction deleted", ID: id})
	}
}
