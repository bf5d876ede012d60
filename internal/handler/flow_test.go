package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/aggregate"
	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/handler"
	"github.com/boddenberg/financio-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financio-bfa-go/internal/infra/client"
	"github.com/boddenberg/financio-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financio-bfa-go/internal/infra/realtime"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financio-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"go.uber.org/zap"
)

type flowEnv struct {
	t      *testing.T
	router http.Handler
	calls  *atomic.Int32
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	logger := zap.NewNop()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "financio.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	calls := &atomic.Int32{}
	fn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := json.Marshal(map[string]any{"success": true, "advice": "Rent is most of your spending."})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":             "completed",
			"responseStatusCode": http.StatusOK,
			"responseBody":       string(body),
		})
	}))
	t.Cleanup(fn.Close)

	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 2, Timeout: 5 * time.Second}
	executor := client.NewFunctionClient(fn.Client(), fn.URL, "ai-analysis", "key", resilience.NewCircuitBreaker("flow-fn"), cfg)

	metrics := observability.NewMetrics()
	hub := realtime.NewHub(logger)
	dashCache := cache.New[*service.LedgerSnapshot](time.Minute)
	t.Cleanup(dashCache.Stop)

	ledger := service.NewLedger(store, store, hub, "financio_db", logger)
	dash := service.NewDashboard(store, store, dashCache, aggregate.NewLabeler("en", time.UTC), metrics, logger)
	adv := service.NewAdvisor(store, store, executor, dash, metrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go dash.Watch(ctx, hub)
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	router := handler.NewRouter(handler.Services{
		Ledger:    ledger,
		Dashboard: dash,
		Advisor:   adv,
		Events:    hub,
		Store:     store,
	}, handler.AuthConfig{DevAuth: true}, metrics, logger)

	return &flowEnv{t: t, router: router, calls: calls}
}

func (e *flowEnv) do(method, path, user string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.DevUserHeader, user)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// TestFlow_LedgerToAdvisor drives a new owner from seeding categories to an
// AI analysis over a real sqlite store.
func TestFlow_LedgerToAdvisor(t *testing.T) {
	env := newFlowEnv(t)

	rec := env.do(http.MethodPost, "/v1/categories/seed", "u1", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodPost, "/v1/categories/seed", "u1", nil); rec.Code != http.StatusOK {
		t.Errorf("second seed: expected 200, got %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/v1/categories?type=expense", "u1", nil)
	expense := decode[domain.ListResponse[domain.Category]](t, rec)
	if expense.Total != 10 {
		t.Fatalf("expected 10 expense categories, got %d", expense.Total)
	}
	rent := expense.Data[0]

	rec = env.do(http.MethodGet, "/v1/dashboard", "u1", nil)
	if got := decode[domain.Dashboard](t, rec); got.Summary.TransactionCount != 0 {
		t.Fatalf("expected empty dashboard, got %+v", got.Summary)
	}

	rec = env.do(http.MethodPost, "/v1/advisor/analyses", "u1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("analysis without transactions: expected 400, got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/v1/transactions", "u1", map[string]any{
		"type":        "expense",
		"amount":      1500,
		"category":    rent.ID,
		"description": "Office rent",
		"date":        time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	txn := decode[domain.Transaction](t, rec)

	// the cached empty ledger is dropped by the change event
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := decode[domain.Dashboard](t, env.do(http.MethodGet, "/v1/dashboard", "u1", nil))
		if got.Summary.TransactionCount == 1 {
			if got.Summary.ExpenseByCategory[rent.Name] != 1500 {
				t.Errorf("expected %s 1500, got %v", rent.Name, got.Summary.ExpenseByCategory)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dashboard was not invalidated")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = env.do(http.MethodPost, "/v1/advisor/analyses", "u1", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("run analysis: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode[domain.AnalysisOutcome](t, rec)
	if out.Status != domain.OutcomeCompleted || out.Credits.RemainingCredits != domain.FreeTierCredits-1 {
		t.Errorf("unexpected outcome %+v", out)
	}

	rec = env.do(http.MethodGet, "/v1/advisor/credits", "u1", nil)
	if credits := decode[domain.CreditsView](t, rec); credits.UsedCredits != 1 {
		t.Errorf("expected 1 used credit, got %+v", credits)
	}

	rec = env.do(http.MethodGet, "/v1/advisor/analyses/latest", "u1", nil)
	view := decode[domain.AnalysisView](t, rec)
	if len(view.Ranking) != 1 || view.Ranking[0].Percentage != 100 {
		t.Errorf("unexpected ranking %+v", view.Ranking)
	}
	if n := env.calls.Load(); n != 1 {
		t.Errorf("expected 1 function call, got %d", n)
	}

	// another owner sees none of it
	if rec := env.do(http.MethodGet, "/v1/transactions/"+txn.ID, "u2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign transaction: expected 404, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/v1/advisor/analyses/"+view.ID, "u2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign analysis: expected 404, got %d", rec.Code)
	}
}

func TestFlow_CategoryKindConflict(t *testing.T) {
	env := newFlowEnv(t)

	rec := env.do(http.MethodPost, "/v1/categories", "u1", map[string]any{
		"name": "Consulting", "type": "income", "color": "emerald", "icon": "Briefcase",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cat := decode[domain.Category](t, rec)

	rec = env.do(http.MethodPost, "/v1/transactions", "u1", map[string]any{
		"type": "income", "amount": 900, "category": cat.ID, "description": "Invoice 12", "date": "2026-10-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPatch, "/v1/categories/"+cat.ID, "u1", map[string]any{"type": "expense"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFlow_ListUntilDateCoversWholeDay(t *testing.T) {
	env := newFlowEnv(t)

	rec := env.do(http.MethodPost, "/v1/categories", "u1", map[string]any{
		"name": "Supplies", "type": "expense", "color": "amber", "icon": "Package",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cat := decode[domain.Category](t, rec)

	rec = env.do(http.MethodPost, "/v1/transactions", "u1", map[string]any{
		"type": "expense", "amount": 42, "category": cat.ID, "description": "  Paper and toner ", "date": "2026-10-03T15:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if txn := decode[domain.Transaction](t, rec); txn.Description != "Paper and toner" {
		t.Errorf("expected trimmed description, got %q", txn.Description)
	}

	list := decode[domain.ListResponse[domain.Transaction]](t, env.do(http.MethodGet, "/v1/transactions?from=2026-10-03&to=2026-10-03", "u1", nil))
	if list.Total != 1 {
		t.Errorf("expected the afternoon transaction within to=2026-10-03, got %d", list.Total)
	}

	list = decode[domain.ListResponse[domain.Transaction]](t, env.do(http.MethodGet, "/v1/transactions?to=2026-10-03T12:00:00Z", "u1", nil))
	if list.Total != 0 {
		t.Errorf("expected an exact bound to stay exact, got %d", list.Total)
	}
}

func TestFlow_Validation(t *testing.T) {
	env := newFlowEnv(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"negative amount", "/v1/transactions", map[string]any{"type": "expense", "amount": -1, "category": "c", "description": "d", "date": "2026-10-01"}},
		{"bad date", "/v1/transactions", map[string]any{"type": "expense", "amount": 1, "category": "c", "description": "d", "date": "yesterday"}},
		{"unknown field", "/v1/transactions", map[string]any{"kind": "expense"}},
		{"unknown icon", "/v1/categories", map[string]any{"name": "X", "type": "expense", "color": "red", "icon": "Rocket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, tt.path, "u1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	for _, q := range []string{"0", "367", "abc"} {
		if rec := env.do(http.MethodGet, "/v1/dashboard?days="+q, "u1", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestFlow_EventWebhook(t *testing.T) {
	env := newFlowEnv(t)

	own := domain.NewChangeEvent("financio_db", domain.CollectionTransactions, "t1", domain.ActionUpdate, "u1")
	if rec := env.do(http.MethodPost, "/v1/events", "u1", own); rec.Code != http.StatusAccepted {
		t.Errorf("own event: expected 202, got %d", rec.Code)
	}
	foreign := domain.NewChangeEvent("financio_db", domain.CollectionTransactions, "t1", domain.ActionUpdate, "u2")
	if rec := env.do(http.MethodPost, "/v1/events", "u1", foreign); rec.Code != http.StatusForbidden {
		t.Errorf("foreign event: expected 403, got %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/v1/events", "u1", map[string]any{"events": []string{}}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty event: expected 400, got %d", rec.Code)
	}
}
