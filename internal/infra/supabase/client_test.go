package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financio-bfa-go/internal/infra/supabase"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	return supabase.NewClient(srv.Client(), srv.URL, "anon", "service", resilience.NewCircuitBreaker(t.Name()), cfg, zap.NewNop())
}

func TestListTransactions_ScopesByOwner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer service" {
			t.Errorf("missing auth headers")
		}
		if r.URL.Path != "/rest/v1/transactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "eq.u1" {
			t.Errorf("expected owner filter, got %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "eq.expense" {
			t.Errorf("expected type filter, got %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"t1","user_id":"u1","type":"expense","amount":12.5,"category":"c1","description":"lunch","date":"2025-10-01T12:00:00+00:00","receipt_id":null,"created_at":"2025-10-01T12:00:00+00:00","updated_at":"2025-10-01T12:00:00+00:00"}]`))
	})

	txns, err := c.ListTransactions(context.Background(), "u1", domain.TransactionFilter{Type: domain.KindExpense})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].Amount != 12.5 || txns[0].CategoryID != "c1" || txns[0].Type != domain.KindExpense {
		t.Errorf("unexpected transaction %+v", txns[0])
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.GetTransaction(context.Background(), "u1", "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %T %v", err, err)
	}
}

func TestMissingRowsDoNotOpenCircuit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.GetTransaction(ctx, "u1", "missing")
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			t.Fatalf("call %d: expected ErrNotFound, got %T %v", i, err, err)
		}
	}

	if _, err := c.ListCategories(ctx, "u2"); err != nil {
		t.Fatalf("expected other owners to be served, got %T %v", err, err)
	}
}

func TestCreateCategory_ReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			t.Errorf("expected representation preference")
		}
		var row map[string]any
		_ = json.NewDecoder(r.Body).Decode(&row)
		if row["user_id"] != "u1" || row["name"] != "Rent" {
			t.Errorf("unexpected row %v", row)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{row})
	})

	cat, err := c.CreateCategory(context.Background(), &domain.Category{
		ID: "c1", UserID: "u1", Name: "Rent", Type: domain.KindExpense, Color: "red", Icon: "Home",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cat.Name != "Rent" || cat.Type != domain.KindExpense {
		t.Errorf("unexpected category %+v", cat)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad filter"}`))
	})

	_, err := c.ListCategories(context.Background(), "u1")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %T %v", err, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	cats, err := c.ListCategories(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("expected no categories, got %d", len(cats))
	}
}

func TestGetRecord_MissingIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	rec, err := c.GetRecord(context.Background(), "u1")
	if err != nil || rec != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", rec, err)
	}
}

func TestSaveRecord_Upserts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("on_conflict") != "user_id" {
			t.Errorf("expected on_conflict=user_id, got %s", r.URL.RawQuery)
		}
		if !strings.Contains(r.Header.Get("Prefer"), "merge-duplicates") {
			t.Errorf("expected merge-duplicates preference")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[]`))
	})

	acc := domain.NewCreditAccount("u1")
	if err := c.SaveRecord(context.Background(), domain.RecordFromAccount(acc)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
