package client_test

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
	"github.com/boddenberg/financio-bfa-go/internal/infra/client"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"
)

func newFunctionClient(t *testing.T, cfg resilience.Config, h http.HandlerFunc) *client.FunctionClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 2
	}
	return client.NewFunctionClient(srv.Client(), srv.URL, "ai-analysis", "key", resilience.NewCircuitBreaker(t.Name()), cfg)
}

func execution(status int, body any) []byte {
	inner, _ := json.Marshal(body)
	out, _ := json.Marshal(map[string]any{
		"status":             "completed",
		"responseStatusCode": status,
		"responseBody":       string(inner),
	})
	return out
}

func TestExecute_Success(t *testing.T) {
	c := newFunctionClient(t, resilience.Config{}, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/functions/ai-analysis/executions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var env struct {
			Body  string `json:"body"`
			Async bool   `json:"async"`
		}
		_ = json.NewDecoder(r.Body).Decode(&env)
		if env.Async {
			t.Error("expected synchronous execution")
		}
		if !strings.Contains(env.Body, `"userId":"u1"`) {
			t.Errorf("expected user id in body, got %s", env.Body)
		}
		_, _ = w.Write(execution(200, map[string]any{"success": true, "advice": "cut rent"}))
	})

	resp, err := c.Execute(context.Background(), &domain.AnalysisRequest{UserID: "u1", PeriodDays: 30})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Advice != "cut rent" {
		t.Errorf("expected advice, got %q", resp.Advice)
	}
}

func TestExecute_FunctionErrorPreservesMessage(t *testing.T) {
	var calls int32
	c := newFunctionClient(t, resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write(execution(500, map[string]any{"error": "model overloaded", "code": "INTERNAL_ERROR"}))
	})

	_, err := c.Execute(context.Background(), &domain.AnalysisRequest{UserID: "u1"})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("expected underlying message, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected no retries for function errors, got %d calls", n)
	}
}

func TestExecute_Timeout(t *testing.T) {
	c := newFunctionClient(t, resilience.Config{Timeout: 30 * time.Millisecond}, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	_, err := c.Execute(context.Background(), &domain.AnalysisRequest{UserID: "u1"})
	var to *domain.ErrTimeout
	if !errors.As(err, &to) {
		t.Fatalf("expected ErrTimeout, got %T %v", err, err)
	}
}
