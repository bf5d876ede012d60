package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/handler"
	"github.com/boddenberg/financio-bfa-go/internal/infra/observability"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(svc handler.Services) http.Handler {
	return handler.NewRouter(svc, handler.AuthConfig{JWTSecret: testSecret}, observability.NewMetrics(), zap.NewNop())
}

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(handler.Services{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(handler.Services{Store: stubPinger{}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz_StoreDown(t *testing.T) {
	router := newTestRouter(handler.Services{Store: stubPinger{err: errors.New("connection refused")}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(handler.Services{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	router := newTestRouter(handler.Services{})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"valid token", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, "u1", time.Hour), http.StatusOK},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), jwt.SigningMethodHS256, "u1", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, "u1", -time.Minute), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, "", time.Hour), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/metrics/advisor", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAuth_DevHeader(t *testing.T) {
	dev := handler.NewRouter(handler.Services{}, handler.AuthConfig{DevAuth: true}, observability.NewMetrics(), zap.NewNop())
	prod := newTestRouter(handler.Services{})

	for name, tc := range map[string]struct {
		router http.Handler
		want   int
	}{
		"dev auth":  {dev, http.StatusOK},
		"prod auth": {prod, http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/metrics/advisor", nil)
		req.Header.Set(handler.DevUserHeader, "u1")
		rec := httptest.NewRecorder()

		tc.router.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", name, tc.want, rec.Code)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(handler.Services{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
