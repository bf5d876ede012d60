// Package supabase stores Financio documents in Supabase tables through the
// PostgREST API. Every query carries a user_id filter so one owner can never
// read or touch another owner's rows.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Table names.
const (
	tableTransactions = "transactions"
	tableCategories   = "categories"
	tableAnalyses     = "ai_analyses"
	tableRateLimits   = "rate_limits"
)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// doRequest executes an authenticated request to Supabase PostgREST.
// A 404 or 204 yields (nil, nil). Other 4xx answers are not retried; apart
// from auth failures they are also kept out of the breaker counts.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		reqBody = bytes.NewReader(raw)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		statusErr := fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return nil, resilience.Permanent(statusErr)
		case resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout:
			return nil, resilience.Rejected(statusErr)
		}
		return nil, statusErr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

// call runs fn under the breaker and retry policy. Domain errors raised
// inside fn come back unchanged; everything else is reported as an
// external service failure of the named operation.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := resilience.Call(ctx, c.cb, c.cfg, "supabase", fn)
	if err == nil {
		return nil
	}

	var (
		nf *domain.ErrNotFound
		co *domain.ErrCircuitOpen
		to *domain.ErrTimeout
	)
	if errors.As(err, &nf) || errors.As(err, &co) || errors.As(err, &to) {
		return err
	}
	return &domain.ErrExternalService{Service: "supabase/" + op, Err: err}
}

// Ping checks that PostgREST answers for the categories table.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	return c.call(ctx, "ping", func(ctx context.Context) error {
		_, err := c.doRequest(ctx, http.MethodGet, tableCategories+"?select=id&limit=1", nil, "")
		return err
	})
}
