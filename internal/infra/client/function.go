// Package client holds outbound HTTP clients for services Financio calls
// but does not own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// executionRequest is the function gateway's synchronous execution envelope.
type executionRequest struct {
	Body    string            `json:"body"`
	Async   bool              `json:"async"`
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

type executionResponse struct {
	Status             string `json:"status"`
	ResponseStatusCode int    `json:"responseStatusCode"`
	ResponseBody       string `json:"responseBody"`
}

// functionReply is the advisor function's own JSON body.
type functionReply struct {
	Success bool            `json:"success"`
	Summary *domain.Summary `json:"summary,omitempty"`
	Advice  string          `json:"advice"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// FunctionClient runs the AI advisor function and waits for its result.
type FunctionClient struct {
	httpClient *http.Client
	baseURL    string
	functionID string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewFunctionClient creates a FunctionClient. cfg.Timeout bounds each
// execution including retries; cfg.MaxConcurrency caps executions in flight.
func NewFunctionClient(httpClient *http.Client, baseURL, functionID, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *FunctionClient {
	return &FunctionClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		functionID: functionID,
		apiKey:     apiKey,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

// Execute implements port.AnalysisExecutor.
func (c *FunctionClient) Execute(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	ctx, span := tracer.Start(ctx, "FunctionClient.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", req.UserID), attribute.String("function.id", c.functionID))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: "advisor", Err: err}
	}
	defer c.bulkhead.Release()

	var reply functionReply
	err := resilience.Call(ctx, c.cb, c.cfg, "advisor", func(ctx context.Context) error {
		return c.execute(ctx, req, &reply)
	})
	if err != nil {
		var (
			to *domain.ErrTimeout
			co *domain.ErrCircuitOpen
		)
		if errors.As(err, &to) || errors.As(err, &co) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: "advisor", Err: err}
	}

	return &domain.AnalysisResponse{Summary: reply.Summary, Advice: reply.Advice}, nil
}

func (c *FunctionClient) execute(ctx context.Context, req *domain.AnalysisRequest, reply *functionReply) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return resilience.Permanent(err)
	}
	envelope, err := json.Marshal(executionRequest{
		Body:    string(payload),
		Async:   false,
		Path:    "/",
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		return resilience.Permanent(err)
	}

	url := fmt.Sprintf("%s/functions/%s/executions", c.baseURL, c.functionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return resilience.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("function gateway returned status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilience.Permanent(fmt.Errorf("function gateway returned status %d", resp.StatusCode))
	}

	var exec executionResponse
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		return resilience.Permanent(fmt.Errorf("decode execution: %w", err))
	}

	// the function's own failures are final; retrying re-runs the model
	if err := json.Unmarshal([]byte(exec.ResponseBody), reply); err != nil {
		return resilience.Permanent(fmt.Errorf("decode function body (status %d): %w", exec.ResponseStatusCode, err))
	}
	if exec.ResponseStatusCode != http.StatusOK {
		msg := reply.Error
		if msg == "" {
			msg = "analysis failed"
		}
		if reply.Code != "" {
			msg = reply.Code + ": " + msg
		}
		return resilience.Permanent(errors.New(msg))
	}
	if strings.TrimSpace(reply.Advice) == "" {
		return resilience.Permanent(errors.New("function returned no advice"))
	}
	return nil
}
