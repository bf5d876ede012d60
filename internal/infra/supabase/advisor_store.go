package supabase

import (
	"context"
	"net/http"
	"strconv"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// ============================================================
// AI analyses (implements port.AnalysisStore)
// ============================================================

// ListAnalyses returns the owner's analyses, newest first.
func (c *Client) ListAnalyses(ctx context.Context, userID string, limit int) ([]domain.AIAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAnalyses")
	defer span.End()

	var out []domain.AIAnalysis
	err := c.call(ctx, "analyses", func(ctx context.Context) error {
		q := query(userID)
		q.Set("order", "analysis_date.desc")
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		body, err := c.doRequest(ctx, http.MethodGet, path(tableAnalyses, q), nil, "")
		if err != nil {
			return err
		}
		rows, err := decodeRows[analysisRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.AIAnalysis, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAnalysis(ctx context.Context, userID, id string) (*domain.AIAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAnalysis")
	defer span.End()

	var a domain.AIAnalysis
	err := c.call(ctx, "analyses", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodGet, scoped(tableAnalyses, userID, id)+"&limit=1", nil, "")
		if err != nil {
			return err
		}
		row, err := firstRow[analysisRow](body, "analysis", id)
		if err != nil {
			return err
		}
		a = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateAnalysis(ctx context.Context, a *domain.AIAnalysis) (*domain.AIAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAnalysis")
	defer span.End()

	var created domain.AIAnalysis
	err := c.call(ctx, "analyses", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodPost, tableAnalyses, toAnalysisRow(a), preferRepresentation)
		if err != nil {
			return err
		}
		row, err := firstRow[analysisRow](body, "analysis", a.ID)
		if err != nil {
			return err
		}
		created = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteAnalysis(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAnalysis")
	defer span.End()

	return c.call(ctx, "analyses", func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodDelete, scoped(tableAnalyses, userID, id), nil, preferRepresentation)
		if err != nil {
			return err
		}
		_, err = firstRow[analysisRow](body, "analysis", id)
		return err
	})
}

// ============================================================
// Rate limits (implements port.CreditStore)
// ============================================================

// GetRecord returns the owner's rate-limit row, or nil when there is none.
func (c *Client) GetRecord(ctx context.Context, userID string) (*domain.RateLimitRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRecord")
	defer span.End()

	var rec *domain.RateLimitRecord
	err := c.call(ctx, "rate_limits", func(ctx context.Context) error {
		q := query(userID)
		q.Set("limit", "1")
		body, err := c.doRequest(ctx, http.MethodGet, path(tableRateLimits, q), nil, "")
		if err != nil {
			return err
		}
		rows, err := decodeRows[rateLimitRow](body)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			rec = rows[0].toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveRecord upserts the owner's rate-limit row keyed by user_id.
func (c *Client) SaveRecord(ctx context.Context, rec *domain.RateLimitRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveRecord")
	defer span.End()

	return c.call(ctx, "rate_limits", func(ctx context.Context) error {
		_, err := c.doRequest(ctx, http.MethodPost, tableRateLimits+"?on_conflict=user_id", toRateLimitRow(rec), preferUpsert)
		return err
	})
}
