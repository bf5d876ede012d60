package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// ============================================================
// AI analyses
// ============================================================

const analysisColumns = `id, user_id, analysis_date, period_days, summary, advice`

func scanAnalysis(r rowScanner) (domain.AIAnalysis, error) {
	var (
		a             domain.AIAnalysis
		date, summary string
	)
	if err := r.Scan(&a.ID, &a.UserID, &date, &a.PeriodDays, &summary, &a.Advice); err != nil {
		return a, err
	}
	a.AnalysisDate = parseTime(date)
	if err := json.Unmarshal([]byte(summary), &a.Summary); err != nil {
		return a, err
	}
	if a.Summary.ExpenseByCategory == nil {
		a.Summary.ExpenseByCategory = map[string]float64{}
	}
	return a, nil
}

// ListAnalyses returns the owner's analyses, newest first.
func (s *Store) ListAnalyses(ctx context.Context, userID string, limit int) ([]domain.AIAnalysis, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListAnalyses")
	defer span.End()

	q := `SELECT ` + analysisColumns + ` FROM ai_analyses WHERE user_id = ? ORDER BY analysis_date DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	out := []domain.AIAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *Store) GetAnalysis(ctx context.Context, userID, id string) (*domain.AIAnalysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM ai_analyses WHERE user_id = ? AND id = ?`, userID, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "analysis", ID: id}
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &a, nil
}

func (s *Store) CreateAnalysis(ctx context.Context, a *domain.AIAnalysis) (*domain.AIAnalysis, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateAnalysis")
	defer span.End()

	summary, err := json.Marshal(a.Summary)
	if err != nil {
		return nil, storeErr(err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ai_analyses (`+analysisColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, formatTime(a.AnalysisDate), a.PeriodDays, string(summary), a.Advice,
	)
	if err != nil {
		return nil, storeErr(err)
	}
	return s.GetAnalysis(ctx, a.UserID, a.ID)
}

func (s *Store) DeleteAnalysis(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_analyses WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return storeErr(err)
	}
	return affected(res, "analysis", id)
}

// ============================================================
// Rate limits
// ============================================================

// GetRecord returns nil when the owner has no row yet.
func (s *Store) GetRecord(ctx context.Context, userID string) (*domain.RateLimitRecord, error) {
	var (
		total, used, count, limit sql.NullInt64
		paid                      sql.NullBool
		lastUsed, month           sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT total_credits, used_credits, is_paid, last_used_at, month, ai_analysis_count, monthly_limit
		 FROM rate_limits WHERE user_id = ?`, userID,
	).Scan(&total, &used, &paid, &lastUsed, &month, &count, &limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}

	rec := &domain.RateLimitRecord{
		UserID:          userID,
		TotalCredits:    intPtr(total),
		UsedCredits:     intPtr(used),
		AIAnalysisCount: intPtr(count),
		MonthlyLimit:    intPtr(limit),
		Month:           month.String,
	}
	if paid.Valid {
		rec.IsPaid = &paid.Bool
	}
	if lastUsed.Valid {
		t := parseTime(lastUsed.String)
		rec.LastUsedAt = &t
	}
	return rec, nil
}

// SaveRecord inserts or replaces the owner's row.
func (s *Store) SaveRecord(ctx context.Context, rec *domain.RateLimitRecord) error {
	var lastUsed sql.NullString
	if rec.LastUsedAt != nil {
		lastUsed = sql.NullString{String: formatTime(*rec.LastUsedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rate_limits (user_id, total_credits, used_credits, is_paid, last_used_at, month, ai_analysis_count, monthly_limit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   total_credits = excluded.total_credits,
		   used_credits = excluded.used_credits,
		   is_paid = excluded.is_paid,
		   last_used_at = excluded.last_used_at,
		   month = excluded.month,
		   ai_analysis_count = excluded.ai_analysis_count,
		   monthly_limit = excluded.monthly_limit`,
		rec.UserID, nullInt(rec.TotalCredits), nullInt(rec.UsedCredits), nullBool(rec.IsPaid), lastUsed,
		nullString(rec.Month), nullInt(rec.AIAnalysisCount), nullInt(rec.MonthlyLimit),
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}
