package supabase

import (
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// transactionRow maps the transactions table.
type transactionRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	ReceiptID   *string   `json:"receipt_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTransactionRow(t *domain.Transaction) transactionRow {
	row := transactionRow{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Category:    t.CategoryID,
		Description: t.Description,
		Date:        t.Date.UTC(),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if t.ReceiptID != "" {
		receipt := t.ReceiptID
		row.ReceiptID = &receipt
	}
	return row
}

func (r transactionRow) toDomain() domain.Transaction {
	t := domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        domain.Kind(r.Type),
		Amount:      r.Amount,
		CategoryID:  r.Category,
		Description: r.Description,
		Date:        r.Date,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ReceiptID != nil {
		t.ReceiptID = *r.ReceiptID
	}
	return t
}

// categoryRow maps the categories table.
type categoryRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCategoryRow(c *domain.Category) categoryRow {
	return categoryRow{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Type:      string(c.Type),
		Color:     c.Color,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (r categoryRow) toDomain() domain.Category {
	return domain.Category{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Type:      domain.Kind(r.Type),
		Color:     r.Color,
		Icon:      r.Icon,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// analysisRow maps the ai_analyses table. summary is a jsonb column.
type analysisRow struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	AnalysisDate time.Time      `json:"analysis_date"`
	PeriodDays   int            `json:"period_days"`
	Summary      domain.Summary `json:"summary"`
	Advice       string         `json:"advice"`
}

func toAnalysisRow(a *domain.AIAnalysis) analysisRow {
	return analysisRow{
		ID:           a.ID,
		UserID:       a.UserID,
		AnalysisDate: a.AnalysisDate.UTC(),
		PeriodDays:   a.PeriodDays,
		Summary:      a.Summary,
		Advice:       a.Advice,
	}
}

func (r analysisRow) toDomain() domain.AIAnalysis {
	s := r.Summary
	if s.ExpenseByCategory == nil {
		s.ExpenseByCategory = map[string]float64{}
	}
	return domain.AIAnalysis{
		ID:           r.ID,
		UserID:       r.UserID,
		AnalysisDate: r.AnalysisDate,
		PeriodDays:   r.PeriodDays,
		Summary:      s,
		Advice:       r.Advice,
	}
}

// rateLimitRow maps the rate_limits table. Any column may be null in
// older rows.
type rateLimitRow struct {
	UserID          string     `json:"user_id"`
	TotalCredits    *int       `json:"total_credits"`
	UsedCredits     *int       `json:"used_credits"`
	IsPaid          *bool      `json:"is_paid"`
	LastUsedAt      *time.Time `json:"last_used_at"`
	Month           *string    `json:"month,omitempty"`
	AIAnalysisCount *int       `json:"ai_analysis_count,omitempty"`
	MonthlyLimit    *int       `json:"monthly_limit,omitempty"`
}

func toRateLimitRow(r *domain.RateLimitRecord) rateLimitRow {
	row := rateLimitRow{
		UserID:          r.UserID,
		TotalCredits:    r.TotalCredits,
		UsedCredits:     r.UsedCredits,
		IsPaid:          r.IsPaid,
		LastUsedAt:      r.LastUsedAt,
		AIAnalysisCount: r.AIAnalysisCount,
		MonthlyLimit:    r.MonthlyLimit,
	}
	if r.Month != "" {
		month := r.Month
		row.Month = &month
	}
	return row
}

func (r rateLimitRow) toDomain() *domain.RateLimitRecord {
	rec := &domain.RateLimitRecord{
		UserID:          r.UserID,
		TotalCredits:    r.TotalCredits,
		UsedCredits:     r.UsedCredits,
		IsPaid:          r.IsPaid,
		LastUsedAt:      r.LastUsedAt,
		AIAnalysisCount: r.AIAnalysisCount,
		MonthlyLimit:    r.MonthlyLimit,
	}
	if r.Month != nil {
		rec.Month = *r.Month
	}
	return rec
}
