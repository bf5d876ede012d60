package aggregate

import (
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// BuildDashboard runs every aggregation over the trailing window of the
// given length ending at now.
func BuildDashboard(userID string, txns []domain.Transaction, categories []domain.Category, now time.Time, days int, l *Labeler) domain.Dashboard {
	if days <= 0 {
		days = DefaultWindowDays
	}
	w := Trailing(now, days)
	in := InWindow(txns, w)
	return domain.Dashboard{
		UserID:     userID,
		Period:     domain.Period{From: w.Start, To: w.End, Days: days},
		Summary:    Summarize(in, categories, w),
		Trends:     Trends(txns, w),
		CashFlow:   CashFlow(in, w, l),
		Breakdown:  Breakdown(in, categories),
		ComputedAt: now,
	}
}
