package aggregate

import (
	"sort"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

type dayBucket struct {
	point domain.CashFlowPoint
	first time.Time
}

// CashFlow buckets the transactions inside w by calendar day and returns
// one point per day that has activity, earliest first. Days are ordered by
// the earliest transaction they hold, never by label.
func CashFlow(txns []domain.Transaction, w Window, l *Labeler) []domain.CashFlowPoint {
	buckets := make(map[time.Time]*dayBucket)
	for _, t := range txns {
		if !w.Contains(t.Date) {
			continue
		}
		day := l.StartOfDay(t.Date)
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{
				point: domain.CashFlowPoint{Label: l.Label(t.Date), Date: day},
				first: t.Date,
			}
			buckets[day] = b
		}
		if t.Date.Before(b.first) {
			b.first = t.Date
		}
		switch t.Type {
		case domain.KindIncome:
			b.point.Income += t.Amount
		case domain.KindExpense:
			b.point.Expense += t.Amount
		}
	}

	ordered := make([]*dayBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].first.Before(ordered[j].first)
	})

	points := make([]domain.CashFlowPoint, 0, len(ordered))
	for _, b := range ordered {
		points = append(points, b.point)
	}
	return points
}
