// Package aggregate turns a user's raw transaction log into the data shown
// on the dashboard, the charts and the AI advisor report.
//
// Every function here is pure: callers fetch transactions and categories,
// pick "now", and pass them in. Nothing is cached or patched incrementally;
// a change to the inputs means calling the functions again.
package aggregate

import (
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// Day is the unit windows are measured in. Windows are real-time ranges,
// not calendar aligned.
const Day = 24 * time.Hour

// DefaultWindowDays is the trailing window used by the dashboard.
const DefaultWindowDays = 30

// Window is a closed time range: both ends are included.
type Window struct {
	Start time.Time
	End   time.Time
}

// Trailing returns [now - days*24h, now].
func Trailing(now time.Time, days int) Window {
	return Window{Start: now.Add(-time.Duration(days) * Day), End: now}
}

// Contains reports Start <= t <= End.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Length is the span of the window.
func (w Window) Length() time.Duration {
	return w.End.Sub(w.Start)
}

// Previous returns the window of equal length that ends right before this
// one starts, so the two never share an instant.
func (w Window) Previous() Window {
	end := w.Start.Add(-time.Nanosecond)
	return Window{Start: w.Start.Add(-w.Length()), End: end}
}

// InWindow keeps the transactions that fall inside w, preserving order.
func InWindow(txns []domain.Transaction, w Window) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}
