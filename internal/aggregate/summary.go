package aggregate

import (
	"math"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// Summarize computes the totals for the transactions inside w. The
// per-category map comes from Breakdown; slices sharing a name add up.
func Summarize(txns []domain.Transaction, categories []domain.Category, w Window) domain.Summary {
	in := InWindow(txns, w)
	income, expense := totals(in)

	s := domain.Summary{
		TotalIncome:       income,
		TotalExpense:      expense,
		NetBalance:        income - expense,
		TransactionCount:  len(in),
		ExpenseByCategory: make(map[string]float64),
	}
	for _, slice := range Breakdown(in, categories) {
		s.ExpenseByCategory[slice.Name] += slice.Amount
	}
	return s
}

// Trend is the whole-percent change from previous to current. A previous
// value of zero yields 0, not infinity. Halves round away from zero.
func Trend(current, previous float64) int {
	if previous == 0 {
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}

// Trends compares w against the equally long window right before it.
func Trends(txns []domain.Transaction, w Window) domain.Trends {
	curIncome, curExpense := totals(InWindow(txns, w))
	prevIncome, prevExpense := totals(InWindow(txns, w.Previous()))
	return domain.Trends{
		Income:  Trend(curIncome, prevIncome),
		Expense: Trend(curExpense, prevExpense),
	}
}

func totals(txns []domain.Transaction) (income, expense float64) {
	for _, t := range txns {
		switch t.Type {
		case domain.KindIncome:
			income += t.Amount
		case domain.KindExpense:
			expense += t.Amount
		}
	}
	return income, expense
}
