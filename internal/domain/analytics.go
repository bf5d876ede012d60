package domain

import "time"

// ============================================================
// Aggregation outputs (dashboard cards, charts, report export)
// ============================================================

// CashFlowPoint is one calendar-day bucket of the cash-flow chart.
type CashFlowPoint struct {
	Label   string    `json:"day"`
	Date    time.Time `json:"date"`
	Income  float64   `json:"income"`
	Expense float64   `json:"expense"`
}

// CategorySlice is one slice of the expense pie chart.
type CategorySlice struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"value"`
	Color      string  `json:"color"`
	Percentage float64 `json:"percentage"`
}

// Summary is the totals payload shared by the dashboard cards, the PDF
// export and the AI advisor. The JSON keys are part of the stored
// AIAnalysis.summary contract.
type Summary struct {
	TotalIncome       float64            `json:"total_income"`
	TotalExpense      float64            `json:"total_expense"`
	NetBalance        float64            `json:"net_balance"`
	TransactionCount  int                `json:"transaction_count"`
	ExpenseByCategory map[string]float64 `json:"expense_by_category"`
}

// Trends holds period-over-period percentage changes.
type Trends struct {
	Income  int `json:"income"`
	Expense int `json:"expense"`
}

// Period describes the window an aggregation covers.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

// Dashboard is the full aggregation result for one owner and window.
type Dashboard struct {
	UserID     string          `json:"userId"`
	Period     Period          `json:"period"`
	Summary    Summary         `json:"summary"`
	Trends     Trends          `json:"trends"`
	CashFlow   []CashFlowPoint `json:"cashFlow"`
	Breakdown  []CategorySlice `json:"breakdown"`
	ComputedAt time.Time       `json:"computedAt"`
}

// CategoryShare ranks one entry of Summary.ExpenseByCategory. Shares are
// recomputed from amounts on read and never stored.
type CategoryShare struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// WeeklyReport is the 7-day digest behind GET /v1/reports/weekly.
type WeeklyReport struct {
	UserID      string          `json:"userId"`
	Period      Period          `json:"period"`
	Summary     Summary         `json:"summary"`
	Trends      Trends          `json:"trends"`
	TopExpenses []CategoryShare `json:"topExpenses"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
