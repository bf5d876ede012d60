package domain

import "time"

// ============================================================
// AI advisor
// ============================================================

// MaxAdviceLength caps the stored advice text.
const MaxAdviceLength = 5000

// AnalysisPeriodDays is the trailing window an AI analysis covers.
const AnalysisPeriodDays = 30

// AIAnalysis is a persisted advisor run. Immutable once created.
type AIAnalysis struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	AnalysisDate time.Time `json:"analysisDate"`
	PeriodDays   int       `json:"periodDays"`
	Summary      Summary   `json:"summary"`
	Advice       string    `json:"advice"`
}

// TruncateAdvice enforces MaxAdviceLength on rune boundaries.
func TruncateAdvice(advice string) string {
	runes := []rune(advice)
	if len(runes) <= MaxAdviceLength {
		return advice
	}
	return string(runes[:MaxAdviceLength])
}

// AnalysisRequest is the payload sent to the advisor function.
type AnalysisRequest struct {
	UserID     string   `json:"userId"`
	PeriodDays int      `json:"periodDays"`
	Summary    *Summary `json:"summary,omitempty"`
}

// AnalysisResponse is what the advisor function returns.
type AnalysisResponse struct {
	Summary *Summary `json:"summary,omitempty"`
	Advice  string   `json:"advice"`
}

// Outcome statuses of a run-analysis request.
const (
	OutcomeCompleted = "completed"
	OutcomeNoCredits = "no_credits"
)

// AnalysisOutcome is the result of a run-analysis request. A declined run
// (no credits left) is an outcome, not an error.
type AnalysisOutcome struct {
	Status   string      `json:"status"`
	Analysis *AIAnalysis `json:"analysis,omitempty"`
	Credits  CreditsView `json:"credits"`
}

// AdvisorMetrics is returned by GET /v1/metrics/advisor.
type AdvisorMetrics struct {
	TotalRuns     int64   `json:"totalRuns"`
	Completed     int64   `json:"completed"`
	Failed        int64   `json:"failed"`
	Declined      int64   `json:"declined"`
	ErrorRate     float64 `json:"errorRate"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	Invalidations int64   `json:"invalidations"`
	Period        string  `json:"period"`
}

// AnalysisView is a stored analysis plus its category ranking, recomputed
// from Summary.ExpenseByCategory on every read.
type AnalysisView struct {
	AIAnalysis
	Ranking []CategoryShare `json:"ranking"`
}
