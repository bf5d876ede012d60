package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/aggregate"
	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financio-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SummarySource yields the totals the advisor analyses.
type SummarySource interface {
	Summary(ctx context.Context, userID string, days int) (domain.Summary, error)
}

// Advisor runs credit-limited AI analyses and keeps their history.
type Advisor struct {
	credits   port.CreditStore
	analyses  port.AnalysisStore
	executor  port.AnalysisExecutor
	summaries SummarySource
	metrics   *observability.Metrics
	logger    *zap.Logger

	now   func() time.Time
	newID func() string

	// one run at a time per owner, so two clicks cannot spend one credit twice
	locks sync.Map
}

// NewAdvisor creates the advisor service with all dependencies injected.
func NewAdvisor(
	credits port.CreditStore,
	analyses port.AnalysisStore,
	executor port.AnalysisExecutor,
	summaries SummarySource,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Advisor {
	return &Advisor{
		credits:   credits,
		analyses:  analyses,
		executor:  executor,
		summaries: summaries,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Credits returns the owner's normalized credit account, creating a
// free-tier record on first use.
func (a *Advisor) Credits(ctx context.Context, userID string) (*domain.CreditAccount, error) {
	ctx, span := tracer.Start(ctx, "Advisor.Credits")
	defer span.End()

	rec, err := a.credits.GetRecord(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("credits fetch: %w", err)
	}
	if rec != nil {
		rec.UserID = userID
		return rec.Normalize(a.now()), nil
	}

	acc := domain.NewCreditAccount(userID)
	if err := a.credits.SaveRecord(ctx, domain.RecordFromAccount(acc)); err != nil {
		return nil, fmt.Errorf("credits init: %w", err)
	}
	a.logger.Info("initialized credit account", zap.String("user_id", userID))
	return acc, nil
}

// Run performs one analysis. With no credits left it declines without
// calling the function and reports that as an outcome. A failed run leaves
// credits untouched.
func (a *Advisor) Run(ctx context.Context, userID string) (*domain.AnalysisOutcome, error) {
	ctx, span := tracer.Start(ctx, "Advisor.Run")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	unlock := a.lock(userID)
	defer unlock()

	start := time.Now()
	defer func() {
		a.metrics.RecordRequestDuration("analysis", time.Since(start))
	}()

	acc, err := a.Credits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.Remaining() <= 0 {
		a.metrics.RecordAnalysis(observability.AnalysisDeclined, 0)
		a.logger.Info("analysis declined: no credits left", zap.String("user_id", userID))
		return &domain.AnalysisOutcome{Status: domain.OutcomeNoCredits, Credits: acc.View()}, nil
	}

	summary, err := a.summaries.Summary(ctx, userID, domain.AnalysisPeriodDays)
	if err != nil {
		a.metrics.RecordAnalysis(observability.AnalysisFailed, acc.Remaining())
		return nil, fmt.Errorf("analysis summary: %w", err)
	}
	if summary.TransactionCount == 0 {
		return nil, &domain.ErrValidation{
			Field:   "transactions",
			Message: fmt.Sprintf("no transactions in the last %d days", domain.AnalysisPeriodDays),
		}
	}

	resp, err := a.executor.Execute(ctx, &domain.AnalysisRequest{
		UserID:     userID,
		PeriodDays: domain.AnalysisPeriodDays,
		Summary:    &summary,
	})
	if err != nil {
		a.logger.Error("advisor function failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		a.metrics.IncrExternalError("advisor")
		a.metrics.RecordAnalysis(observability.AnalysisFailed, acc.Remaining())
		return nil, fmt.Errorf("advisor call: %w", err)
	}

	now := a.now().UTC()
	saved, err := a.analyses.CreateAnalysis(ctx, &domain.AIAnalysis{
		ID:           a.newID(),
		UserID:       userID,
		AnalysisDate: now,
		PeriodDays:   domain.AnalysisPeriodDays,
		Summary:      summary,
		Advice:       domain.TruncateAdvice(resp.Advice),
	})
	if err != nil {
		a.metrics.RecordAnalysis(observability.AnalysisFailed, acc.Remaining())
		return nil, fmt.Errorf("analysis save: %w", err)
	}

	acc.Debit(now)
	if err := a.credits.SaveRecord(ctx, domain.RecordFromAccount(acc)); err != nil {
		// the analysis is already stored, so the run still succeeds
		a.logger.Error("failed to debit credit",
			zap.String("user_id", userID),
			zap.String("analysis_id", saved.ID),
			zap.Error(err),
		)
		a.metrics.IncrExternalError("credits")
	}

	a.metrics.RecordAnalysis(observability.AnalysisCompleted, acc.Remaining())
	return &domain.AnalysisOutcome{
		Status:   domain.OutcomeCompleted,
		Analysis: saved,
		Credits:  acc.View(),
	}, nil
}

// List returns past analyses, newest first.
func (a *Advisor) List(ctx context.Context, userID string, limit int) ([]domain.AIAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Advisor.List")
	defer span.End()

	return a.analyses.ListAnalyses(ctx, userID, limit)
}

// Latest returns the newest analysis with its ranking.
func (a *Advisor) Latest(ctx context.Context, userID string) (*domain.AnalysisView, error) {
	list, err := a.analyses.ListAnalyses(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &domain.ErrNotFound{Resource: "analysis", ID: "latest"}
	}
	return viewOf(&list[0]), nil
}

// Get returns one analysis with its ranking.
func (a *Advisor) Get(ctx context.Context, userID, id string) (*domain.AnalysisView, error) {
	an, err := a.analyses.GetAnalysis(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return viewOf(an), nil
}

func (a *Advisor) Delete(ctx context.Context, userID, id string) error {
	return a.analyses.DeleteAnalysis(ctx, userID, id)
}

func viewOf(an *domain.AIAnalysis) *domain.AnalysisView {
	return &domain.AnalysisView{
		AIAnalysis: *an,
		Ranking:    aggregate.Rank(an.Summary.ExpenseByCategory),
	}
}

func (a *Advisor) lock(userID string) func() {
	v, _ := a.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
