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

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxWindowDays bounds the ?days= parameter.
const MaxWindowDays = 366

// LedgerSnapshot is one owner's fetched transactions and categories, the
// input every window is aggregated from.
type LedgerSnapshot struct {
	Transactions []domain.Transaction
	Categories   []domain.Category
}

// Dashboard computes aggregations on demand. Only the fetched ledger is
// cached per owner; the window is anchored to the clock on every call.
// A change event for an owner drops their snapshot; a fetch started before
// that drop is used for the caller but never cached.
type Dashboard struct {
	txns    port.TransactionStore
	cats    port.CategoryStore
	cache   port.Cache[*LedgerSnapshot]
	labeler *aggregate.Labeler
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	gens map[string]uint64
}

// NewDashboard creates the dashboard service with all dependencies injected.
func NewDashboard(
	txns port.TransactionStore,
	cats port.CategoryStore,
	cache port.Cache[*LedgerSnapshot],
	labeler *aggregate.Labeler,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dashboard {
	return &Dashboard{
		txns:    txns,
		cats:    cats,
		cache:   cache,
		labeler: labeler,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		gens:    make(map[string]uint64),
	}
}

func snapshotKey(userID string) string {
	return userID + "|ledger"
}

func validateDays(days int) error {
	if days < 1 || days > MaxWindowDays {
		return &domain.ErrValidation{Field: "days", Message: fmt.Sprintf("must be between 1 and %d", MaxWindowDays)}
	}
	return nil
}

// Get returns the dashboard of the trailing window of the given length.
func (d *Dashboard) Get(ctx context.Context, userID string, days int) (*domain.Dashboard, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Dashboard.Get")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("window.days", days))

	start := time.Now()
	snap, err := d.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	dash := aggregate.BuildDashboard(userID, snap.Transactions, snap.Categories, d.now(), days, d.labeler)
	d.metrics.ObserveAggregated(dash.Summary.TransactionCount)
	d.metrics.RecordRequestDuration("dashboard", time.Since(start))
	return &dash, nil
}

// snapshot returns the owner's cached ledger or fetches it.
func (d *Dashboard) snapshot(ctx context.Context, userID string) (*LedgerSnapshot, error) {
	key := snapshotKey(userID)
	if cached, ok := d.cache.Get(key); ok {
		d.metrics.IncrCacheHit("dashboard")
		return cached, nil
	}
	d.metrics.IncrCacheMiss("dashboard")

	gen := d.generation(userID)
	snap := &LedgerSnapshot{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := d.txns.ListTransactions(gCtx, userID, domain.TransactionFilter{})
		if err != nil {
			d.logger.Error("failed to fetch transactions",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			d.metrics.IncrExternalError("transactions")
			return fmt.Errorf("transactions fetch: %w", err)
		}
		snap.Transactions = t
		return nil
	})

	g.Go(func() error {
		c, err := d.cats.ListCategories(gCtx, userID)
		if err != nil {
			d.logger.Error("failed to fetch categories",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			d.metrics.IncrExternalError("categories")
			return fmt.Errorf("categories fetch: %w", err)
		}
		snap.Categories = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// the caller went away while we were fetching
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.storeIfCurrent(userID, gen, key, snap)
	return snap, nil
}

// Summary returns only the totals of the trailing window.
func (d *Dashboard) Summary(ctx context.Context, userID string, days int) (domain.Summary, error) {
	dash, err := d.Get(ctx, userID, days)
	if err != nil {
		return domain.Summary{}, err
	}
	return dash.Summary, nil
}

// Weekly builds the 7-day report.
func (d *Dashboard) Weekly(ctx context.Context, userID string) (*domain.WeeklyReport, error) {
	dash, err := d.Get(ctx, userID, 7)
	if err != nil {
		return nil, err
	}
	return &domain.WeeklyReport{
		UserID:      userID,
		Period:      dash.Period,
		Summary:     dash.Summary,
		Trends:      dash.Trends,
		TopExpenses: aggregate.Rank(dash.Summary.ExpenseByCategory),
		GeneratedAt: dash.ComputedAt,
	}, nil
}

// Invalidate drops the owner's cached ledger and fences off fetches
// already in flight.
func (d *Dashboard) Invalidate(userID string) {
	d.mu.Lock()
	d.gens[userID]++
	d.mu.Unlock()

	n := d.cache.DeleteOwner(userID)
	d.metrics.IncrInvalidation()
	d.logger.Debug("aggregations invalidated",
		zap.String("user_id", userID),
		zap.Int("entries", n),
	)
}

// HandleEvent invalidates the owner named by a relevant change event.
// Events that do not touch transactions or categories are ignored.
func (d *Dashboard) HandleEvent(ev domain.ChangeEvent) {
	d.metrics.IncrEvent(ev.Collection())
	if !ev.AffectsAggregation() {
		return
	}
	owner := ev.OwnerID()
	if owner == "" {
		d.logger.Warn("change event without owner", zap.Strings("events", ev.Events))
		return
	}
	d.Invalidate(owner)
}

// Watch applies events from src until ctx ends.
func (d *Dashboard) Watch(ctx context.Context, src port.EventSource) {
	events, cancel := src.Subscribe(ctx)
	defer cancel()

	for ev := range events {
		d.HandleEvent(ev)
	}
}

func (d *Dashboard) generation(userID string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gens[userID]
}

func (d *Dashboard) storeIfCurrent(userID string, gen uint64, key string, snap *LedgerSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gens[userID] != gen {
		d.logger.Debug("discarding stale aggregation", zap.String("user_id", userID))
		return
	}
	d.cache.Set(key, snap)
}
