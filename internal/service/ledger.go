package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// Ledger owns the write side: transactions and categories. Every mutation
// is announced as a change event so cached aggregations get dropped.
type Ledger struct {
	txns     port.TransactionStore
	cats     port.CategoryStore
	events   port.EventPublisher
	database string
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewLedger creates the ledger service. database names the store in
// change-event strings.
func NewLedger(txns port.TransactionStore, cats port.CategoryStore, events port.EventPublisher, database string, logger *zap.Logger) *Ledger {
	return &Ledger{
		txns:     txns,
		cats:     cats,
		events:   events,
		database: database,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ============================================================
// Transactions
// ============================================================

func (l *Ledger) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Ledger.ListTransactions")
	defer span.End()

	return l.txns.ListTransactions(ctx, userID, filter)
}

func (l *Ledger) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	return l.txns.GetTransaction(ctx, userID, id)
}

// CreateTransaction validates in and stores a new transaction.
func (l *Ledger) CreateTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Ledger.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	txn, err := l.txns.CreateTransaction(ctx, &domain.Transaction{
		ID:          l.newID(),
		UserID:      userID,
		Type:        in.Type,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Date:        in.Date,
		ReceiptID:   in.ReceiptID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	l.publish(ctx, domain.CollectionTransactions, txn.ID, domain.ActionCreate, userID)
	return txn, nil
}

// UpdateTransaction applies patch. The kind of a transaction is fixed.
func (l *Ledger) UpdateTransaction(ctx context.Context, userID, id string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Ledger.UpdateTransaction")
	defer span.End()

	current, err := l.txns.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(current.Type); err != nil {
		return nil, err
	}

	patch.Apply(current)
	current.UpdatedAt = l.now().UTC()
	txn, err := l.txns.UpdateTransaction(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	l.publish(ctx, domain.CollectionTransactions, id, domain.ActionUpdate, userID)
	return txn, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Ledger.DeleteTransaction")
	defer span.End()

	if err := l.txns.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	l.publish(ctx, domain.CollectionTransactions, id, domain.ActionDelete, userID)
	return nil
}

// ============================================================
// Categories
// ============================================================

// ListCategories returns the owner's categories, optionally of one kind.
func (l *Ledger) ListCategories(ctx context.Context, userID string, kind domain.Kind) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Ledger.ListCategories")
	defer span.End()

	all, err := l.cats.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return all, nil
	}
	out := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if c.Type == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *Ledger) CreateCategory(ctx context.Context, userID string, in domain.CategoryInput) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Ledger.CreateCategory")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	cat, err := l.insertCategory(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	l.publish(ctx, domain.CollectionCategories, cat.ID, domain.ActionCreate, userID)
	return cat, nil
}

func (l *Ledger) insertCategory(ctx context.Context, userID string, in domain.CategoryInput) (*domain.Category, error) {
	now := l.now().UTC()
	cat, err := l.cats.CreateCategory(ctx, &domain.Category{
		ID:        l.newID(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Color:     in.Color,
		Icon:      in.Icon,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

// UpdateCategory applies patch. Moving a category to the other kind is
// refused while any transaction still points at it.
func (l *Ledger) UpdateCategory(ctx context.Context, userID, id string, patch domain.CategoryPatch) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Ledger.UpdateCategory")
	defer span.End()

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	current, err := l.cats.GetCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.ChangesKind(current) {
		n, err := l.txns.CountByCategory(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("count category references: %w", err)
		}
		if n > 0 {
			return nil, &domain.ErrConflict{
				Message: fmt.Sprintf("category %s is used by %d transaction(s) and cannot change type", id, n),
			}
		}
	}

	patch.Apply(current)
	current.UpdatedAt = l.now().UTC()
	cat, err := l.cats.UpdateCategory(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	l.publish(ctx, domain.CollectionCategories, id, domain.ActionUpdate, userID)
	return cat, nil
}

// DeleteCategory removes a category. Transactions that referenced it are
// kept and aggregate under Unknown.
func (l *Ledger) DeleteCategory(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Ledger.DeleteCategory")
	defer span.End()

	if err := l.cats.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	l.publish(ctx, domain.CollectionCategories, id, domain.ActionDelete, userID)
	return nil
}

// SeedDefaults creates the default categories for an owner who has none.
// created is false when the owner already had categories.
func (l *Ledger) SeedDefaults(ctx context.Context, userID string) (cats []domain.Category, created bool, err error) {
	ctx, span := tracer.Start(ctx, "Ledger.SeedDefaults")
	defer span.End()

	existing, err := l.cats.ListCategories(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return existing, false, nil
	}

	cats = make([]domain.Category, 0, len(domain.DefaultCategories))
	for _, in := range domain.DefaultCategories {
		cat, err := l.insertCategory(ctx, userID, in)
		if err != nil {
			return nil, false, err
		}
		cats = append(cats, *cat)
		l.publish(ctx, domain.CollectionCategories, cat.ID, domain.ActionCreate, userID)
	}

	l.logger.Info("seeded default categories",
		zap.String("user_id", userID),
		zap.Int("count", len(cats)),
	)
	return cats, true, nil
}

func (l *Ledger) publish(ctx context.Context, collection, id, action, userID string) {
	if l.events == nil {
		return
	}
	ev := domain.NewChangeEvent(l.database, collection, id, action, userID)
	if err := l.events.Publish(ctx, ev); err != nil {
		l.logger.Warn("failed to publish change event",
			zap.String("user_id", userID),
			zap.Strings("events", ev.Events),
			zap.Error(err),
		)
	}
}
