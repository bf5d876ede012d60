// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// TransactionStore persists transactions. Every call is scoped to one owner;
// a document of another owner behaves as not found.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	CountByCategory(ctx context.Context, userID, categoryID string) (int, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, userID, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
}

// AnalysisStore persists AI analyses, newest first.
type AnalysisStore interface {
	ListAnalyses(ctx context.Context, userID string, limit int) ([]domain.AIAnalysis, error)
	GetAnalysis(ctx context.Context, userID, id string) (*domain.AIAnalysis, error)
	CreateAnalysis(ctx context.Context, a *domain.AIAnalysis) (*domain.AIAnalysis, error)
	DeleteAnalysis(ctx context.Context, userID, id string) error
}

// CreditStore reads and writes rate-limit records. GetRecord returns
// (nil, nil) when the user has none yet.
type CreditStore interface {
	GetRecord(ctx context.Context, userID string) (*domain.RateLimitRecord, error)
	SaveRecord(ctx context.Context, rec *domain.RateLimitRecord) error
}

// Store bundles every persistence port of one backend.
type Store interface {
	TransactionStore
	CategoryStore
	AnalysisStore
	CreditStore
	Ping(ctx context.Context) error
}

// AnalysisExecutor runs the remote advisor function.
type AnalysisExecutor interface {
	Execute(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResponse, error)
}

// EventPublisher announces document changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// EventSource delivers document changes until the context ends or the
// returned cancel func is called.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, func())
}

// Cache provides generic caching with TTL and per-owner invalidation.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeleteOwner(owner string) int
}
