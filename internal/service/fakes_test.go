package service_test

import (
	"context"
	"sort"
	"sync"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
)

// --- Mocks ---

// memStore is an in-memory port.Store.
type memStore struct {
	mu        sync.Mutex
	txns      map[string]domain.Transaction
	cats      map[string]domain.Category
	analyses  map[string]domain.AIAnalysis
	records   map[string]domain.RateLimitRecord
	listCalls int
	listErr   error
	saveErr   error
	onList    func()
}

func newMemStore() *memStore {
	return &memStore{
		txns:     map[string]domain.Transaction{},
		cats:     map[string]domain.Category{},
		analyses: map[string]domain.AIAnalysis{},
		records:  map[string]domain.RateLimitRecord{},
	}
}

func (m *memStore) ListTransactions(_ context.Context, userID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	if m.onList != nil {
		m.onList()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.Transaction{}
	for _, t := range m.txns {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) GetTransaction(_ context.Context, userID, id string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok || t.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return &t, nil
}

func (m *memStore) CreateTransaction(_ context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns[t.ID] = *t
	out := *t
	return &out, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns[t.ID] = *t
	out := *t
	return &out, nil
}

func (m *memStore) DeleteTransaction(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txns[id]; !ok || t.UserID != userID {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	delete(m.txns, id)
	return nil
}

func (m *memStore) CountByCategory(_ context.Context, userID, categoryID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.txns {
		if t.UserID == userID && t.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListCategories(_ context.Context, userID string) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Category{}
	for _, c := range m.cats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetCategory(_ context.Context, userID, id string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cats[id]
	if !ok || c.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	return &c, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats[c.ID] = *c
	out := *c
	return &out, nil
}

func (m *memStore) UpdateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	return m.CreateCategory(context.Background(), c)
}

func (m *memStore) DeleteCategory(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cats[id]; !ok || c.UserID != userID {
		return &domain.ErrNotFound{Resource: "category", ID: id}
	}
	delete(m.cats, id)
	return nil
}

func (m *memStore) ListAnalyses(_ context.Context, userID string, limit int) ([]domain.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.AIAnalysis{}
	for _, a := range m.analyses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnalysisDate.After(out[j].AnalysisDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetAnalysis(_ context.Context, userID, id string) (*domain.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok || a.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "analysis", ID: id}
	}
	return &a, nil
}

func (m *memStore) CreateAnalysis(_ context.Context, a *domain.AIAnalysis) (*domain.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[a.ID] = *a
	out := *a
	return &out, nil
}

func (m *memStore) DeleteAnalysis(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.analyses[id]; !ok || a.UserID != userID {
		return &domain.ErrNotFound{Resource: "analysis", ID: id}
	}
	delete(m.analyses, id)
	return nil
}

func (m *memStore) GetRecord(_ context.Context, userID string) (*domain.RateLimitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) SaveRecord(_ context.Context, rec *domain.RateLimitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[rec.UserID] = *rec
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type mockExecutor struct {
	mu    sync.Mutex
	calls int
	resp  *domain.AnalysisResponse
	err   error
}

func (m *mockExecutor) Execute(_ context.Context, _ *domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.resp, m.err
}
