package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/warehouse/internal/core/domain"
)

// MemoryAdapter keeps snapshots in process memory. Nothing survives a restart.
type MemoryAdapter struct {
	mu         sync.Mutex
	products   []domain.Product
	operations []domain.OperationRecord
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{}
}

func (m *MemoryAdapter) LoadAll(ctx context.Context) ([]domain.Product, []domain.OperationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	products := append([]domain.Product(nil), m.products...)
	operations := append([]domain.OperationRecord(nil), m.operations...)
	return products, operations, nil
}

func (m *MemoryAdapter) SaveProducts(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append([]domain.Product(nil), products...)
	return nil
}

func (m *MemoryAdapter) SaveOperations(ctx context.Context, operations []domain.OperationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append([]domain.OperationRecord(nil), operations...)
	return nil
}

// MemoryGuard is the in-process RequestGuard used when Redis is not
// configured. Keys expire after the same TTL as in Redis; expired keys are
// swept at most once per guardSweepInterval.
type MemoryGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	now       func() time.Time
	nextSweep time.Time
}

const guardSweepInterval = time.Minute

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) SetIdempotency(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)
	if expires, ok := g.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.seen[key] = now.Add(idempotencyKeyTTL)
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}

func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *MemoryGuard) sweep(now time.Time) {
	if now.Before(g.nextSweep) {
		return
	}
	for key, expires := range g.seen {
		if !now.Before(expires) {
			delete(g.seen, key)
		}
	}
	g.nextSweep = now.Add(guardSweepInterval)
}
