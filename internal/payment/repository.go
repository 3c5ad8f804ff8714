package payment

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"rtc-api/internal/payment/entities"
)

type Repository interface {
	Save(ctx context.Context, p entities.Payment) error
	Get(ctx context.Context, id string) (entities.Payment, bool)
	UpdateStatus(ctx context.Context, id string, status entities.PaymentStatus, updatedAt time.Time) (entities.Payment, bool)
	Close() error
}

const shardCount = 256

type paymentShard struct {
	sync.RWMutex
	store map[string]*entities.Payment
}

// InMemoryRepository shards records by id so mutations on different ids never
// contend on the same lock.
type InMemoryRepository struct {
	shards [shardCount]*paymentShard
}

func NewInMemoryRepository() *InMemoryRepository {
	r := &InMemoryRepository{}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &paymentShard{store: make(map[string]*entities.Payment)}
	}
	return r
}

func (r *InMemoryRepository) getShard(key string) *paymentShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return r.shards[h.Sum32()%shardCount]
}

func (r *InMemoryRepository) Save(ctx context.Context, p entities.Payment) error {
	shard := r.getShard(p.ID)
	shard.Lock()
	stored := p
	shard.store[p.ID] = &stored
	shard.Unlock()
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (entities.Payment, bool) {
	shard := r.getShard(id)
	shard.RLock()
	defer shard.RUnlock()
	p, exists := shard.store[id]
	if !exists {
		return entities.Payment{}, false
	}
	return *p, true
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status entities.PaymentStatus, updatedAt time.Time) (entities.Payment, bool) {
	shard := r.getShard(id)
	shard.Lock()
	defer shard.Unlock()
	p, exists := shard.store[id]
	if !exists {
		return entities.Payment{}, false
	}
	p.Status = status
	p.UpdatedAt = updatedAt
	return *p, true
}

func (r *InMemoryRepository) Close() error { return nil }
