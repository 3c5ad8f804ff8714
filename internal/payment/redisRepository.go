package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rtc-api/internal/payment/entities"
)

type PaymentRedisRepository struct {
	client *redis.Client
}

func NewPaymentRedisRepository(addr, password string, db int) *PaymentRedisRepository {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &PaymentRedisRepository{client: rdb}
}

func paymentKey(id string) string {
	return fmt.Sprintf("payment:%s", id)
}

func (r *PaymentRedisRepository) Save(ctx context.Context, p entities.Payment) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, paymentKey(p.ID), data, 0).Err()
}

func (r *PaymentRedisRepository) Get(ctx context.Context, id string) (entities.Payment, bool) {
	data, err := r.client.Get(ctx, paymentKey(id)).Result()
	if err != nil {
		return entities.Payment{}, false
	}

	var p entities.Payment
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return entities.Payment{}, false
	}
	return p, true
}

const updateStatusRetries = 5

// UpdateStatus mutates the record inside a WATCH transaction so concurrent
// writers to the same id never interleave a stale read with the set. A
// conflicting write aborts the exec and the update is retried on a fresh read.
func (r *PaymentRedisRepository) UpdateStatus(ctx context.Context, id string, status entities.PaymentStatus, updatedAt time.Time) (entities.Payment, bool) {
	key := paymentKey(id)

	var p entities.Payment
	for i := 0; i < updateStatusRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Result()
			if err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(data), &p); err != nil {
				return err
			}

			p.Status = status
			p.UpdatedAt = updatedAt
			payload, err := json.Marshal(p)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			return err
		}, key)

		if err == nil {
			return p, true
		}
		if err != redis.TxFailedErr {
			return entities.Payment{}, false
		}
	}
	return entities.Payment{}, false
}

func (r *PaymentRedisRepository) Close() error {
	return r.client.Close()
}
