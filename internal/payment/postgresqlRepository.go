package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rtc-api/internal/payment/entities"
)

type PaymentPostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentPostgresRepository(ctx context.Context, connString string) (*PaymentPostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	_, err = pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS payments (
            id TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            metadata JSONB
        )
    `)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PaymentPostgresRepository{pool: pool}, nil
}

func (r *PaymentPostgresRepository) Save(ctx context.Context, p entities.Payment) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO payments (id, type, amount, status, created_at, updated_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
	`, p.ID, string(p.Type), p.Amount, string(p.Status), p.CreatedAt, p.UpdatedAt, metadata)

	return err
}

func (r *PaymentPostgresRepository) Get(ctx context.Context, id string) (entities.Payment, bool) {
	var p entities.Payment
	var paymentType, status string
	var metadata []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, type, amount, status, created_at, updated_at, metadata
		FROM payments
		WHERE id = $1
	`, id).Scan(&p.ID, &paymentType, &p.Amount, &status, &p.CreatedAt, &p.UpdatedAt, &metadata)
	if err != nil {
		return entities.Payment{}, false
	}

	p.Type = entities.PaymentType(paymentType)
	p.Status = entities.PaymentStatus(status)
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &p.Metadata)
	}
	return p, true
}

func (r *PaymentPostgresRepository) UpdateStatus(ctx context.Context, id string, status entities.PaymentStatus, updatedAt time.Time) (entities.Payment, bool) {
	_, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return entities.Payment{}, false
	}
	return r.Get(ctx, id)
}

func (r *PaymentPostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}
