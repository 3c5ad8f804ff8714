package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rtc-api/internal/payment/entities"
)

const sqliteTimeFormat = "2006-01-02T15:04:05.000Z"

type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteRepository(dataSourceName string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS payments (
            id TEXT PRIMARY KEY,
            type TEXT,
            amount REAL,
            status TEXT,
            created_at TEXT,
            updated_at TEXT,
            metadata TEXT
        )
    `)
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, p entities.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO payments (id, type, amount, status, created_at, updated_at, metadata)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, p.ID, string(p.Type), p.Amount, string(p.Status),
		p.CreatedAt.UTC().Format(sqliteTimeFormat),
		p.UpdatedAt.UTC().Format(sqliteTimeFormat),
		string(metadata))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (entities.Payment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(ctx, id)
}

func (r *SQLiteRepository) get(ctx context.Context, id string) (entities.Payment, bool) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, type, amount, status, created_at, updated_at, metadata
        FROM payments WHERE id = ?
    `, id)

	var p entities.Payment
	var paymentType, status, createdAt, updatedAt, metadata string
	if err := row.Scan(&p.ID, &paymentType, &p.Amount, &status, &createdAt, &updatedAt, &metadata); err != nil {
		return p, false
	}

	p.Type = entities.PaymentType(paymentType)
	p.Status = entities.PaymentStatus(status)
	p.CreatedAt, _ = time.Parse(sqliteTimeFormat, createdAt)
	p.UpdatedAt, _ = time.Parse(sqliteTimeFormat, updatedAt)
	if metadata != "" && metadata != "null" {
		_ = json.Unmarshal([]byte(metadata), &p.Metadata)
	}
	return p, true
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status entities.PaymentStatus, updatedAt time.Time) (entities.Payment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `
        UPDATE payments SET status = ?, updated_at = ? WHERE id = ?
    `, string(status), updatedAt.UTC().Format(sqliteTimeFormat), id)
	if err != nil {
		return entities.Payment{}, false
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return entities.Payment{}, false
	}
	return r.get(ctx, id)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
