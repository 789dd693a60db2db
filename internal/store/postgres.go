package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enigma119/uqam-kafka-event-driven-poc/internal/model"
)

type postgresDeliveryStore struct {
	pool *pgxpool.Pool
}

// NewPostgresDeliveryStore returns a DeliveryStore backed by the deliveries
// table. Every write is a single statement keyed by delivery_id, so each
// merge persists atomically.
func NewPostgresDeliveryStore(pool *pgxpool.Pool) DeliveryStore {
	return &postgresDeliveryStore{pool: pool}
}

const deliveryColumns = `delivery_id, order_id, customer_name, status, items, started_at, completed_at, status_history, created_at, updated_at`

func (s *postgresDeliveryStore) GetByID(ctx context.Context, deliveryID string) (*model.DeliveryRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE delivery_id = $1
	`, deliveryID)

	rec, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return rec, nil
}

func (s *postgresDeliveryStore) Create(ctx context.Context, rec *model.DeliveryRecord) (*model.DeliveryRecord, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO deliveries (
			delivery_id, order_id, customer_name, status, items,
			started_at, completed_at, status_history
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+deliveryColumns+`
	`,
		rec.DeliveryID,
		rec.OrderID,
		rec.CustomerName,
		rec.Status,
		rec.Items,
		rec.StartedAt,
		rec.CompletedAt,
		rec.StatusHistory,
	)

	created, err := scanDelivery(row)
	if err != nil {
		return nil, fmt.Errorf("create delivery: %w", err)
	}
	return created, nil
}

func (s *postgresDeliveryStore) Update(ctx context.Context, rec *model.DeliveryRecord) (*model.DeliveryRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE deliveries
		SET status = $2,
		    started_at = $3,
		    completed_at = $4,
		    status_history = $5,
		    updated_at = now()
		WHERE delivery_id = $1
		RETURNING `+deliveryColumns+`
	`,
		rec.DeliveryID,
		rec.Status,
		rec.StartedAt,
		rec.CompletedAt,
		rec.StatusHistory,
	)

	updated, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update delivery: %w", err)
	}
	return updated, nil
}

func (s *postgresDeliveryStore) ListAll(ctx context.Context) ([]model.DeliveryRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var records []model.DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return records, nil
}

func scanDelivery(row pgx.Row) (*model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	if err := row.Scan(
		&rec.DeliveryID,
		&rec.OrderID,
		&rec.CustomerName,
		&rec.Status,
		&rec.Items,
		&rec.StartedAt,
		&rec.CompletedAt,
		&rec.StatusHistory,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
