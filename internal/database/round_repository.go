package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// RoundRepo persists delivery rounds.
type RoundRepo struct {
	pool *pgxpool.Pool
}

func NewRoundRepo(pool *pgxpool.Pool) *RoundRepo {
	return &RoundRepo{pool: pool}
}

var _ domain.RoundRepository = (*RoundRepo)(nil)

func (r *RoundRepo) Insert(ctx context.Context, record domain.RoundRecord) error {
	const query = `
		INSERT INTO delivery_sessions
			(session_id, hostess_id, ward_id, hospital_id, status, meal_count, meals_served, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		record.ID, record.HostessID, record.WardID, nullableText(record.HospitalID),
		string(record.Status), record.MealCount, record.MealsServed, record.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery round: %w", err)
	}
	return nil
}

func (r *RoundRepo) MarkCompleted(ctx context.Context, id string, completedAt time.Time, mealsServed int, summary string) error {
	const query = `
		UPDATE delivery_sessions
		SET status = 'completed', completed_at = $2, meals_served = $3, summary = $4
		WHERE session_id = $1`

	tag, err := r.pool.Exec(ctx, query, id, completedAt, mealsServed, nullableText(summary))
	if err != nil {
		return fmt.Errorf("failed to mark round completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoundNotFound
	}
	return nil
}

func (r *RoundRepo) GetByID(ctx context.Context, id string) (*domain.RoundRecord, error) {
	const query = `
		SELECT session_id, hostess_id, ward_id, coalesce(hospital_id, ''), status,
		       meal_count, meals_served, coalesce(summary, ''), started_at,
		       coalesce(completed_at, 'epoch'::timestamptz), created_at
		FROM delivery_sessions
		WHERE session_id = $1`

	record, err := scanRound(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round by id: %w", err)
	}
	return record, nil
}

func (r *RoundRepo) ListByWard(ctx context.Context, wardID string, limit int) ([]domain.RoundRecord, error) {
	const query = `
		SELECT session_id, hostess_id, ward_id, coalesce(hospital_id, ''), status,
		       meal_count, meals_served, coalesce(summary, ''), started_at,
		       coalesce(completed_at, 'epoch'::timestamptz), created_at
		FROM delivery_sessions
		WHERE ward_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, wardID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds by ward: %w", err)
	}
	defer rows.Close()

	var records []domain.RoundRecord
	for rows.Next() {
		record, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanRound(row pgx.Row) (*domain.RoundRecord, error) {
	var record domain.RoundRecord
	var status string
	var completedAt time.Time

	err := row.Scan(&record.ID, &record.HostessID, &record.WardID, &record.HospitalID,
		&status, &record.MealCount, &record.MealsServed, &record.Summary,
		&record.StartedAt, &completedAt, &record.CreatedAt)
	if err != nil {
		return nil, err
	}

	record.Status = domain.SessionStatus(status)
	if completedAt.Unix() != 0 {
		record.CompletedAt = completedAt
	}
	return &record, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
