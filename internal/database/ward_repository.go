package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// WardRepo reads ward reference data.
type WardRepo struct {
	pool *pgxpool.Pool
}

func NewWardRepo(pool *pgxpool.Pool) *WardRepo {
	return &WardRepo{pool: pool}
}

var _ domain.WardRepository = (*WardRepo)(nil)

func (r *WardRepo) List(ctx context.Context) ([]domain.Ward, error) {
	const query = `
		SELECT id, hospital_id, name, coalesce(floor, ''), bed_count, created_at
		FROM wards
		ORDER BY hospital_id, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list wards: %w", err)
	}
	defer rows.Close()

	var wards []domain.Ward
	for rows.Next() {
		var ward domain.Ward
		if err := rows.Scan(&ward.ID, &ward.HospitalID, &ward.Name, &ward.Floor, &ward.BedCount, &ward.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ward: %w", err)
		}
		wards = append(wards, ward)
	}
	return wards, rows.Err()
}

func (r *WardRepo) GetByID(ctx context.Context, id string) (*domain.Ward, error) {
	const query = `
		SELECT id, hospital_id, name, coalesce(floor, ''), bed_count, created_at
		FROM wards
		WHERE id = $1`

	var ward domain.Ward
	err := r.pool.QueryRow(ctx, query, id).Scan(&ward.ID, &ward.HospitalID, &ward.Name, &ward.Floor, &ward.BedCount, &ward.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ward by id: %w", err)
	}
	return &ward, nil
}
