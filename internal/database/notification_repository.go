package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// NotificationRepo persists nurse alert history.
type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

func (r *NotificationRepo) Insert(ctx context.Context, alert domain.Alert, hostessID string) error {
	const query = `
		INSERT INTO nurse_notifications
			(id, session_id, ward_id, hostess_id, meal_type, meal_count, urgency, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		alert.ID, alert.SessionID, alert.WardID, nullableText(hostessID),
		nullableText(alert.MealType), alert.MealCount, alert.Urgency,
		string(alert.Status), alert.SentAt)
	if err != nil {
		return fmt.Errorf("failed to insert nurse notification: %w", err)
	}
	return nil
}
