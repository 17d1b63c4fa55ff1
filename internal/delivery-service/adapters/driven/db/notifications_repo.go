package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

type NotificationsRepo struct {
	db *DB
}

func NewNotificationsRepo(db *DB) ports.INotificationRepo {
	return &NotificationsRepo{
		db: db,
	}
}

// CreateIfAbsent relies on the unique index over (user_id, delivery_id, type)
// so retried event dispatch never produces a second row.
func (nr *NotificationsRepo) CreateIfAbsent(ctx context.Context, n model.Notification) (bool, error) {
	conn := nr.db.conn

	q := `INSERT INTO notifications (notification_id, user_id, delivery_id, type, message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, delivery_id, type) DO NOTHING`
	tag, err := conn.Exec(ctx, q, n.ID, n.UserID, n.DeliveryID, n.Type, n.Message)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (nr *NotificationsRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	conn := nr.db.conn

	q := `SELECT notification_id, user_id, delivery_id, type, message, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := conn.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.DeliveryID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (nr *NotificationsRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	conn := nr.db.conn

	q := `UPDATE notifications SET is_read = TRUE WHERE notification_id = $1 AND user_id = $2`
	tag, err := conn.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mapErr(pgx.ErrNoRows, "notification not found")
	}
	return nil
}
