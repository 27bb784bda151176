package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medtrack/medtrack-api/internal/models"
)

// NotificationRepository persists emitted notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	const query = `INSERT INTO notifications (id, recipient_id, kind, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.RecipientID, n.Kind, n.Payload, n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListForRecipient returns the newest notifications for a user.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, recipient_id, kind, payload, read_at, created_at
FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead stamps a notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	const query = `UPDATE notifications SET read_at = $1 WHERE id = $2 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, readAt, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
