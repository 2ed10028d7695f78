package postgres

import (
	"context"

	"portal-service/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NotificationRepository writes admin inbox rows. The same type backs both
// delivery paths; which credential it runs under depends on the DB it wraps.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO admin_notifications (id, title, message, type, recipient_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return r.db.inActorTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, n.ID, n.Title, n.Message, n.Type, n.RecipientID, n.IsRead, n.CreatedAt); err != nil {
			return errFailedInsertNotification(err)
		}
		return nil
	})
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error) {
	query := `
		SELECT id, title, message, type, recipient_id, is_read, created_at
		FROM admin_notifications
		WHERE recipient_id = $1
	`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	var out []*notification.Notification
	err := r.db.inActorTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, recipientID)
		if err != nil {
			return errFailedListNotifications(err)
		}
		defer rows.Close()

		for rows.Next() {
			n := &notification.Notification{}
			if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.RecipientID, &n.IsRead, &n.CreatedAt); err != nil {
				return errFailedScanNotification(err)
			}
			out = append(out, n)
		}

		if err := rows.Err(); err != nil {
			return errFailedListNotifications(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
