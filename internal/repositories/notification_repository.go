package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"soundscore/internal/models"
)

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID int64) (bool, error)
	MarkAllRead(ctx context.Context, recipientID int64) error
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
}

// postgresNotificationRepository implements NotificationRepository using Postgres
type postgresNotificationRepository struct {
	db *models.Database
}

// NewPostgresNotificationRepository creates a new Postgres-backed notification repository
func NewPostgresNotificationRepository(db *models.Database) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

// Create inserts a notification
func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if !models.ValidNotificationType(n.Type) {
		return fmt.Errorf("unknown notification type: %s", n.Type)
	}

	query, args, err := psql.Insert("notifications").
		Columns("recipient_id", "actor_id", "type", "review_id", "comment_id", "group_invite_id").
		Values(n.RecipientID, n.ActorID, n.Type, n.ReviewID, n.CommentID, n.GroupInviteID).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build notification insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByRecipient lists notifications with the actor's username, newest first
func (r *postgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	builder := psql.Select(
		"n.id", "n.recipient_id", "n.actor_id", "n.type",
		"n.review_id", "n.comment_id", "n.group_invite_id",
		"n.is_read", "n.created_at", "u.username",
	).
		From("notifications n").
		Join("users u ON u.id = n.actor_id").
		Where(sq.Eq{"n.recipient_id": recipientID}).
		OrderBy("n.created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset))

	if unreadOnly {
		builder = builder.Where(sq.Eq{"n.is_read": false})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build notifications query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.Type,
			&n.ReviewID, &n.CommentID, &n.GroupInviteID,
			&n.IsRead, &n.CreatedAt, &n.ActorUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags one notification as read. Returns false when no row matched.
func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) (bool, error) {
	query, args, err := psql.Update("notifications").
		Set("is_read", true).
		Where(sq.Eq{"id": id, "recipient_id": recipientID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build mark read update: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllRead flags every unread notification for the recipient
func (r *postgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) error {
	query, args, err := psql.Update("notifications").
		Set("is_read", true).
		Where(sq.Eq{"recipient_id": recipientID, "is_read": false}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark all read update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UnreadCount counts unread notifications for the recipient
func (r *postgresNotificationRepository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("notifications").
		Where(sq.Eq{"recipient_id": recipientID, "is_read": false}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build unread count query: %w", err)
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
