package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"soundscore/internal/models"
)

// DMRepository defines the interface for direct message operations
type DMRepository interface {
	// GetOrCreateConversation returns the conversation between two users,
	// creating it on first contact.
	GetOrCreateConversation(ctx context.Context, userA, userB int64) (*models.Conversation, error)
	FindConversation(ctx context.Context, id int64) (*models.Conversation, error)

	// ListConversations returns the user's threads with the other
	// participant, last message and unread count filled in.
	ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error)

	CreateMessage(ctx context.Context, msg *models.DirectMessage) error
	ListMessages(ctx context.Context, conversationID int64, before int64, limit int) ([]*models.DirectMessage, error)

	// MarkRead flags messages sent to userID in the conversation as read
	MarkRead(ctx context.Context, conversationID, userID int64) error

	// UnreadCount counts unread messages addressed to userID across all
	// of their conversations.
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// postgresDMRepository implements DMRepository using Postgres
type postgresDMRepository struct {
	db *models.Database
}

// NewPostgresDMRepository creates a new Postgres-backed DM repository
func NewPostgresDMRepository(db *models.Database) DMRepository {
	return &postgresDMRepository{db: db}
}

// GetOrCreateConversation upserts the normalized user pair
func (r *postgresDMRepository) GetOrCreateConversation(ctx context.Context, userA, userB int64) (*models.Conversation, error) {
	if userA == userB {
		return nil, fmt.Errorf("cannot start a conversation with yourself")
	}
	u1, u2 := models.NormalizeUserPair(userA, userB)

	const query = `
		INSERT INTO conversations (user1_id, user2_id)
		VALUES ($1, $2)
		ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
		RETURNING id, user1_id, user2_id, created_at`

	var c models.Conversation
	err := r.db.Pool.QueryRow(ctx, query, u1, u2).
		Scan(&c.ID, &c.User1ID, &c.User2ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return &c, nil
}

// FindConversation loads a conversation by ID
func (r *postgresDMRepository) FindConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	query, args, err := psql.Select("id", "user1_id", "user2_id", "created_at").
		From("conversations").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build conversation query: %w", err)
	}

	var c models.Conversation
	err = r.db.Pool.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.User1ID, &c.User2ID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns threads ordered by most recent activity
func (r *postgresDMRepository) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	const query = `
		SELECT c.id, c.user1_id, c.user2_id, c.created_at,
			u.id, u.username, u.bio, u.profile_picture_url, u.banner_image_url, u.created_at,
			m.id, m.sender_id, m.text, m.image_url, m.is_read, m.created_at,
			(SELECT COUNT(*) FROM direct_messages dm
				WHERE dm.conversation_id = c.id AND dm.sender_id <> $1 AND NOT dm.is_read)
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN LATERAL (
			SELECT id, sender_id, text, image_url, is_read, created_at
			FROM direct_messages
			WHERE conversation_id = c.id
			ORDER BY id DESC LIMIT 1
		) m ON TRUE
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		var other models.PublicProfile
		var msgID, msgSender *int64
		var msgText, msgImageURL *string
		var msgRead *bool
		var msgCreatedAt *time.Time

		err := rows.Scan(&c.ID, &c.User1ID, &c.User2ID, &c.CreatedAt,
			&other.ID, &other.Username, &other.Bio, &other.ProfilePictureURL,
			&other.BannerImageURL, &other.CreatedAt,
			&msgID, &msgSender, &msgText, &msgImageURL, &msgRead, &msgCreatedAt,
			&c.UnreadCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		c.OtherUser = &other
		if msgID != nil {
			c.LastMessage = &models.DirectMessage{
				ID:             *msgID,
				ConversationID: c.ID,
				SenderID:       *msgSender,
				Text:           *msgText,
				ImageURL:       *msgImageURL,
				IsRead:         *msgRead,
				CreatedAt:      *msgCreatedAt,
			}
		}
		conversations = append(conversations, &c)
	}
	return conversations, rows.Err()
}

// CreateMessage inserts a direct message
func (r *postgresDMRepository) CreateMessage(ctx context.Context, msg *models.DirectMessage) error {
	query, args, err := psql.Insert("direct_messages").
		Columns("conversation_id", "sender_id", "text", "image_url").
		Values(msg.ConversationID, msg.SenderID, msg.Text, msg.ImageURL).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build message insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages pages backwards through a conversation. before is a
// message ID cursor; zero means latest.
func (r *postgresDMRepository) ListMessages(ctx context.Context, conversationID int64, before int64, limit int) ([]*models.DirectMessage, error) {
	builder := psql.Select("id", "conversation_id", "sender_id", "text", "image_url", "is_read", "created_at").
		From("direct_messages").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("id DESC").
		Limit(uint64(limit))

	if before > 0 {
		builder = builder.Where(sq.Lt{"id": before})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build messages query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.DirectMessage
	for rows.Next() {
		var m models.DirectMessage
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.ImageURL, &m.IsRead, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead flags all messages addressed to userID as read
func (r *postgresDMRepository) MarkRead(ctx context.Context, conversationID, userID int64) error {
	query, args, err := psql.Update("direct_messages").
		Set("is_read", true).
		Where(sq.Eq{"conversation_id": conversationID, "is_read": false}).
		Where(sq.NotEq{"sender_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark read update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// UnreadCount counts unread messages addressed to userID
func (r *postgresDMRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM direct_messages dm
		JOIN conversations c ON c.id = dm.conversation_id
		WHERE (c.user1_id = $1 OR c.user2_id = $1)
			AND dm.sender_id <> $1 AND NOT dm.is_read`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
