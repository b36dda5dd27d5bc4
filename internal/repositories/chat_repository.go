package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"soundscore/internal/models"
)

// ChatRepository stores assistant conversation history and runs the
// read-only queries the assistant generates.
type ChatRepository interface {
	Append(ctx context.Context, msg *models.ChatMessage) error

	// RecentHistory returns the last n exchanges in chronological order
	RecentHistory(ctx context.Context, userID int64, n int) ([]*models.ChatMessage, error)

	// RunReadOnlyQuery executes a SELECT inside a read-only transaction
	// and returns rows as column-name maps.
	RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error)
}

// postgresChatRepository implements ChatRepository using Postgres
type postgresChatRepository struct {
	db *models.Database
}

// NewPostgresChatRepository creates a new Postgres-backed chat repository
func NewPostgresChatRepository(db *models.Database) ChatRepository {
	return &postgresChatRepository{db: db}
}

// Append stores one turn of conversation
func (r *postgresChatRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	query, args, err := psql.Insert("chat_messages").
		Columns("user_id", "role", "content").
		Values(msg.UserID, msg.Role, msg.Content).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build chat insert: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, query, args...).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// RecentHistory returns the latest n messages oldest-first
func (r *postgresChatRepository) RecentHistory(ctx context.Context, userID int64, n int) ([]*models.ChatMessage, error) {
	query, args, err := psql.Select("id", "user_id", "role", "content", "created_at").
		From("chat_messages").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC").
		Limit(uint64(n)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
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

// RunReadOnlyQuery executes the generated SQL in a read-only transaction.
// Statement validation happens upstream; the transaction mode is the
// backstop against writes.
func (r *postgresChatRepository) RunReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET LOCAL statement_timeout = '5s'"); err != nil {
		return nil, fmt.Errorf("failed to set statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, tx.Commit(ctx)
}
