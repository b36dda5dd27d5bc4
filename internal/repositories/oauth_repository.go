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

// OAuthRepository defines the interface for linked provider accounts
type OAuthRepository interface {
	// Upsert stores or refreshes the link for (user, provider)
	Upsert(ctx context.Context, account *models.OAuthAccount) error
	FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.OAuthAccount, error)
	FindByUserAndProvider(ctx context.Context, userID int64, provider string) (*models.OAuthAccount, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	Delete(ctx context.Context, userID int64, provider string) (bool, error)

	// ListByProvider returns every linked account for a provider, used by
	// the background scrobble sync.
	ListByProvider(ctx context.Context, provider string) ([]*models.OAuthAccount, error)
}

var oauthColumns = []string{
	"id", "user_id", "provider", "provider_user_id",
	"access_token", "refresh_token", "token_expires_at", "created_at",
}

// postgresOAuthRepository implements OAuthRepository using Postgres
type postgresOAuthRepository struct {
	db *models.Database
}

// NewPostgresOAuthRepository creates a new Postgres-backed OAuth repository
func NewPostgresOAuthRepository(db *models.Database) OAuthRepository {
	return &postgresOAuthRepository{db: db}
}

func scanOAuthAccount(row pgx.Row) (*models.OAuthAccount, error) {
	var a models.OAuthAccount
	var expiresAt *time.Time
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID,
		&a.AccessToken, &a.RefreshToken, &expiresAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan oauth account: %w", err)
	}
	if expiresAt != nil {
		a.TokenExpiresAt = *expiresAt
	}
	return &a, nil
}

// Upsert stores or refreshes a provider link
func (r *postgresOAuthRepository) Upsert(ctx context.Context, account *models.OAuthAccount) error {
	const query = `
		INSERT INTO oauth_accounts (user_id, provider, provider_user_id, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at
		RETURNING id, created_at`

	var expiresAt any
	if !account.TokenExpiresAt.IsZero() {
		expiresAt = account.TokenExpiresAt
	}

	err := r.db.Pool.QueryRow(ctx, query,
		account.UserID, account.Provider, account.ProviderUserID,
		account.AccessToken, account.RefreshToken, expiresAt).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// provider_user_id already linked to a different user
			return ErrDuplicate
		}
		return fmt.Errorf("failed to upsert oauth account: %w", err)
	}
	return nil
}

// FindByProviderUserID resolves an external identity to a linked account
func (r *postgresOAuthRepository) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.OAuthAccount, error) {
	query, args, err := psql.Select(oauthColumns...).
		From("oauth_accounts").
		Where(sq.Eq{"provider": provider, "provider_user_id": providerUserID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build oauth query: %w", err)
	}
	return scanOAuthAccount(r.db.Pool.QueryRow(ctx, query, args...))
}

// FindByUserAndProvider loads the user's link for a provider
func (r *postgresOAuthRepository) FindByUserAndProvider(ctx context.Context, userID int64, provider string) (*models.OAuthAccount, error) {
	query, args, err := psql.Select(oauthColumns...).
		From("oauth_accounts").
		Where(sq.Eq{"user_id": userID, "provider": provider}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build oauth query: %w", err)
	}
	return scanOAuthAccount(r.db.Pool.QueryRow(ctx, query, args...))
}

// UpdateTokens saves refreshed provider tokens
func (r *postgresOAuthRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	builder := psql.Update("oauth_accounts").
		Set("access_token", accessToken).
		Set("token_expires_at", expiresAt).
		Where(sq.Eq{"id": id})
	if refreshToken != "" {
		builder = builder.Set("refresh_token", refreshToken)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build token update: %w", err)
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return nil
}

// Delete unlinks a provider. Returns false when no row matched.
func (r *postgresOAuthRepository) Delete(ctx context.Context, userID int64, provider string) (bool, error) {
	query, args, err := psql.Delete("oauth_accounts").
		Where(sq.Eq{"user_id": userID, "provider": provider}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build oauth delete: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete oauth account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByProvider returns all linked accounts for a provider
func (r *postgresOAuthRepository) ListByProvider(ctx context.Context, provider string) ([]*models.OAuthAccount, error) {
	query, args, err := psql.Select(oauthColumns...).
		From("oauth_accounts").
		Where(sq.Eq{"provider": provider}).
		OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build oauth list query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query oauth accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.OAuthAccount
	for rows.Next() {
		account, err := scanOAuthAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
