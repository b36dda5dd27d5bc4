package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService("test-secret", 30*time.Minute, 7*24*time.Hour, 15*time.Minute)
}

func TestIssuePairAndVerify(t *testing.T) {
	svc := newTestTokenService()

	pair, err := svc.IssuePair(42)
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(1800), pair.ExpiresIn)

	userID, err := svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	userID, err = svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestVerify_RejectsWrongType(t *testing.T) {
	svc := newTestTokenService()

	pair, err := svc.IssuePair(42)
	require.NoError(t, err)

	// A refresh token must not pass as an access token
	_, err = svc.Verify(pair.RefreshToken, TokenTypeAccess)
	assert.Error(t, err)

	// And a reset token must not pass as either
	reset, err := svc.IssuePasswordReset(42)
	require.NoError(t, err)
	_, err = svc.Verify(reset, TokenTypeAccess)
	assert.Error(t, err)
	_, err = svc.Verify(reset, TokenTypeRefresh)
	assert.Error(t, err)

	userID, err := svc.Verify(reset, TokenTypePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	svc := newTestTokenService()
	other := NewTokenService("other-secret", 30*time.Minute, 7*24*time.Hour, 15*time.Minute)

	pair, err := svc.IssuePair(42)
	require.NoError(t, err)

	_, err = other.Verify(pair.AccessToken, TokenTypeAccess)
	assert.Error(t, err)
}

func TestVerify_RejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute, 7*24*time.Hour, 15*time.Minute)

	pair, err := svc.IssuePair(42)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	assert.Error(t, err)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Verify("not-a-token", TokenTypeAccess)
	assert.Error(t, err)

	_, err = svc.Verify("", TokenTypeAccess)
	assert.Error(t, err)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPassword("correct horse battery", hash))
	assert.False(t, CheckPassword("wrong password", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestHashPassword_RejectsShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}
