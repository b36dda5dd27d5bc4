package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "plain query untouched",
			raw:      "SELECT username FROM users LIMIT 5",
			expected: "SELECT username FROM users LIMIT 5",
		},
		{
			name:     "strips markdown fence",
			raw:      "```sql\nSELECT title FROM albums\n```",
			expected: "SELECT title FROM albums",
		},
		{
			name:     "strips bare fence",
			raw:      "```\nSELECT title FROM albums\n```",
			expected: "SELECT title FROM albums",
		},
		{
			name:     "strips line comments",
			raw:      "SELECT title -- the album name\nFROM albums",
			expected: "SELECT title FROM albums",
		},
		{
			name:     "collapses whitespace and trailing semicolon",
			raw:      "SELECT  title\n\tFROM albums ;",
			expected: "SELECT title FROM albums",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeSQL(tt.raw))
		})
	}
}

func TestValidateGeneratedSQL(t *testing.T) {
	t.Run("accepts a plain select", func(t *testing.T) {
		err := ValidateGeneratedSQL("SELECT username FROM users LIMIT 5")
		assert.NoError(t, err)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		assert.Error(t, ValidateGeneratedSQL(""))
	})

	t.Run("rejects non-select statements", func(t *testing.T) {
		for _, sql := range []string{
			"DELETE FROM reviews",
			"UPDATE users SET bio = 'x'",
			"DROP TABLE reviews",
			"INSERT INTO reviews VALUES (1)",
		} {
			assert.Error(t, ValidateGeneratedSQL(sql), sql)
		}
	})

	t.Run("rejects stacked statements", func(t *testing.T) {
		err := ValidateGeneratedSQL("SELECT 1; DELETE FROM reviews")
		require.Error(t, err)

		var platformErr *PlatformError
		require.ErrorAs(t, err, &platformErr)
		assert.Equal(t, "gemini", platformErr.Platform)
	})

	t.Run("rejects restricted columns and tables", func(t *testing.T) {
		for _, sql := range []string{
			"SELECT password_hash FROM users",
			"SELECT email FROM users",
			"SELECT access_token FROM oauth_accounts",
			"SELECT content FROM direct_messages",
			"SELECT content FROM chat_messages",
		} {
			assert.Error(t, ValidateGeneratedSQL(sql), sql)
		}
	})

	t.Run("blocked term check is case insensitive", func(t *testing.T) {
		assert.Error(t, ValidateGeneratedSQL("SELECT Email FROM users"))
	})
}

func TestFilterSensitive(t *testing.T) {
	results := []map[string]any{
		{
			"username":      "alice",
			"email":         "alice@example.com",
			"password_hash": "secret",
			"rating":        5,
		},
		{
			"id":      int64(7),
			"user_id": int64(3),
			"title":   "OK Computer",
		},
	}

	filtered := filterSensitive(results)
	require.Len(t, filtered, 2)

	assert.Equal(t, map[string]any{"username": "alice", "rating": 5}, filtered[0])
	assert.Equal(t, map[string]any{"title": "OK Computer"}, filtered[1])

	// Input rows stay untouched
	assert.Contains(t, results[0], "email")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
