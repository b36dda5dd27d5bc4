package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundscore/internal/models"
)

func ptr(v int64) *int64 { return &v }

func TestNestComments(t *testing.T) {
	t.Run("replies land under their parents in order", func(t *testing.T) {
		flat := []models.Comment{
			{ID: 1, Text: "first"},
			{ID: 2, Text: "second"},
			{ID: 3, ParentID: ptr(1), Text: "reply to first"},
			{ID: 4, ParentID: ptr(1), Text: "another reply to first"},
			{ID: 5, ParentID: ptr(2), Text: "reply to second"},
		}

		nested := nestComments(flat)
		require.Len(t, nested, 2)

		assert.Equal(t, int64(1), nested[0].ID)
		require.Len(t, nested[0].Replies, 2)
		assert.Equal(t, int64(3), nested[0].Replies[0].ID)
		assert.Equal(t, int64(4), nested[0].Replies[1].ID)

		assert.Equal(t, int64(2), nested[1].ID)
		require.Len(t, nested[1].Replies, 1)
	})

	t.Run("orphaned replies are dropped", func(t *testing.T) {
		flat := []models.Comment{
			{ID: 1, Text: "top"},
			{ID: 9, ParentID: ptr(404), Text: "parent was deleted"},
		}

		nested := nestComments(flat)
		require.Len(t, nested, 1)
		assert.Empty(t, nested[0].Replies)
	})

	t.Run("empty input yields no comments", func(t *testing.T) {
		assert.Empty(t, nestComments(nil))
	})
}
