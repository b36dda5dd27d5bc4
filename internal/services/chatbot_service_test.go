package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"soundscore/internal/models"
	"soundscore/internal/testutil"
)

// fakeAssistant scripts the two model calls the chatbot makes
type fakeAssistant struct {
	sql        string
	sqlErr     error
	answer     string
	answerErr  error
	seenRows   []map[string]any
	seenPrompt string
}

func (f *fakeAssistant) GenerateSQL(ctx context.Context, question, history string) (string, error) {
	return f.sql, f.sqlErr
}

func (f *fakeAssistant) FormatResults(ctx context.Context, question string, results []map[string]any, history string) (string, error) {
	f.seenRows = results
	f.seenPrompt = question
	return f.answer, f.answerErr
}

func newChatbotFixture(assistant *fakeAssistant) (*ChatbotService, *testutil.MockChatRepository) {
	chats := new(testutil.MockChatRepository)
	return NewChatbotService(assistant, chats), chats
}

func TestChatbotAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers and records both turns", func(t *testing.T) {
		assistant := &fakeAssistant{
			sql:    "SELECT title FROM albums LIMIT 5",
			answer: "Here are five albums.",
		}
		svc, chats := newChatbotFixture(assistant)

		chats.On("RecentHistory", mock.Anything, int64(1), mock.Anything).
			Return([]*models.ChatMessage{}, nil)
		chats.On("RunReadOnlyQuery", mock.Anything, assistant.sql).
			Return([]map[string]any{{"title": "OK Computer"}}, nil)
		chats.On("Append", mock.Anything, mock.AnythingOfType("*models.ChatMessage")).Return(nil)

		answer, err := svc.Ask(ctx, 1, "  what should I listen to?  ")
		require.NoError(t, err)
		assert.Equal(t, "Here are five albums.", answer)
		chats.AssertNumberOfCalls(t, "Append", 2)
	})

	t.Run("strips private columns before the model sees rows", func(t *testing.T) {
		assistant := &fakeAssistant{sql: "SELECT * FROM users", answer: "ok"}
		svc, chats := newChatbotFixture(assistant)

		chats.On("RecentHistory", mock.Anything, int64(1), mock.Anything).
			Return([]*models.ChatMessage{}, nil)
		chats.On("RunReadOnlyQuery", mock.Anything, mock.Anything).
			Return([]map[string]any{{
				"username":      "ada",
				"email":         "ada@example.com",
				"password_hash": "x",
				"id":            int64(1),
				"user_id":       int64(1),
			}}, nil)
		chats.On("Append", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Ask(ctx, 1, "who reviews the most?")
		require.NoError(t, err)

		require.Len(t, assistant.seenRows, 1)
		row := assistant.seenRows[0]
		assert.Equal(t, "ada", row["username"])
		for _, hidden := range []string{"email", "password_hash", "id", "user_id"} {
			assert.NotContains(t, row, hidden)
		}
	})

	t.Run("degrades politely when SQL generation fails", func(t *testing.T) {
		assistant := &fakeAssistant{sqlErr: assert.AnError}
		svc, chats := newChatbotFixture(assistant)

		chats.On("RecentHistory", mock.Anything, int64(1), mock.Anything).
			Return([]*models.ChatMessage{}, nil)
		chats.On("Append", mock.Anything, mock.Anything).Return(nil)

		answer, err := svc.Ask(ctx, 1, "question")
		require.NoError(t, err)
		assert.Contains(t, answer, "Sorry")
		chats.AssertNotCalled(t, "RunReadOnlyQuery", mock.Anything, mock.Anything)
	})

	t.Run("degrades politely when the query fails", func(t *testing.T) {
		assistant := &fakeAssistant{sql: "SELECT 1"}
		svc, chats := newChatbotFixture(assistant)

		chats.On("RecentHistory", mock.Anything, int64(1), mock.Anything).
			Return([]*models.ChatMessage{}, nil)
		chats.On("RunReadOnlyQuery", mock.Anything, "SELECT 1").Return(nil, assert.AnError)
		chats.On("Append", mock.Anything, mock.Anything).Return(nil)

		answer, err := svc.Ask(ctx, 1, "question")
		require.NoError(t, err)
		assert.Contains(t, answer, "Try rephrasing")
	})

	t.Run("rejects empty questions", func(t *testing.T) {
		svc, _ := newChatbotFixture(&fakeAssistant{})
		_, err := svc.Ask(ctx, 1, "   ")
		assert.Error(t, err)
	})
}
