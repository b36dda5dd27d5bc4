package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// historyExchanges is how many prior exchanges feed the model as context
const historyExchanges = 5

// assistantModel is the slice of GeminiService the chatbot depends on
type assistantModel interface {
	GenerateSQL(ctx context.Context, question, history string) (string, error)
	FormatResults(ctx context.Context, question string, results []map[string]any, history string) (string, error)
}

// ChatbotService answers natural-language questions about the catalog by
// generating SQL, running it read-only and phrasing the results.
type ChatbotService struct {
	gemini assistantModel
	chats  repositories.ChatRepository
}

// NewChatbotService creates a new chatbot service
func NewChatbotService(gemini assistantModel, chats repositories.ChatRepository) *ChatbotService {
	return &ChatbotService{gemini: gemini, chats: chats}
}

// Ask answers one question and records the exchange in the user's history
func (s *ChatbotService) Ask(ctx context.Context, userID int64, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is empty")
	}

	history, err := s.historyText(ctx, userID)
	if err != nil {
		slog.Warn("Failed to load chat history", "user_id", userID, "error", err)
		history = ""
	}

	answer := s.answer(ctx, question, history)

	// History failures must not lose the answer.
	s.record(ctx, userID, models.ChatRoleUser, question)
	s.record(ctx, userID, models.ChatRoleModel, answer)

	return answer, nil
}

// History returns the user's recent exchanges for the chat UI
func (s *ChatbotService) History(ctx context.Context, userID int64) ([]*models.ChatMessage, error) {
	return s.chats.RecentHistory(ctx, userID, historyExchanges*2)
}

func (s *ChatbotService) answer(ctx context.Context, question, history string) string {
	sql, err := s.gemini.GenerateSQL(ctx, question, history)
	if err != nil {
		slog.Warn("Assistant could not generate SQL", "error", err)
		return "Sorry, I couldn't work out how to answer that. Try asking about albums, reviews or listeners."
	}

	results, err := s.chats.RunReadOnlyQuery(ctx, sql)
	if err != nil {
		slog.Warn("Assistant query failed", "sql", sql, "error", err)
		return "Sorry, something went wrong looking that up. Try rephrasing your question."
	}

	answer, err := s.gemini.FormatResults(ctx, question, filterSensitive(results), history)
	if err != nil {
		slog.Warn("Assistant could not format results", "error", err)
		return "Sorry, something went wrong phrasing the answer."
	}
	return answer
}

func (s *ChatbotService) historyText(ctx context.Context, userID int64) (string, error) {
	messages, err := s.chats.RecentHistory(ctx, userID, historyExchanges*2)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, m := range messages {
		if m.Role == models.ChatRoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (s *ChatbotService) record(ctx context.Context, userID int64, role, content string) {
	msg := &models.ChatMessage{UserID: userID, Role: role, Content: content}
	if err := s.chats.Append(ctx, msg); err != nil {
		slog.Error("Failed to record chat message", "user_id", userID, "role", role, "error", err)
	}
}

// Row keys stripped from results before they reach the model
var sensitiveColumns = map[string]bool{
	"password_hash": true,
	"access_token":  true,
	"refresh_token": true,
	"email":         true,
	"id":            true,
	"user_id":       true,
}

func filterSensitive(results []map[string]any) []map[string]any {
	filtered := make([]map[string]any, 0, len(results))
	for _, row := range results {
		clean := make(map[string]any, len(row))
		for k, v := range row {
			if !sensitiveColumns[strings.ToLower(k)] {
				clean[k] = v
			}
		}
		filtered = append(filtered, clean)
	}
	return filtered
}
