package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

// GeminiService wraps the Gemini API for the assistant and for catalog
// text generation (album summaries, artist bios).
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService creates a new Gemini service
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiService{client: client, model: model}, nil
}

const sqlSystemPrompt = `You are a PostgreSQL expert. Convert the user's question into one safe SQL query against this schema.

### SCHEMA

- users: id, username, bio, created_at
- artists: id, spotify_id, name, genres
- albums: id, spotify_id, title, artist, artist_id, release_date, genres
  - artist_id -> artists.id
- reviews: id, uuid, user_id, album_id, rating, content, is_favorite, created_at
  - user_id -> users.id, album_id -> albums.id
- comments: id, review_id, user_id, parent_id, content, created_at
- scrobbles: id, user_id, track_name, artist_name, album_name, played_at

### RULES

- Output only raw SQL, no explanations, no markdown
- SELECT statements only, a single statement
- Never select email, password or token columns
- Use INNER JOIN to cross tables, LIMIT where appropriate
- Ratings run 1 to 5

### EXAMPLES

"Show latest reviews"
SELECT reviews.rating, reviews.content, reviews.created_at FROM reviews ORDER BY created_at DESC LIMIT 5

"Show best albums"
SELECT albums.title, albums.artist, AVG(reviews.rating) AS avg_rating FROM albums INNER JOIN reviews ON albums.id = reviews.album_id GROUP BY albums.id ORDER BY avg_rating DESC LIMIT 5

"Who wrote the most reviews"
SELECT users.username, COUNT(*) AS review_count FROM reviews INNER JOIN users ON reviews.user_id = users.id GROUP BY users.id, users.username ORDER BY review_count DESC LIMIT 5`

// GenerateSQL converts a natural language question into a SQL query.
// The history string carries prior exchanges for follow-up questions.
func (s *GeminiService) GenerateSQL(ctx context.Context, question, history string) (string, error) {
	prompt := sqlSystemPrompt
	if history != "" {
		prompt += "\n\n### CONVERSATION HISTORY (for context)\n" + history
	}
	prompt += "\n\nUSER QUESTION:\n" + question + "\n\nSQL QUERY:"

	text, err := s.generate(ctx, prompt, "generate_sql")
	if err != nil {
		return "", err
	}

	sql := sanitizeSQL(text)
	if err := ValidateGeneratedSQL(sql); err != nil {
		return "", err
	}
	return sql, nil
}

// FormatResults phrases query results as a conversational answer
func (s *GeminiService) FormatResults(ctx context.Context, question string, results []map[string]any, history string) (string, error) {
	if len(results) == 0 {
		return "Sorry, I could not find what you requested.", nil
	}

	var b strings.Builder
	if history != "" {
		b.WriteString("### CONVERSATION HISTORY (for context)\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	b.WriteString("### USER QUESTION\n\"")
	b.WriteString(question)
	b.WriteString("\"\n\n### DATABASE RESULTS\n")
	b.WriteString(truncate(fmt.Sprint(results), 2000))
	b.WriteString(`

### YOUR TASK
Answer the question from these results:
- Friendly, conversational tone
- Returned results contain the answer; never claim you lack information the results imply
- List every matching item
- Do not explain queries or how the data was fetched
- Keep it concise`)

	text, err := s.generate(ctx, b.String(), "format_results")
	if err != nil {
		// Degrade to raw results rather than failing the chat turn
		return "Here are the results: " + truncate(fmt.Sprint(results), 500), nil
	}
	return text, nil
}

// AlbumSummary generates a short description for an album page
func (s *GeminiService) AlbumSummary(ctx context.Context, title, artist, releaseDate string, genres []string) (string, error) {
	prompt := fmt.Sprintf(`Write a brief, engaging summary (2-3 paragraphs) about this music album.
Focus on what listeners might expect based on the artist and genres.
Neutral, informative tone for a music review platform.
Do NOT invent chart positions, sales or awards.

Album: %s
Artist: %s
Release Date: %s
Genres: %s

Write the summary now:`, title, artist, orUnknown(releaseDate), orUnknown(strings.Join(genres, ", ")))

	return s.generate(ctx, prompt, "album_summary")
}

// ArtistBio generates a short biography for an artist page
func (s *GeminiService) ArtistBio(ctx context.Context, name string, genres []string) (string, error) {
	prompt := fmt.Sprintf(`Write a brief biography (2-3 paragraphs) of this music artist.
Neutral, informative tone for a music review platform.
Do NOT invent specific facts you are not certain of.

Artist: %s
Genres: %s

Write the biography now:`, name, orUnknown(strings.Join(genres, ", ")))

	return s.generate(ctx, prompt, "artist_bio")
}

func (s *GeminiService) generate(ctx context.Context, prompt, operation string) (string, error) {
	result, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		return "", &PlatformError{Platform: "gemini", Operation: operation, Message: "generation failed", Err: err}
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", &PlatformError{Platform: "gemini", Operation: operation, Message: "empty response"}
	}
	return text, nil
}

var (
	fenceRe   = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)\\s*```")
	commentRe = regexp.MustCompile(`--[^\n]*`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// sanitizeSQL strips markdown fences, comments and excess whitespace from
// a model response.
func sanitizeSQL(raw string) string {
	sql := raw
	if m := fenceRe.FindStringSubmatch(sql); m != nil {
		sql = m[1]
	}
	sql = commentRe.ReplaceAllString(sql, "")
	sql = spaceRe.ReplaceAllString(sql, " ")
	return strings.TrimSuffix(strings.TrimSpace(sql), ";")
}

// Columns the assistant must never read, whatever the model produced.
var blockedSQLTerms = []string{
	"password_hash", "access_token", "refresh_token", "email",
	"oauth_accounts", "chat_messages", "direct_messages",
}

// ValidateGeneratedSQL enforces the read-only, no-private-data contract on
// model output. The read-only transaction downstream is the second line
// of defense.
func ValidateGeneratedSQL(sql string) error {
	lower := strings.ToLower(sql)
	if lower == "" {
		return &PlatformError{Platform: "gemini", Operation: "validate_sql", Message: "empty query"}
	}
	if !strings.HasPrefix(lower, "select ") {
		return &PlatformError{Platform: "gemini", Operation: "validate_sql", Message: "only SELECT statements are allowed"}
	}
	if strings.Contains(sql, ";") {
		return &PlatformError{Platform: "gemini", Operation: "validate_sql", Message: "multiple statements are not allowed"}
	}
	for _, term := range blockedSQLTerms {
		if strings.Contains(lower, term) {
			return &PlatformError{
				Platform:  "gemini",
				Operation: "validate_sql",
				Message:   fmt.Sprintf("query touches restricted data (%s)", term),
			}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
