package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const resendAPIURL = "https://api.resend.com/emails"

// EmailService sends transactional email through Resend. Sending is best
// effort; callers treat failures as non-fatal.
type EmailService struct {
	client      *resty.Client
	from        string
	frontendURL string
}

// NewEmailService creates a new Resend-backed email service
func NewEmailService(apiKey, from, frontendURL string) *EmailService {
	client := resty.New().
		SetAuthToken(apiKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &EmailService{
		client:      client,
		from:        from,
		frontendURL: frontendURL,
	}
}

// SendPasswordReset emails a reset link carrying the reset token
func (s *EmailService) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	html := fmt.Sprintf(`<p>Someone requested a password reset for your SoundScore account.</p>
<p><a href="%s">Reset your password</a></p>
<p>The link expires in 15 minutes. If you didn't request this, ignore this email.</p>`, link)

	return s.send(ctx, to, "Reset your SoundScore password", html)
}

// SendWelcome emails a greeting after registration
func (s *EmailService) SendWelcome(ctx context.Context, to, username string) error {
	html := fmt.Sprintf(`<p>Hey %s, welcome to SoundScore!</p>
<p>Find an album you love (or hate) and write your first review.</p>
<p><a href="%s">Open SoundScore</a></p>`, username, s.frontendURL)

	return s.send(ctx, to, "Welcome to SoundScore", html)
}

func (s *EmailService) send(ctx context.Context, to, subject, html string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"from":    s.from,
			"to":      []string{to},
			"subject": subject,
			"html":    html,
		}).
		Post(resendAPIURL)
	if err != nil {
		slog.Error("Failed to send email", "to", to, "subject", subject, "error", err)
		return &PlatformError{Platform: "resend", Operation: "send", Message: "request failed", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		slog.Error("Email send rejected", "to", to, "subject", subject, "status", resp.StatusCode())
		return &PlatformError{
			Platform:  "resend",
			Operation: "send",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	slog.Info("Email sent", "to", to, "subject", subject)
	return nil
}
