package services

// PlatformError represents an error from an external platform integration
// (Spotify, Supabase storage, Resend, Gemini).
type PlatformError struct {
	Platform  string
	Operation string
	Message   string
	Err       error
}

func (e *PlatformError) Error() string {
	msg := e.Platform + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}
