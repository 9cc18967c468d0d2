package apiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/voicementor/voicementor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// envelope mirrors the server's response shape.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// RegisterUserRequest is the body of POST /api/users.
type RegisterUserRequest struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Role      string   `json:"role"`
	Language  string   `json:"language,omitempty"`
	Location  string   `json:"location,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Level     string   `json:"level,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
	Pin       string   `json:"pin,omitempty"`
}

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	ID            string    `json:"id,omitempty"`
	MentorID      string    `json:"mentorId"`
	MentorName    string    `json:"mentorName,omitempty"`
	UserID        string    `json:"userId"`
	Skill         string    `json:"skill,omitempty"`
	ScheduledTime time.Time `json:"scheduledTime"`
	Duration      int       `json:"duration,omitempty"`
	Type          string    `json:"type,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Is lets callers test API failures against the shared error kinds.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case shared.ErrAlreadyExists:
		return e.StatusCode == http.StatusConflict
	case shared.ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	case shared.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Temporary reports whether retrying could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
