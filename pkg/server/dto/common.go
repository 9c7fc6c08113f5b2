package dto

import (
	"errors"
	"strings"
)

// MaxContentLength bounds a single message or text body.
const MaxContentLength = 100_000

// ErrContentTooLong is returned when a text body exceeds MaxContentLength.
var ErrContentTooLong = errors.New("content exceeds maximum length")

// Message represents a chat message
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ValidRoles defines acceptable message roles
var ValidRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// Validate performs validation on Message
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Role) == "" {
		return errors.New("role cannot be empty")
	}
	if !ValidRoles[strings.ToLower(m.Role)] {
		return errors.New("invalid role: must be user, assistant, or system")
	}
	if strings.TrimSpace(m.Content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(m.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
