package api

import (
	"time"

	"github.com/6ogo/Brainy-sub002/domain/entities"
)

// TokenRequest represents the request payload for student authentication
type TokenRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// TokenResponse represents the response payload for student authentication
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	StudentID string    `json:"student_id"`
}

// ConversationsResponse lists a student's past conversations
type ConversationsResponse struct {
	Conversations []entities.Conversation `json:"conversations"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
