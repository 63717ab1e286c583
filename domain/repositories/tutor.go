package repositories

import "context"

// TutorModel abstracts any chat/LLM provider acting as the tutor
type TutorModel interface {
	// NewChat creates a tutoring chat session seeded with history
	NewChat(ctx context.Context, history []ChatMessage) (TutorChat, error)
}

// TutorChat represents an ongoing tutoring conversation
type TutorChat interface {
	Send(ctx context.Context, message ChatMessage) (ChatMessage, error)
	History() ([]ChatMessage, error)
}

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of message sender
type Role string

const (
	StudentRole Role = "student"
	TutorRole   Role = "tutor"
	SystemRole  Role = "system"
)
