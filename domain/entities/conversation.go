package entities

import (
	"errors"
	"time"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleStudent MessageRole = "student"
	MessageRoleTutor   MessageRole = "tutor"
)

// Message represents a single message within a conversation
type Message struct {
	Timestamp  time.Time   `json:"timestamp" bson:"timestamp"`
	Role       MessageRole `json:"role" bson:"role"`
	Content    string      `json:"content" bson:"content"`
	DurationMs int64       `json:"duration_ms" bson:"duration_ms"`
}

// ConversationMetadata contains conversation-level metadata
type ConversationMetadata struct {
	Subject  string `json:"subject" bson:"subject"`
	Language string `json:"language" bson:"language"`
}

// Conversation represents one voice tutoring conversation between a student
// and the tutor, bounded by a voice session
type Conversation struct {
	ID        string               `json:"id" bson:"_id,omitempty"`
	StudentID string               `json:"student_id" bson:"student_id"`
	SessionID string               `json:"session_id" bson:"session_id"`
	StartedAt time.Time            `json:"started_at" bson:"started_at"`
	EndedAt   *time.Time           `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	Messages  []Message            `json:"messages" bson:"messages"`
	Metadata  ConversationMetadata `json:"metadata" bson:"metadata"`
}

// NewConversation creates a conversation for a student voice session
func NewConversation(studentID, sessionID, subject string) *Conversation {
	return &Conversation{
		StudentID: studentID,
		SessionID: sessionID,
		StartedAt: time.Now(),
		Messages:  make([]Message, 0),
		Metadata: ConversationMetadata{
			Subject:  subject,
			Language: "en-US",
		},
	}
}

// AddExchange appends one student utterance and the tutor's spoken reply
func (c *Conversation) AddExchange(student, tutor string) {
	now := time.Now()
	c.Messages = append(c.Messages,
		Message{Timestamp: now, Role: MessageRoleStudent, Content: student},
		Message{Timestamp: now, Role: MessageRoleTutor, Content: tutor},
	)
}

// End marks the conversation finished
func (c *Conversation) End() {
	now := time.Now()
	c.EndedAt = &now
}

// Validate validates the conversation data
func (c *Conversation) Validate() error {
	if c.StudentID == "" {
		return errors.New("student_id is required")
	}
	if c.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}
