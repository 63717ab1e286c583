package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// MockTutor is a canned-response tutor for development without an API key
type MockTutor struct{}

// NewMockTutor creates a mock tutor model
func NewMockTutor() repositories.TutorModel {
	return &MockTutor{}
}

// NewChat implements repositories.TutorModel
func (m *MockTutor) NewChat(ctx context.Context, history []repositories.ChatMessage) (repositories.TutorChat, error) {
	return &mockTutorChat{history: history}, nil
}

type mockTutorChat struct {
	mu      sync.Mutex
	history []repositories.ChatMessage
}

// Send implements repositories.TutorChat
func (m *mockTutorChat) Send(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	var response string
	switch {
	case strings.Contains(strings.ToLower(message.Content), "2 plus 2"):
		response = "2 plus 2 equals 4. Want to try a harder one?"
	case message.Content != "":
		response = fmt.Sprintf("Great question! Let's think about '%s' together. What do you already know about it?", message.Content)
	default:
		response = "Hi! I'm Brainy, your tutor. What would you like to learn today?"
	}

	reply := repositories.ChatMessage{
		Role:    repositories.TutorRole,
		Content: response,
	}

	m.mu.Lock()
	m.history = append(m.history, message, reply)
	m.mu.Unlock()
	return reply, nil
}

// History implements repositories.TutorChat
func (m *mockTutorChat) History() ([]repositories.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repositories.ChatMessage, len(m.history))
	copy(out, m.history)
	return out, nil
}
