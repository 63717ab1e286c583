package entities

import (
	"testing"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("student-1", "session-abc", "algebra")

	if conv.StudentID != "student-1" {
		t.Errorf("Expected student ID student-1, got %s", conv.StudentID)
	}

	if conv.SessionID != "session-abc" {
		t.Errorf("Expected session ID session-abc, got %s", conv.SessionID)
	}

	if len(conv.Messages) != 0 {
		t.Errorf("Expected empty messages, got %d messages", len(conv.Messages))
	}

	if conv.Metadata.Subject != "algebra" {
		t.Errorf("Expected subject algebra, got %s", conv.Metadata.Subject)
	}

	if conv.EndedAt != nil {
		t.Error("Expected EndedAt to be unset on a new conversation")
	}
}

func TestAddExchange(t *testing.T) {
	conv := NewConversation("student-1", "session-abc", "algebra")

	conv.AddExchange("what is 2 plus 2", "2 plus 2 equals 4")

	if len(conv.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(conv.Messages))
	}

	if conv.Messages[0].Role != MessageRoleStudent {
		t.Errorf("Expected student role, got %s", conv.Messages[0].Role)
	}

	if conv.Messages[0].Content != "what is 2 plus 2" {
		t.Errorf("Unexpected student content %q", conv.Messages[0].Content)
	}

	if conv.Messages[1].Role != MessageRoleTutor {
		t.Errorf("Expected tutor role, got %s", conv.Messages[1].Role)
	}
}

func TestConversationValidate(t *testing.T) {
	tests := []struct {
		name    string
		conv    Conversation
		wantErr bool
	}{
		{
			name:    "valid",
			conv:    Conversation{StudentID: "s", SessionID: "v"},
			wantErr: false,
		},
		{
			name:    "missing student",
			conv:    Conversation{SessionID: "v"},
			wantErr: true,
		},
		{
			name:    "missing session",
			conv:    Conversation{StudentID: "s"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conv.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConversationEnd(t *testing.T) {
	conv := NewConversation("student-1", "session-abc", "algebra")
	conv.End()

	if conv.EndedAt == nil {
		t.Fatal("Expected EndedAt to be set")
	}
}
