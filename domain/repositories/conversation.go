package repositories

import (
	"context"

	"github.com/6ogo/Brainy-sub002/domain/entities"
)

// ConversationRepository persists tutoring conversation history. Persistence
// is a host-application concern; the voice core never touches it.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *entities.Conversation) error
	AppendExchange(ctx context.Context, conversationID string, student, tutor entities.Message) error
	End(ctx context.Context, conversationID string) error
	GetByID(ctx context.Context, id string) (*entities.Conversation, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]entities.Conversation, error)
}
