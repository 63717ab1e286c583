package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/6ogo/Brainy-sub002/domain/entities"
	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

type ConversationRepository struct {
	collection *mongo.Collection
}

// NewConversationRepository creates a new MongoDB conversation repository
func NewConversationRepository(db *mongo.Database) repositories.ConversationRepository {
	return &ConversationRepository{
		collection: db.Collection("conversations"),
	}
}

// Create implements repositories.ConversationRepository
func (r *ConversationRepository) Create(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	doc := bson.M{
		"student_id": conversation.StudentID,
		"session_id": conversation.SessionID,
		"started_at": conversation.StartedAt,
		"messages":   conversation.Messages,
		"metadata":   conversation.Metadata,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conversation.ID = oid.Hex()
	}
	return nil
}

// AppendExchange implements repositories.ConversationRepository
func (r *ConversationRepository) AppendExchange(ctx context.Context, conversationID string, student, tutor entities.Message) error {
	if conversationID == "" {
		return errors.New("conversation ID cannot be empty")
	}
	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", err)
	}

	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{"$each": []entities.Message{student, tutor}},
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation with ID %s not found", conversationID)
	}
	return nil
}

// End implements repositories.ConversationRepository
func (r *ConversationRepository) End(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return errors.New("conversation ID cannot be empty")
	}
	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", err)
	}

	update := bson.M{"$set": bson.M{"ended_at": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to end conversation: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation with ID %s not found", conversationID)
	}
	return nil
}

// GetByID implements repositories.ConversationRepository
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*entities.Conversation, error) {
	if id == "" {
		return nil, errors.New("conversation ID cannot be empty")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation ID format: %w", err)
	}

	var conversation entities.Conversation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &conversation, nil
}

// ListByStudent implements repositories.ConversationRepository
func (r *ConversationRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]entities.Conversation, error) {
	if studentID == "" {
		return nil, errors.New("student ID cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.M{"started_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for student %s: %w", studentID, err)
	}
	defer cursor.Close(ctx)

	var conversations []entities.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}
