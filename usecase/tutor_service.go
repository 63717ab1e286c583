package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/entities"
	"github.com/6ogo/Brainy-sub002/domain/repositories"
	"github.com/6ogo/Brainy-sub002/internal/voice"
)

// TutorService turns finalized student utterances into spoken tutor replies.
// It implements voice.Responder: the tutor model produces the reply text, the
// synthesizer renders it, and the exchange is persisted best-effort.
type TutorService struct {
	model         repositories.TutorModel
	synthesizer   repositories.SpeechSynthesizer
	conversations repositories.ConversationRepository
	logger        *zap.Logger

	mu       sync.Mutex
	chats    map[string]*sessionChat
	students map[string]string
}

type sessionChat struct {
	chat           repositories.TutorChat
	conversationID string
}

// NewTutorService creates the tutoring conversation service. conversations
// may be nil when persistence is not configured.
func NewTutorService(
	model repositories.TutorModel,
	synthesizer repositories.SpeechSynthesizer,
	conversations repositories.ConversationRepository,
	logger *zap.Logger,
) *TutorService {
	return &TutorService{
		model:         model,
		synthesizer:   synthesizer,
		conversations: conversations,
		logger:        logger,
		chats:         make(map[string]*sessionChat),
		students:      make(map[string]string),
	}
}

// BindStudent associates a session with the authenticated student so the
// conversation record is attributed correctly
func (s *TutorService) BindStudent(sessionID, studentID string) {
	s.mu.Lock()
	s.students[sessionID] = studentID
	s.mu.Unlock()
}

// Respond implements voice.Responder
func (s *TutorService) Respond(ctx context.Context, sessionID, utterance string) (voice.Reply, error) {
	start := time.Now()
	sc, err := s.chatFor(ctx, sessionID)
	if err != nil {
		return voice.Reply{}, err
	}

	reply, err := sc.chat.Send(ctx, repositories.ChatMessage{
		Role:    repositories.StudentRole,
		Content: utterance,
	})
	if err != nil {
		return voice.Reply{}, fmt.Errorf("tutor model failed: %w", err)
	}

	s.logger.Info("tutor reply generated",
		zap.String("session_id", sessionID),
		zap.Duration("model_latency", time.Since(start)))

	s.persistExchange(sessionID, sc, utterance, reply.Content)

	audio := voice.PlayableFunc(func(playCtx context.Context) (<-chan []byte, error) {
		return s.synthesizer.Synthesize(playCtx, reply.Content)
	})
	return voice.Reply{Text: reply.Content, Audio: audio}, nil
}

// EndSession discards the session's chat and closes out its conversation
// record
func (s *TutorService) EndSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	sc, ok := s.chats[sessionID]
	delete(s.chats, sessionID)
	delete(s.students, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}
	if s.conversations != nil && sc.conversationID != "" {
		if err := s.conversations.End(ctx, sc.conversationID); err != nil {
			s.logger.Warn("failed to close conversation record",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	s.logger.Info("tutoring session ended", zap.String("session_id", sessionID))
}

// History returns the session's conversation so far
func (s *TutorService) History(sessionID string) ([]repositories.ChatMessage, error) {
	s.mu.Lock()
	sc, ok := s.chats[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return sc.chat.History()
}

// chatFor returns the session's chat, creating it and its conversation record
// on first use
func (s *TutorService) chatFor(ctx context.Context, sessionID string) (*sessionChat, error) {
	s.mu.Lock()
	if sc, ok := s.chats[sessionID]; ok {
		s.mu.Unlock()
		return sc, nil
	}
	s.mu.Unlock()

	chat, err := s.model.NewChat(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	sc := &sessionChat{chat: chat}
	if s.conversations != nil {
		s.mu.Lock()
		studentID := s.students[sessionID]
		s.mu.Unlock()
		if studentID == "" {
			studentID = sessionID
		}
		conversation := entities.NewConversation(studentID, sessionID, "")
		if err := s.conversations.Create(ctx, conversation); err != nil {
			// persistence is best-effort: tutoring continues without history
			s.logger.Warn("failed to create conversation record", zap.Error(err))
		} else {
			sc.conversationID = conversation.ID
		}
	}

	s.mu.Lock()
	// another turn may have won the race; keep the first chat
	if existing, ok := s.chats[sessionID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.chats[sessionID] = sc
	s.mu.Unlock()
	return sc, nil
}

// persistExchange appends the exchange to the conversation record
func (s *TutorService) persistExchange(sessionID string, sc *sessionChat, student, tutor string) {
	if s.conversations == nil || sc.conversationID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now()
	err := s.conversations.AppendExchange(ctx, sc.conversationID,
		entities.Message{Timestamp: now, Role: entities.MessageRoleStudent, Content: student},
		entities.Message{Timestamp: now, Role: entities.MessageRoleTutor, Content: tutor},
	)
	if err != nil {
		s.logger.Warn("failed to persist exchange",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
