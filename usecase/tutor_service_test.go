package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/entities"
	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

type stubModel struct {
	err error
}

func (m *stubModel) NewChat(ctx context.Context, history []repositories.ChatMessage) (repositories.TutorChat, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &stubChat{}, nil
}

type stubChat struct {
	mu      sync.Mutex
	history []repositories.ChatMessage
}

func (c *stubChat) Send(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	reply := repositories.ChatMessage{
		Role:    repositories.TutorRole,
		Content: "answer to: " + message.Content,
	}
	c.mu.Lock()
	c.history = append(c.history, message, reply)
	c.mu.Unlock()
	return reply, nil
}

func (c *stubChat) History() ([]repositories.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history, nil
}

type stubSynthesizer struct{}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	out := make(chan []byte, 1)
	out <- []byte(text)
	close(out)
	return out, nil
}

type memConversationRepo struct {
	mu        sync.Mutex
	created   []*entities.Conversation
	exchanges map[string][]entities.Message
	ended     []string
	createErr error
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{exchanges: make(map[string][]entities.Message)}
}

func (r *memConversationRepo) Create(ctx context.Context, c *entities.Conversation) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	c.ID = "conv-1"
	r.created = append(r.created, c)
	r.mu.Unlock()
	return nil
}

func (r *memConversationRepo) AppendExchange(ctx context.Context, id string, student, tutor entities.Message) error {
	r.mu.Lock()
	r.exchanges[id] = append(r.exchanges[id], student, tutor)
	r.mu.Unlock()
	return nil
}

func (r *memConversationRepo) End(ctx context.Context, id string) error {
	r.mu.Lock()
	r.ended = append(r.ended, id)
	r.mu.Unlock()
	return nil
}

func (r *memConversationRepo) GetByID(ctx context.Context, id string) (*entities.Conversation, error) {
	return nil, nil
}

func (r *memConversationRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]entities.Conversation, error) {
	return nil, nil
}

func TestTutorServiceRespond(t *testing.T) {
	repo := newMemConversationRepo()
	svc := NewTutorService(&stubModel{}, &stubSynthesizer{}, repo, zap.NewNop())
	svc.BindStudent("sess-1", "student-42")

	reply, err := svc.Respond(context.Background(), "sess-1", "what is 2 plus 2")
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if reply.Text != "answer to: what is 2 plus 2" {
		t.Errorf("reply text = %q", reply.Text)
	}

	// the playable streams the synthesized reply
	ch, err := reply.Audio.Stream(context.Background())
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	var audio []byte
	for chunk := range ch {
		audio = append(audio, chunk...)
	}
	if string(audio) != reply.Text {
		t.Errorf("synthesized %q, want reply text", audio)
	}

	// exchange persisted against the student's conversation
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.created) != 1 || repo.created[0].StudentID != "student-42" {
		t.Fatalf("created conversations = %+v", repo.created)
	}
	if got := repo.exchanges["conv-1"]; len(got) != 2 {
		t.Errorf("persisted %d messages, want 2", len(got))
	}
}

func TestTutorServiceReusesChatPerSession(t *testing.T) {
	svc := NewTutorService(&stubModel{}, &stubSynthesizer{}, nil, zap.NewNop())

	if _, err := svc.Respond(context.Background(), "sess-1", "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Respond(context.Background(), "sess-1", "second"); err != nil {
		t.Fatal(err)
	}

	history, err := svc.History("sess-1")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("history length = %d, want both exchanges in one chat", len(history))
	}
}

func TestTutorServicePersistenceFailureIsNotFatal(t *testing.T) {
	repo := newMemConversationRepo()
	repo.createErr = errors.New("mongo down")
	svc := NewTutorService(&stubModel{}, &stubSynthesizer{}, repo, zap.NewNop())

	reply, err := svc.Respond(context.Background(), "sess-1", "hello")
	if err != nil {
		t.Fatalf("Respond() should succeed without persistence: %v", err)
	}
	if reply.Text == "" {
		t.Error("expected a reply despite persistence failure")
	}
}

func TestTutorServiceModelFailure(t *testing.T) {
	svc := NewTutorService(&stubModel{err: errors.New("no quota")}, &stubSynthesizer{}, nil, zap.NewNop())

	if _, err := svc.Respond(context.Background(), "sess-1", "hello"); err == nil {
		t.Fatal("expected error when the model cannot create a chat")
	}
}

func TestTutorServiceEndSession(t *testing.T) {
	repo := newMemConversationRepo()
	svc := NewTutorService(&stubModel{}, &stubSynthesizer{}, repo, zap.NewNop())

	svc.Respond(context.Background(), "sess-1", "hello")
	svc.EndSession(context.Background(), "sess-1")

	repo.mu.Lock()
	ended := len(repo.ended)
	repo.mu.Unlock()
	if ended != 1 {
		t.Errorf("ended conversations = %d, want 1", ended)
	}

	if history, _ := svc.History("sess-1"); history != nil {
		t.Error("history should be gone after EndSession")
	}
}
