package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
	"github.com/6ogo/Brainy-sub002/internal/voice"
)

type fakeStream struct {
	events    chan repositories.RecognitionEvent
	closeOnce sync.Once
}

func (s *fakeStream) Feed(data []byte) error { return nil }

func (s *fakeStream) Events() <-chan repositories.RecognitionEvent { return s.events }

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

type fakeRecognizer struct{}

func (r *fakeRecognizer) Start(ctx context.Context, config repositories.AudioConfig) (repositories.RecognitionStream, error) {
	return &fakeStream{events: make(chan repositories.RecognitionEvent, 8)}, nil
}

type fakeService struct {
	mu       sync.Mutex
	bindings map[string]string
	ended    []string
}

func newFakeService() *fakeService {
	return &fakeService{bindings: make(map[string]string)}
}

func (s *fakeService) Respond(ctx context.Context, sessionID, utterance string) (voice.Reply, error) {
	return voice.Reply{Text: "reply to: " + utterance}, nil
}

func (s *fakeService) BindStudent(sessionID, studentID string) {
	s.mu.Lock()
	s.bindings[sessionID] = studentID
	s.mu.Unlock()
}

func (s *fakeService) EndSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	s.ended = append(s.ended, sessionID)
	s.mu.Unlock()
}

func setupTestHub(t testing.TB) (*Hub, *fakeService) {
	t.Helper()
	service := newFakeService()
	hub := NewHub(&fakeRecognizer{}, service, voice.DefaultSessionConfig(), zap.NewNop())
	return hub, service
}

// nextTextMessage drains the client's send channel until a JSON message of
// the wanted type arrives, skipping binary audio and periodic frames
func nextTextMessage(t *testing.T, c *Client, want MessageType) map[string]interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-c.send:
			if frame.Type != gorilla.TextMessage {
				continue
			}
			var decoded map[string]interface{}
			if err := json.Unmarshal(frame.Payload, &decoded); err != nil {
				t.Fatalf("Failed to unmarshal frame: %v", err)
			}
			if decoded["type"] == string(want) {
				return decoded
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s message", want)
		}
	}
}

func TestHub_NewHub(t *testing.T) {
	hub, _ := setupTestHub(t)

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil {
		t.Error("Hub register channel not initialized")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel not initialized")
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub, _ := setupTestHub(t)
	go hub.Run()

	client := newClient(hub, nil, "student-1", zap.NewNop())
	hub.register <- client

	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestClientPingPong(t *testing.T) {
	hub, _ := setupTestHub(t)
	client := newClient(hub, nil, "student-1", zap.NewNop())

	client.processControl([]byte(`{"type": "ping", "data": "hello"}`))

	pong := nextTextMessage(t, client, MessageTypePong)
	if pong["data"] != "hello" {
		t.Errorf("Expected echoed ping data, got %v", pong["data"])
	}
}

func TestClientInvalidMessage(t *testing.T) {
	hub, _ := setupTestHub(t)
	client := newClient(hub, nil, "student-1", zap.NewNop())

	client.processControl([]byte(`{invalid json}`))

	errMsg := nextTextMessage(t, client, MessageTypeError)
	if errMsg["error_code"] != "invalid_message" {
		t.Errorf("Expected invalid_message code, got %v", errMsg["error_code"])
	}
}

func TestClientControlWithoutSession(t *testing.T) {
	hub, _ := setupTestHub(t)
	client := newClient(hub, nil, "student-1", zap.NewNop())

	client.processControl([]byte(`{"type": "pause"}`))

	errMsg := nextTextMessage(t, client, MessageTypeError)
	if errMsg["error_code"] != "no_session" {
		t.Errorf("Expected no_session code, got %v", errMsg["error_code"])
	}
}

func TestClientSessionLifecycle(t *testing.T) {
	hub, service := setupTestHub(t)
	client := newClient(hub, nil, "student-7", zap.NewNop())

	client.processControl([]byte(`{"type": "session_start", "mode": "continuous"}`))

	started := nextTextMessage(t, client, MessageTypeSessionStarted)
	sessionID, _ := started["session_id"].(string)
	if sessionID == "" {
		t.Fatal("session_started carried no session_id")
	}
	if started["mode"] != "continuous" {
		t.Errorf("Expected continuous mode, got %v", started["mode"])
	}

	service.mu.Lock()
	bound := service.bindings[sessionID]
	service.mu.Unlock()
	if bound != "student-7" {
		t.Errorf("Session bound to %q, want student-7", bound)
	}

	// a second start on the same connection is rejected
	client.processControl([]byte(`{"type": "session_start"}`))
	errMsg := nextTextMessage(t, client, MessageTypeError)
	if errMsg["error_code"] != "session_active" {
		t.Errorf("Expected session_active code, got %v", errMsg["error_code"])
	}

	// audio frames are accepted while the session runs
	client.processAudioFrame(make([]byte, 640))

	client.processControl([]byte(`{"type": "session_stop"}`))
	nextTextMessage(t, client, MessageTypeSessionStopped)

	service.mu.Lock()
	ended := len(service.ended)
	service.mu.Unlock()
	if ended != 1 {
		t.Errorf("EndSession called %d times, want 1", ended)
	}
}

func TestClientTeardownIdempotent(t *testing.T) {
	hub, service := setupTestHub(t)
	client := newClient(hub, nil, "student-1", zap.NewNop())

	client.processControl([]byte(`{"type": "session_start", "mode": "muted"}`))
	nextTextMessage(t, client, MessageTypeSessionStarted)

	client.teardownSession()
	client.teardownSession()

	service.mu.Lock()
	ended := len(service.ended)
	service.mu.Unlock()
	if ended != 1 {
		t.Errorf("EndSession called %d times, want 1", ended)
	}
}

func TestClientVizFrames(t *testing.T) {
	hub, _ := setupTestHub(t)
	client := newClient(hub, nil, "student-1", zap.NewNop())

	client.processControl([]byte(`{"type": "session_start", "mode": "muted"}`))
	nextTextMessage(t, client, MessageTypeSessionStarted)
	defer client.teardownSession()

	frame := nextTextMessage(t, client, MessageTypeVizFrame)
	bars, ok := frame["bars"].([]interface{})
	if !ok || len(bars) == 0 {
		t.Fatalf("viz_frame carried no bars: %v", frame["bars"])
	}
}
