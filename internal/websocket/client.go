package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/internal/voice"
)

// WriteData is one outbound websocket frame
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one websocket connection and its voice
// session. Control messages arrive as JSON text frames, microphone audio as
// binary frames; synthesized speech goes back as binary frames interleaved
// with JSON state events.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan WriteData
	clientID  string
	studentID string
	logger    *zap.Logger
	validator *MessageValidator

	mu      sync.Mutex
	session *voice.Session
	stopViz func()

	sendMu     sync.Mutex
	sendClosed bool
}

func newClient(hub *Hub, conn *websocket.Conn, studentID string, logger *zap.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		clientID:  uuid.New().String(),
		studentID: studentID,
		logger:    logger,
		validator: NewMessageValidator(),
	}
}

// readPump pumps messages from the websocket connection to the voice session
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processControl(message)
		case websocket.BinaryMessage:
			c.processAudioFrame(message)
		default:
			c.logger.Warn("received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps outbound frames to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processControl dispatches a validated control message
func (c *Client) processControl(message []byte) {
	parsed, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("invalid control message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *SessionStartMessage:
		c.handleSessionStart(msg)
	case *SetVoiceModeMessage:
		c.withSession(func(s *voice.Session) {
			mode, err := voice.ParseVoiceMode(msg.Mode)
			if err != nil {
				c.sendJSON(CreateErrorMessage("invalid_mode", err.Error()))
				return
			}
			if err := s.SetVoiceMode(mode); err != nil {
				c.sendJSON(CreateErrorMessage("mode_change_failed", err.Error()))
			}
		})
	case *SetPauseThresholdMessage:
		c.withSession(func(s *voice.Session) {
			applied := s.SetPauseThreshold(time.Duration(msg.ThresholdMs) * time.Millisecond)
			c.logger.Debug("pause threshold updated",
				zap.Int("requested_ms", msg.ThresholdMs),
				zap.Duration("applied", applied))
		})
	case *SetFeedbackPreventionMessage:
		c.withSession(func(s *voice.Session) { s.SetFeedbackPrevention(msg.Enabled) })
	case *PingMessage:
		c.sendJSON(&PingMessage{
			BaseMessage: BaseMessage{Type: MessageTypePong, Timestamp: now()},
			Data:        msg.Data,
		})
	case *BaseMessage:
		c.handleBareAction(msg.Type)
	}
}

func (c *Client) handleBareAction(t MessageType) {
	switch t {
	case MessageTypeSessionStop:
		c.handleSessionStop()
	case MessageTypePause:
		c.withSession(func(s *voice.Session) { s.Pause() })
	case MessageTypeResume:
		c.withSession(func(s *voice.Session) { s.Resume() })
	case MessageTypeForceSubmit:
		c.withSession(func(s *voice.Session) { s.ForceSubmit() })
	case MessageTypePressTalk:
		c.withSession(func(s *voice.Session) {
			if err := s.PressTalk(); err != nil {
				c.sendJSON(CreateErrorMessage("capture_failed", err.Error()))
			}
		})
	case MessageTypeReleaseTalk:
		c.withSession(func(s *voice.Session) { s.ReleaseTalk() })
	}
}

// withSession runs fn against the active session, or reports that none exists
func (c *Client) withSession(fn func(*voice.Session)) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		c.sendJSON(CreateErrorMessage("no_session", "no active voice session"))
		return
	}
	fn(session)
}

// handleSessionStart creates and starts the client's voice session
func (c *Client) handleSessionStart(msg *SessionStartMessage) {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		c.sendJSON(CreateErrorMessage("session_active", "a voice session is already running"))
		return
	}
	c.mu.Unlock()

	cfg := c.hub.sessionCfg
	if msg.PauseThresholdMs > 0 {
		cfg.PauseThreshold = time.Duration(msg.PauseThresholdMs) * time.Millisecond
	}
	if msg.Language != "" {
		cfg.Audio.Language = msg.Language
	}
	if msg.SampleRate > 0 {
		cfg.Audio.SampleRate = msg.SampleRate
	}

	sink := func(chunk []byte) {
		c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: chunk})
	}

	session := voice.NewSession(cfg, c.hub.recognizer, c.hub.service, sink, c.logger)
	c.hub.service.BindStudent(session.ID(), c.studentID)

	if msg.FeedbackPrevention != nil {
		session.SetFeedbackPrevention(*msg.FeedbackPrevention)
	}

	mode := voice.ModeContinuous
	if msg.Mode != "" {
		if parsed, err := voice.ParseVoiceMode(msg.Mode); err == nil {
			mode = parsed
		}
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	go c.forwardEvents(session)
	c.startVizTicker(session)

	if err := session.Start(mode); err != nil {
		c.logger.Warn("session start reported capture error", zap.Error(err))
	}

	c.sendJSON(&SessionStartedMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSessionStarted, Timestamp: now()},
		SessionID:   session.ID(),
		Mode:        mode.String(),
	})
}

func (c *Client) handleSessionStop() {
	c.teardownSession()
	c.sendJSON(&BaseMessage{Type: MessageTypeSessionStopped, Timestamp: now()})
}

// teardownSession stops the active session, if any. Safe to call repeatedly.
func (c *Client) teardownSession() {
	c.mu.Lock()
	session := c.session
	stopViz := c.stopViz
	c.session = nil
	c.stopViz = nil
	c.mu.Unlock()

	if session == nil {
		return
	}
	if stopViz != nil {
		stopViz()
	}
	session.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.hub.service.EndSession(ctx, session.ID())
}

// processAudioFrame feeds microphone audio into the voice session
func (c *Client) processAudioFrame(data []byte) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		c.logger.Debug("audio frame without an active session")
		return
	}
	session.FeedAudio(data)
}

// forwardEvents translates session events into outbound messages. Runs until
// the session's event channel closes.
func (c *Client) forwardEvents(session *voice.Session) {
	sessionID := session.ID()
	for ev := range session.Events() {
		switch ev.Type {
		case voice.EventTranscript:
			c.sendJSON(&TranscriptMessage{
				BaseMessage: BaseMessage{Type: MessageTypeTranscript, Timestamp: now()},
				SessionID:   sessionID,
				Role:        ev.Role,
				Text:        ev.Text,
				Final:       ev.Final,
			})
		case voice.EventTurnChanged:
			c.sendJSON(&TurnStateMessage{
				BaseMessage: BaseMessage{Type: MessageTypeTurnState, Timestamp: now()},
				SessionID:   sessionID,
				Turn:        ev.Turn,
			})
		case voice.EventMicState:
			c.sendJSON(&MicStateMessage{
				BaseMessage: BaseMessage{Type: MessageTypeMicState, Timestamp: now()},
				SessionID:   sessionID,
				Enabled:     ev.Enabled,
			})
		case voice.EventSpeakingStarted:
			c.sendJSON(&BaseMessage{Type: MessageTypeSpeakingStart, Timestamp: now()})
		case voice.EventSpeakingEnded:
			c.sendJSON(&BaseMessage{Type: MessageTypeSpeakingEnd, Timestamp: now()})
		case voice.EventModeChanged:
			c.sendJSON(&SetVoiceModeMessage{
				BaseMessage: BaseMessage{Type: MessageTypeModeChanged, Timestamp: now()},
				Mode:        ev.Mode,
			})
		case voice.EventError:
			c.sendJSON(CreateErrorMessage("voice_error", ev.Message))
		}
	}
}

// startVizTicker streams amplitude frames at a fixed cadence
func (c *Client) startVizTicker(session *voice.Session) {
	done := make(chan struct{})
	var once sync.Once

	c.mu.Lock()
	c.stopViz = func() { once.Do(func() { close(done) }) }
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(vizFramePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.sendJSON(&VizFrameMessage{
					BaseMessage: BaseMessage{Type: MessageTypeVizFrame},
					SessionID:   session.ID(),
					Bars:        session.VisualizationFrame(),
				})
			}
		}
	}()
}

// enqueue queues an outbound frame without blocking. Frames are dropped when
// the buffer is full or the client has been unregistered; stray playback
// chunks arriving after teardown must not panic on a closed channel.
func (c *Client) enqueue(frame WriteData) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("dropping outbound frame, send buffer full")
	}
}

// closeSend shuts the outbound queue. Called by the hub after teardown.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// sendJSON marshals and queues an outbound text frame
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal outbound message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}
