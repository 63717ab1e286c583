package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client-to-server control messages
const (
	MessageTypeSessionStart          MessageType = "session_start"
	MessageTypeSessionStop           MessageType = "session_stop"
	MessageTypeSetVoiceMode          MessageType = "set_voice_mode"
	MessageTypePause                 MessageType = "pause"
	MessageTypeResume                MessageType = "resume"
	MessageTypeForceSubmit           MessageType = "force_submit"
	MessageTypeSetPauseThreshold     MessageType = "set_pause_threshold"
	MessageTypeSetFeedbackPrevention MessageType = "set_feedback_prevention"
	MessageTypePressTalk             MessageType = "press_talk"
	MessageTypeReleaseTalk           MessageType = "release_talk"
	MessageTypePing                  MessageType = "ping"
)

// Server-to-client messages
const (
	MessageTypeSessionStarted MessageType = "session_started"
	MessageTypeSessionStopped MessageType = "session_stopped"
	MessageTypeTranscript     MessageType = "transcript"
	MessageTypeTurnState      MessageType = "turn_state"
	MessageTypeMicState       MessageType = "mic_state"
	MessageTypeSpeakingStart  MessageType = "speaking_start"
	MessageTypeSpeakingEnd    MessageType = "speaking_end"
	MessageTypeModeChanged    MessageType = "mode_changed"
	MessageTypeVizFrame       MessageType = "viz_frame"
	MessageTypePong           MessageType = "pong"
	MessageTypeError          MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// SessionStartMessage begins a voice session
type SessionStartMessage struct {
	BaseMessage
	Mode               string `json:"mode,omitempty"`
	PauseThresholdMs   int    `json:"pause_threshold_ms,omitempty"`
	FeedbackPrevention *bool  `json:"feedback_prevention,omitempty"`
	Language           string `json:"language,omitempty"`
	SampleRate         int    `json:"sample_rate,omitempty"`
}

// SetVoiceModeMessage switches the capture mode
type SetVoiceModeMessage struct {
	BaseMessage
	Mode string `json:"mode"`
}

// SetPauseThresholdMessage adjusts the utterance quiet window
type SetPauseThresholdMessage struct {
	BaseMessage
	ThresholdMs int `json:"threshold_ms"`
}

// SetFeedbackPreventionMessage toggles echo suppression
type SetFeedbackPreventionMessage struct {
	BaseMessage
	Enabled bool `json:"enabled"`
}

// PingMessage is a connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// SessionStartedMessage acknowledges session start
type SessionStartedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

// TranscriptMessage carries a transcript update to the client
type TranscriptMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Final     bool   `json:"final"`
}

// TurnStateMessage announces a turn transition
type TurnStateMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Turn      string `json:"turn"`
}

// MicStateMessage mirrors the microphone track state
type MicStateMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Enabled   bool   `json:"enabled"`
}

// VizFrameMessage carries amplitude bars for rendering
type VizFrameMessage struct {
	BaseMessage
	SessionID string    `json:"session_id"`
	Bars      []float64 `json:"bars"`
}

// ErrorMessage reports an error to the client
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code,omitempty"`
	Message string `json:"message"`
}

// validVoiceModes lists the accepted wire values for voice modes
var validVoiceModes = map[string]bool{
	"muted": true, "push_to_talk": true, "continuous": true,
}

// MessageValidator provides validation for WebSocket control messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming control message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	if base.Timestamp == "" {
		base.Timestamp = time.Now().Format(time.RFC3339)
	}

	switch base.Type {
	case MessageTypeSessionStart:
		var msg SessionStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid session start message: %w", err)
		}
		if msg.Mode != "" && !validVoiceModes[msg.Mode] {
			return nil, fmt.Errorf("mode must be one of: muted, push_to_talk, continuous")
		}
		if msg.PauseThresholdMs < 0 {
			return nil, fmt.Errorf("pause_threshold_ms must be positive")
		}
		return &msg, nil

	case MessageTypeSetVoiceMode:
		var msg SetVoiceModeMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid voice mode message: %w", err)
		}
		if !validVoiceModes[msg.Mode] {
			return nil, fmt.Errorf("mode must be one of: muted, push_to_talk, continuous")
		}
		return &msg, nil

	case MessageTypeSetPauseThreshold:
		var msg SetPauseThresholdMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid pause threshold message: %w", err)
		}
		if msg.ThresholdMs <= 0 {
			return nil, fmt.Errorf("threshold_ms must be positive")
		}
		return &msg, nil

	case MessageTypeSetFeedbackPrevention:
		var msg SetFeedbackPreventionMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid feedback prevention message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeSessionStop, MessageTypePause, MessageTypeResume,
		MessageTypeForceSubmit, MessageTypePressTalk, MessageTypeReleaseTalk:
		// bare control actions carry no payload beyond the base
		return &base, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
