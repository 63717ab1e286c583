package voice

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// Pause-threshold clamp bounds. Values outside this range make the debouncer
// either chop sentences mid-thought or feel unresponsive.
const (
	MinPauseThreshold     = 300 * time.Millisecond
	MaxPauseThreshold     = 2 * time.Second
	DefaultPauseThreshold = 800 * time.Millisecond
)

// ClampPauseThreshold normalizes a requested pause threshold. Zero selects
// the default.
func ClampPauseThreshold(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultPauseThreshold
	}
	if d < MinPauseThreshold {
		return MinPauseThreshold
	}
	if d > MaxPauseThreshold {
		return MaxPauseThreshold
	}
	return d
}

// SessionConfig bundles the tuning knobs for a voice session
type SessionConfig struct {
	PauseThreshold    time.Duration
	RestartDelay      time.Duration
	ResponseTimeout   time.Duration
	VisualizerBuckets int
	Suppressor        SuppressorConfig
	Playback          PlaybackConfig
	Audio             repositories.AudioConfig
}

// DefaultSessionConfig returns the stock session tuning
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PauseThreshold:    DefaultPauseThreshold,
		RestartDelay:      300 * time.Millisecond,
		ResponseTimeout:   30 * time.Second,
		VisualizerBuckets: 24,
		Suppressor:        DefaultSuppressorConfig(),
		Playback:          DefaultPlaybackConfig(),
		Audio: repositories.AudioConfig{
			SampleRate: 16000,
			Encoding:   "linear16",
			Language:   "en-US",
		},
	}
}

// Reply is a conversation answer ready for playback
type Reply struct {
	Text  string
	Audio Playable
}

// Responder produces the tutor's reply to a finalized student utterance
type Responder interface {
	Respond(ctx context.Context, sessionID string, utterance string) (Reply, error)
}

// EventType labels session events sent to the transport layer
type EventType string

const (
	EventTurnChanged     EventType = "turn_changed"
	EventTranscript      EventType = "transcript"
	EventMicState        EventType = "mic_state"
	EventSpeakingStarted EventType = "speaking_started"
	EventSpeakingEnded   EventType = "speaking_ended"
	EventModeChanged     EventType = "mode_changed"
	EventError           EventType = "error"
)

// Event is one session state update for the client
type Event struct {
	Type    EventType `json:"type"`
	Turn    string    `json:"turn,omitempty"`
	Text    string    `json:"text,omitempty"`
	Final   bool      `json:"final,omitempty"`
	Role    string    `json:"role,omitempty"`
	Enabled bool      `json:"enabled,omitempty"`
	Mode    string    `json:"mode,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Session is the voice pipeline facade: capture, debouncing, turn
// coordination, feedback suppression, playback, and visualization behind one
// surface. The transport layer feeds it audio and control actions and drains
// its event channel.
type Session struct {
	id     string
	cfg    SessionConfig
	logger *zap.Logger

	sched    *Scheduler
	gate     *MicGate
	coord    *Coordinator
	supp     *Suppressor
	viz      *Visualizer
	deb      *Debouncer
	capture  *Capture
	playback *Playback

	responder Responder
	audioOut  Sink

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
	events  chan Event
}

// NewSession wires a voice session. audioOut receives synthesized speech
// chunks for delivery to the client; events are drained via Events().
func NewSession(cfg SessionConfig, recognizer repositories.SpeechRecognizer, responder Responder, audioOut Sink, logger *zap.Logger) *Session {
	cfg.PauseThreshold = ClampPauseThreshold(cfg.PauseThreshold)
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 300 * time.Millisecond
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.New().String(),
		cfg:       cfg,
		logger:    logger,
		responder: responder,
		audioOut:  audioOut,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event, 64),
	}

	s.sched = NewScheduler()
	s.gate = NewMicGate(func(enabled bool) {
		s.emit(Event{Type: EventMicState, Enabled: enabled})
	})
	s.coord = NewCoordinator(logger)
	s.coord.Subscribe(func(tr Transition) {
		s.emit(Event{Type: EventTurnChanged, Turn: tr.To.String()})
	})
	s.supp = NewSuppressor(cfg.Suppressor, s.gate, s.sched, logger)
	s.viz = NewVisualizer(cfg.VisualizerBuckets)
	s.deb = NewDebouncer(s.sched, cfg.PauseThreshold, s.onUtterance, logger)
	s.capture = NewCapture(
		CaptureConfig{RestartDelay: cfg.RestartDelay, Audio: cfg.Audio},
		recognizer,
		s.sched,
		s.gate,
		s.coord.Mode,
		func() bool { return s.coord.Turn() == TurnPaused },
		CaptureCallbacks{
			OnSpeech:  func() { s.coord.SpeechDetected() },
			OnInterim: s.onTranscript,
			OnFinal:   s.onTranscript,
			OnError: func(err error, userMessage string) {
				s.emit(Event{Type: EventError, Message: userMessage})
			},
		},
		logger,
	)
	s.playback = NewPlayback(cfg.Playback, s.sched, s.playbackSink, s.onSpeakingStarted, s.onSpeakingEnded, logger)
	return s
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Events returns the session's outbound event stream. Events are dropped,
// never blocked on, when the consumer falls behind.
func (s *Session) Events() <-chan Event { return s.events }

// Start activates the session in the given voice mode
func (s *Session) Start(mode VoiceMode) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("voice session started",
		zap.String("session_id", s.id),
		zap.String("mode", mode.String()))
	return s.SetVoiceMode(mode)
}

// Stop tears the session down. Idempotent. No events are emitted after Stop
// returns.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.capture.Close()
	// close the coordinator before stopping playback: the playback End
	// callback reports PlaybackEnded, which must not pop queued work on a
	// session being torn down
	s.coord.Close()
	s.playback.Stop()
	s.deb.Reset()
	s.supp.Reset()
	s.sched.Stop()

	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
	s.logger.Info("voice session stopped", zap.String("session_id", s.id))
}

// SetVoiceMode switches between muted, push-to-talk, and continuous capture
func (s *Session) SetVoiceMode(mode VoiceMode) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	s.coord.SetMode(mode)
	s.emit(Event{Type: EventModeChanged, Mode: mode.String()})

	switch mode {
	case ModeContinuous:
		s.viz.SetActive(true)
		// the suppressor keeps the gate while the AI is speaking or an echo
		// cool-down runs; the enable lands when its claim ends
		s.supp.RequestEnable()
		return s.capture.Start(s.ctx)
	case ModePushToTalk:
		// capture waits for PressTalk
		s.capture.Stop()
		s.viz.SetActive(true)
		return nil
	default: // muted
		s.capture.Stop()
		s.deb.Reset()
		s.viz.SetActive(false)
		s.gate.Disable()
		return nil
	}
}

// Pause halts capture and playback while retaining queued utterances
func (s *Session) Pause() {
	s.coord.Pause()
	s.capture.Stop()
	s.playback.Stop()
	s.deb.Reset()
}

// Resume re-enters the conversation, restarting capture in continuous mode
// and processing any queued utterance
func (s *Session) Resume() {
	next, ok := s.coord.Resume()
	if s.coord.Mode() == ModeContinuous {
		s.supp.RequestEnable()
		if err := s.capture.Start(s.ctx); err != nil {
			s.logger.Warn("capture restart on resume failed", zap.Error(err))
		}
	}
	if ok {
		go s.process(next)
	}
}

// ForceSubmit finalizes the current utterance immediately
func (s *Session) ForceSubmit() {
	s.deb.ForceFinalize()
}

// SetPauseThreshold adjusts the utterance quiet window, clamped to bounds
func (s *Session) SetPauseThreshold(d time.Duration) time.Duration {
	clamped := ClampPauseThreshold(d)
	s.deb.SetThreshold(clamped)
	return clamped
}

// SetFeedbackPrevention toggles echo suppression. Disable when the student
// wears headphones.
func (s *Session) SetFeedbackPrevention(enabled bool) {
	s.supp.SetEnabled(enabled)
}

// PressTalk begins capture in push-to-talk mode
func (s *Session) PressTalk() error {
	if s.coord.Mode() != ModePushToTalk {
		return nil
	}
	s.supp.RequestEnable()
	return s.capture.Start(s.ctx)
}

// ReleaseTalk ends push-to-talk capture and submits whatever was heard
func (s *Session) ReleaseTalk() {
	if s.coord.Mode() != ModePushToTalk {
		return
	}
	s.capture.Stop()
	s.deb.ForceFinalize()
}

// FeedAudio ingests one microphone frame: visualization first, then echo
// analysis, then the recognizer. Little-endian 16-bit PCM.
func (s *Session) FeedAudio(data []byte) {
	pcm := decodePCM16(data)
	s.viz.Ingest(pcm)
	s.supp.AnalyzeInput(pcm)
	if err := s.capture.Feed(data); err != nil {
		s.logger.Debug("audio frame dropped", zap.Error(err))
	}
}

// VisualizationFrame returns the latest amplitude frame for bar rendering
func (s *Session) VisualizationFrame() []float64 {
	return s.viz.Frame()
}

// Turn returns the current turn state
func (s *Session) Turn() Turn { return s.coord.Turn() }

// MicEnabled reports the microphone track state
func (s *Session) MicEnabled() bool { return s.gate.Enabled() }

func (s *Session) onTranscript(text string) {
	s.deb.Update(text)
	s.emit(Event{Type: EventTranscript, Text: text, Role: "student"})
}

// onUtterance receives finalized utterances from the debouncer. The debouncer
// holds further finalizes until Complete is called at the end of the turn.
func (s *Session) onUtterance(text string) {
	s.emit(Event{Type: EventTranscript, Text: text, Final: true, Role: "student"})
	if !s.coord.UtteranceFinalized(text) {
		// queued behind an in-flight turn or dropped; free the debouncer
		s.deb.Complete()
		return
	}
	go s.process(text)
}

// process runs one Processing turn. It deliberately does not use the session
// context for the responder call: a response that lands after Stop is still
// accepted, it just never plays.
func (s *Session) process(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ResponseTimeout)
	defer cancel()

	reply, err := s.responder.Respond(ctx, s.id, text)
	if err != nil {
		s.logger.Warn("responder failed",
			zap.String("session_id", s.id),
			zap.Error(err))
		s.emit(Event{Type: EventError, Message: "I could not come up with an answer. Please try again."})
		next, ok := s.coord.ResponseFailed("response failed")
		s.deb.Complete()
		if ok {
			go s.process(next)
		}
		return
	}

	if !s.coord.ResponseReady() {
		// session paused or stopped while waiting; drop the playback
		s.deb.Complete()
		return
	}

	if reply.Text != "" {
		s.emit(Event{Type: EventTranscript, Text: reply.Text, Final: true, Role: "tutor"})
	}
	s.supp.AiSpeechStarted()
	if reply.Audio == nil {
		// text-only reply: run the speaking lifecycle as an instant playback
		// so clients always see start/end as a pair
		s.onSpeakingStarted()
		s.onSpeakingEnded()
		return
	}
	s.playback.Play(s.ctx, reply.Audio)
}

func (s *Session) playbackSink(chunk []byte) {
	s.supp.NoteOutput(decodePCM16(chunk))
	if s.audioOut != nil {
		s.audioOut(chunk)
	}
}

func (s *Session) onSpeakingStarted() {
	s.emit(Event{Type: EventSpeakingStarted})
}

// onSpeakingEnded closes out an AiSpeaking turn exactly once per playback
func (s *Session) onSpeakingEnded() {
	s.supp.AiSpeechEnded()
	s.emit(Event{Type: EventSpeakingEnded})
	s.capture.ResetUtterance()
	next, ok := s.coord.PlaybackEnded()
	s.deb.Complete()
	if ok {
		go s.process(next)
	}
}

// emit delivers an event without ever blocking the pipeline. When the
// consumer falls behind, the event is dropped and counted in logs.
func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("event dropped, consumer behind", zap.String("type", string(ev.Type)))
	}
}

// decodePCM16 interprets raw bytes as little-endian 16-bit PCM samples
func decodePCM16(data []byte) []int16 {
	n := len(data) / 2
	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return pcm
}
