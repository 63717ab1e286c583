package voice

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Turn is whose logical right it is to be producing audio at a given moment
type Turn int

const (
	TurnIdle Turn = iota
	TurnUserSpeaking
	TurnProcessing
	TurnAiSpeaking
	TurnPaused
)

func (t Turn) String() string {
	switch t {
	case TurnIdle:
		return "idle"
	case TurnUserSpeaking:
		return "user_speaking"
	case TurnProcessing:
		return "processing"
	case TurnAiSpeaking:
		return "ai_speaking"
	case TurnPaused:
		return "paused"
	default:
		return fmt.Sprintf("Turn(%d)", int(t))
	}
}

// VoiceMode controls how capture is driven
type VoiceMode int

const (
	ModeMuted VoiceMode = iota
	ModePushToTalk
	ModeContinuous
)

func (m VoiceMode) String() string {
	switch m {
	case ModeMuted:
		return "muted"
	case ModePushToTalk:
		return "push_to_talk"
	case ModeContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("VoiceMode(%d)", int(m))
	}
}

// ParseVoiceMode parses the wire representation of a voice mode
func ParseVoiceMode(s string) (VoiceMode, error) {
	switch s {
	case "muted":
		return ModeMuted, nil
	case "push_to_talk":
		return ModePushToTalk, nil
	case "continuous":
		return ModeContinuous, nil
	default:
		return ModeMuted, fmt.Errorf("unknown voice mode: %s", s)
	}
}

// Transition describes one turn-state change
type Transition struct {
	From   Turn
	To     Turn
	Reason string
}

// Coordinator is the turn-taking state machine. It is pure state: no I/O and
// no timers. Callers report events; the coordinator decides the transition
// and, for finalized utterances, whether to process now or queue.
//
// Observers are notified synchronously under the coordinator lock and must
// return quickly without calling back into the coordinator.
type Coordinator struct {
	mu        sync.Mutex
	turn      Turn
	mode      VoiceMode
	queue     []string
	closed    bool
	observers map[int]func(Transition)
	nextObs   int
	logger    *zap.Logger
}

// NewCoordinator creates a coordinator in Idle with voice disabled
func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{
		turn:      TurnIdle,
		mode:      ModeMuted,
		observers: make(map[int]func(Transition)),
		logger:    logger,
	}
}

// Turn returns the current turn state
func (c *Coordinator) Turn() Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// Mode returns the current voice mode
func (c *Coordinator) Mode() VoiceMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode changes the voice mode
func (c *Coordinator) SetMode(mode VoiceMode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// Subscribe registers an observer for turn transitions and returns an
// unsubscribe function
func (c *Coordinator) Subscribe(fn func(Transition)) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) transitionLocked(to Turn, reason string) {
	from := c.turn
	if from == to {
		return
	}
	c.turn = to
	c.logger.Debug("turn transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("reason", reason))
	tr := Transition{From: from, To: to, Reason: reason}
	for _, fn := range c.observers {
		fn(tr)
	}
}

// SpeechDetected reports that capture produced first speech for the current
// utterance. Returns true when the turn moved to UserSpeaking. Capture events
// never drive transitions while the mode is Muted.
func (c *Coordinator) SpeechDetected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode == ModeMuted {
		return false
	}
	if c.turn != TurnIdle {
		return false
	}
	c.transitionLocked(TurnUserSpeaking, "speech detected")
	return true
}

// UtteranceFinalized reports a finalized utterance. It returns true when the
// caller should process the text now; false means the utterance was queued
// behind an in-flight turn (or dropped because the session is muted/paused).
func (c *Coordinator) UtteranceFinalized(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode == ModeMuted || c.turn == TurnPaused {
		return false
	}
	switch c.turn {
	case TurnProcessing, TurnAiSpeaking:
		// never drop: process after the in-flight turn completes
		c.queue = append(c.queue, text)
		c.logger.Debug("utterance queued behind in-flight turn", zap.Int("depth", len(c.queue)))
		return false
	default:
		c.transitionLocked(TurnProcessing, "utterance finalized")
		return true
	}
}

// ResponseReady reports that the conversation service answered and playback
// is about to begin. Returns false when the session left Processing in the
// meantime (paused or torn down); the response must then not be played.
func (c *Coordinator) ResponseReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn != TurnProcessing {
		return false
	}
	c.transitionLocked(TurnAiSpeaking, "response ready")
	return true
}

// ResponseFailed aborts the in-flight turn. The coordinator returns to Idle
// and, when another utterance is queued, immediately re-enters Processing and
// hands it back for processing.
func (c *Coordinator) ResponseFailed(reason string) (next string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == TurnProcessing {
		c.transitionLocked(TurnIdle, reason)
	}
	return c.popQueueLocked()
}

// PlaybackEnded reports the end of AI speech. The coordinator returns to Idle
// and hands back the next queued utterance, if any.
func (c *Coordinator) PlaybackEnded() (next string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == TurnAiSpeaking {
		c.transitionLocked(TurnIdle, "playback ended")
	}
	return c.popQueueLocked()
}

func (c *Coordinator) popQueueLocked() (string, bool) {
	// a closed coordinator never hands work back: queued utterances on a
	// torn-down session would spawn responder calls nobody consumes
	if c.closed || c.turn != TurnIdle || len(c.queue) == 0 {
		return "", false
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	c.transitionLocked(TurnProcessing, "queued utterance")
	return next, true
}

// Pause moves to Paused from any state
func (c *Coordinator) Pause() {
	c.mu.Lock()
	c.transitionLocked(TurnPaused, "user pause")
	c.mu.Unlock()
}

// Resume re-enters Idle and hands back a queued utterance, if any
func (c *Coordinator) Resume() (next string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn != TurnPaused {
		return "", false
	}
	c.transitionLocked(TurnIdle, "user resume")
	return c.popQueueLocked()
}

// QueueDepth returns the number of queued utterances
func (c *Coordinator) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close tears the coordinator down: back to Idle, queue dropped, observers
// released. A closed coordinator accepts no further work.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.transitionLocked(TurnIdle, "session closed")
	c.closed = true
	c.queue = nil
	c.observers = make(map[int]func(Transition))
	c.mu.Unlock()
}
