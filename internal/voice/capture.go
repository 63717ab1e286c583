package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// CaptureConfig tunes the capture adapter
type CaptureConfig struct {
	// RestartDelay debounces automatic restarts after an unexpected stream
	// termination in continuous mode.
	RestartDelay time.Duration
	// Audio is the recognition audio configuration.
	Audio repositories.AudioConfig
}

// CaptureCallbacks receive capture output. All callbacks are optional.
type CaptureCallbacks struct {
	// OnSpeech fires once per utterance, on the first non-empty transcript.
	OnSpeech func()
	// OnInterim delivers non-final transcript updates.
	OnInterim func(text string)
	// OnFinal delivers recognizer-final transcript segments.
	OnFinal func(text string)
	// OnError reports classified capture errors with a user-facing message.
	OnError func(err error, userMessage string)
}

// Capture wraps a continuous speech-to-text stream. It owns the listening
// lifecycle: start/stop/toggle, auto-restart after unexpected termination in
// continuous mode, and mapping recognizer error causes onto the session error
// taxonomy. While the mic gate is disabled, incoming audio is dropped here so
// muted frames never reach the recognizer.
type Capture struct {
	mu  sync.Mutex
	cfg CaptureConfig

	recognizer repositories.SpeechRecognizer
	sched      *Scheduler
	gate       *MicGate
	logger     *zap.Logger

	// session state queries, set once at construction
	mode   func() VoiceMode
	paused func() bool

	cb CaptureCallbacks

	ctx               context.Context
	stream            repositories.RecognitionStream
	listening         bool
	deliberateStop    bool
	permissionGranted bool
	closed            bool
	sawSpeech         bool
	cancelRestart     func()
}

// NewCapture creates a capture adapter. mode and paused let the adapter
// consult session state when deciding whether to auto-restart.
func NewCapture(
	cfg CaptureConfig,
	recognizer repositories.SpeechRecognizer,
	sched *Scheduler,
	gate *MicGate,
	mode func() VoiceMode,
	paused func() bool,
	cb CaptureCallbacks,
	logger *zap.Logger,
) *Capture {
	return &Capture{
		cfg:               cfg,
		recognizer:        recognizer,
		sched:             sched,
		gate:              gate,
		logger:            logger,
		mode:              mode,
		paused:            paused,
		cb:                cb,
		permissionGranted: true,
	}
}

// Start begins capture. It is a no-op while already listening. Terminal
// errors (permission, capability) are classified, reported, and returned.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	c.ctx = ctx
	c.mu.Unlock()

	stream, err := c.recognizer.Start(ctx, c.cfg.Audio)
	if err != nil {
		classified, userMsg := ClassifyCaptureCause(causeOf(err))
		wrapped := fmt.Errorf("%w: %v", classified, err)
		c.mu.Lock()
		if classified == ErrPermissionDenied {
			// future Start calls will re-prompt the platform
			c.permissionGranted = false
		}
		c.mu.Unlock()
		c.report(wrapped, userMsg)
		return wrapped
	}

	c.mu.Lock()
	c.stream = stream
	c.listening = true
	c.deliberateStop = false
	c.sawSpeech = false
	c.permissionGranted = true
	c.mu.Unlock()

	c.logger.Debug("capture started")
	go c.pump(stream)
	return nil
}

// Stop ends capture deliberately. Idempotent; never triggers auto-restart.
func (c *Capture) Stop() {
	c.mu.Lock()
	c.deliberateStop = true
	if c.cancelRestart != nil {
		c.cancelRestart()
		c.cancelRestart = nil
	}
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}
}

// Toggle flips the listening state
func (c *Capture) Toggle(ctx context.Context) error {
	if c.Listening() {
		c.Stop()
		return nil
	}
	return c.Start(ctx)
}

// Listening reports whether a recognition stream is live
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// PermissionGranted reports the adapter's permission-state flag
func (c *Capture) PermissionGranted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permissionGranted
}

// Feed forwards microphone audio to the recognizer. Frames are dropped while
// the mic gate is disabled or capture is not listening.
func (c *Capture) Feed(data []byte) error {
	if !c.gate.Enabled() {
		return nil
	}
	c.mu.Lock()
	stream := c.stream
	listening := c.listening
	c.mu.Unlock()
	if !listening || stream == nil {
		return nil
	}
	return stream.Feed(data)
}

// ResetUtterance re-arms first-speech detection for the next utterance
func (c *Capture) ResetUtterance() {
	c.mu.Lock()
	c.sawSpeech = false
	c.mu.Unlock()
}

// Close tears the adapter down permanently
func (c *Capture) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Stop()
}

func (c *Capture) pump(stream repositories.RecognitionStream) {
	terminal := false
	for ev := range stream.Events() {
		if ev.Err != nil {
			classified, userMsg := ClassifyCaptureCause(ev.Cause)
			wrapped := fmt.Errorf("%w: %v", classified, ev.Err)
			if classified == ErrPermissionDenied {
				c.mu.Lock()
				c.permissionGranted = false
				c.mu.Unlock()
			}
			if Terminal(classified) {
				terminal = true
			}
			c.report(wrapped, userMsg)
			continue
		}
		if !c.gate.Enabled() {
			// muted by the suppressor: discard transcript output too
			continue
		}
		if ev.Text != "" {
			c.mu.Lock()
			first := !c.sawSpeech
			c.sawSpeech = true
			c.mu.Unlock()
			if first && c.cb.OnSpeech != nil {
				c.cb.OnSpeech()
			}
		}
		if ev.Final {
			if c.cb.OnFinal != nil {
				c.cb.OnFinal(ev.Text)
			}
		} else if c.cb.OnInterim != nil {
			c.cb.OnInterim(ev.Text)
		}
	}
	c.handleTermination(terminal)
}

// handleTermination runs when the recognition stream ends for any reason.
// Continuous mode restarts capture after a short debounced delay unless the
// stop was deliberate, the session is paused/closed, or a terminal error
// downgraded the permission state.
func (c *Capture) handleTermination(terminal bool) {
	c.mu.Lock()
	c.listening = false
	c.stream = nil
	deliberate := c.deliberateStop
	closed := c.closed
	permitted := c.permissionGranted
	restartPending := c.cancelRestart != nil
	ctx := c.ctx
	c.mu.Unlock()

	if deliberate || closed || terminal || !permitted {
		return
	}
	if c.mode() != ModeContinuous || c.paused() {
		// push-to-talk lifecycle belongs to the caller
		return
	}
	if restartPending {
		return
	}

	c.logger.Debug("capture ended unexpectedly, scheduling restart")
	c.mu.Lock()
	c.cancelRestart = c.sched.After(c.cfg.RestartDelay, func() {
		c.mu.Lock()
		c.cancelRestart = nil
		c.mu.Unlock()
		if c.mode() != ModeContinuous || c.paused() {
			return
		}
		if err := c.Start(ctx); err != nil {
			c.logger.Warn("capture auto-restart failed", zap.Error(err))
		}
	})
	c.mu.Unlock()
}

func (c *Capture) report(err error, userMessage string) {
	c.logger.Warn("capture error", zap.Error(err))
	if c.cb.OnError != nil {
		c.cb.OnError(err, userMessage)
	}
}

// causeOf extracts a recognizer cause string when the error carries one
func causeOf(err error) string {
	var re *repositories.RecognitionError
	if errors.As(err, &re) {
		return re.CauseCode
	}
	return ""
}
