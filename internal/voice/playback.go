package voice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Playable is an opaque source of synthesized speech audio. The chunk channel
// is closed when the source is exhausted or the context is cancelled.
type Playable interface {
	Stream(ctx context.Context) (<-chan []byte, error)
}

// PlayableFunc adapts a function to the Playable interface
type PlayableFunc func(ctx context.Context) (<-chan []byte, error)

// Stream implements Playable
func (f PlayableFunc) Stream(ctx context.Context) (<-chan []byte, error) { return f(ctx) }

// Sink consumes playback audio chunks for delivery
type Sink func(chunk []byte)

// PlaybackConfig tunes the playback driver
type PlaybackConfig struct {
	// MaxDuration is the watchdog ceiling on a single playback: if the
	// source never completes, End still fires after this long.
	MaxDuration time.Duration
}

// DefaultPlaybackConfig returns sensible playback defaults
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{MaxDuration: 2 * time.Minute}
}

// Playback drives AI speech output. Every Play emits Start once and End
// exactly once, whether playback completes naturally, is stopped, fails, or
// hits the watchdog timeout. Downstream state machines never hang on audio.
type Playback struct {
	mu     sync.Mutex
	cfg    PlaybackConfig
	sched  *Scheduler
	sink   Sink
	logger *zap.Logger

	onStart func()
	onEnd   func()

	playing        bool
	cancel         context.CancelFunc
	endOnce        *sync.Once
	cancelWatchdog func()
}

// NewPlayback creates a playback driver. onStart and onEnd are invoked from
// playback goroutines and must be safe for that.
func NewPlayback(cfg PlaybackConfig, sched *Scheduler, sink Sink, onStart, onEnd func(), logger *zap.Logger) *Playback {
	return &Playback{
		cfg:     cfg,
		sched:   sched,
		sink:    sink,
		logger:  logger,
		onStart: onStart,
		onEnd:   onEnd,
	}
}

// Play begins audio output from src. Any in-flight playback is stopped first
// (emitting its own End). Play never fails without emitting End.
func (p *Playback) Play(ctx context.Context, src Playable) {
	p.Stop()

	playCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.playing = true
	p.cancel = cancel
	once := new(sync.Once)
	p.endOnce = once
	p.mu.Unlock()

	if p.onStart != nil {
		p.onStart()
	}

	p.mu.Lock()
	p.cancelWatchdog = p.sched.After(p.cfg.MaxDuration, func() {
		p.logger.Warn("playback watchdog fired, forcing end")
		cancel()
		p.finish(once)
	})
	p.mu.Unlock()

	ch, err := src.Stream(playCtx)
	if err != nil {
		p.logger.Warn("playback source failed", zap.Error(err))
		cancel()
		p.finish(once)
		return
	}

	go func() {
		for chunk := range ch {
			if len(chunk) == 0 {
				continue
			}
			if p.sink != nil {
				p.sink(chunk)
			}
		}
		cancel()
		p.finish(once)
	}()
}

// Stop halts playback immediately. End still fires for the interrupted play.
func (p *Playback) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	once := p.endOnce
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if once != nil {
		p.finish(once)
	}
}

// Playing reports whether audio output is in flight
func (p *Playback) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Playback) finish(once *sync.Once) {
	once.Do(func() {
		p.mu.Lock()
		if p.endOnce == once {
			p.playing = false
			p.cancel = nil
			p.endOnce = nil
			if p.cancelWatchdog != nil {
				p.cancelWatchdog()
				p.cancelWatchdog = nil
			}
		}
		p.mu.Unlock()
		if p.onEnd != nil {
			p.onEnd()
		}
	})
}
