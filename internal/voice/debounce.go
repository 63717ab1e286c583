package voice

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Debouncer buffers interim transcript updates and declares the utterance
// complete once no update has arrived for the configured pause threshold.
// ForceFinalize bypasses the wait for an explicit submit action.
//
// Only one finalize may be in flight at a time: updates that arrive while the
// consumer is still handling a finalized utterance are buffered, and only the
// latest is considered once Complete is called.
type Debouncer struct {
	mu        sync.Mutex
	sched     *Scheduler
	threshold time.Duration
	buf       TranscriptBuffer
	lastFinal string

	cancelTimer func()
	inFlight    bool
	pending     string
	hasPending  bool

	emit   func(text string)
	logger *zap.Logger
}

// NewDebouncer creates a debouncer that calls emit with each finalized
// utterance. The threshold is assumed to be pre-clamped by the caller.
func NewDebouncer(sched *Scheduler, threshold time.Duration, emit func(string), logger *zap.Logger) *Debouncer {
	return &Debouncer{
		sched:     sched,
		threshold: threshold,
		emit:      emit,
		logger:    logger,
	}
}

// SetThreshold changes the pause threshold for subsequent updates
func (d *Debouncer) SetThreshold(threshold time.Duration) {
	d.mu.Lock()
	d.threshold = threshold
	d.mu.Unlock()
}

// Threshold returns the current pause threshold
func (d *Debouncer) Threshold() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}

// Update records a transcript update and resets the quiet timer
func (d *Debouncer) Update(text string) {
	d.mu.Lock()
	if d.inFlight {
		d.pending = text
		d.hasPending = true
		d.mu.Unlock()
		return
	}
	d.buf.Update(text)
	d.restartTimerLocked()
	d.mu.Unlock()
}

// Interim returns the currently buffered interim text
func (d *Debouncer) Interim() string {
	return d.buf.Interim()
}

func (d *Debouncer) restartTimerLocked() {
	if d.cancelTimer != nil {
		d.cancelTimer()
	}
	d.cancelTimer = d.sched.After(d.threshold, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.cancelTimer = nil
	if d.inFlight {
		d.mu.Unlock()
		return
	}
	text, ok := d.buf.Finalize()
	if !ok || text == "" || text == d.lastFinal {
		// nothing worth submitting; drop and wait for fresh speech
		d.buf.Reset()
		d.mu.Unlock()
		return
	}
	d.finalizeLocked(text)
}

// finalizeLocked marks the finalize in flight and emits outside the lock
func (d *Debouncer) finalizeLocked(text string) {
	d.lastFinal = text
	d.inFlight = true
	emit := d.emit
	d.mu.Unlock()
	if emit != nil {
		emit(text)
	}
}

// ForceFinalize immediately emits the buffered text regardless of timer
// state, clearing the timer. Empty text is ignored; duplicates are allowed
// since the action is an explicit user submit.
func (d *Debouncer) ForceFinalize() {
	d.mu.Lock()
	if d.cancelTimer != nil {
		d.cancelTimer()
		d.cancelTimer = nil
	}
	if d.inFlight {
		d.mu.Unlock()
		return
	}
	text, ok := d.buf.Finalize()
	if !ok || text == "" {
		d.buf.Reset()
		d.mu.Unlock()
		return
	}
	d.finalizeLocked(text)
}

// Complete signals that the consumer finished handling the last finalized
// utterance. A buffered update received meanwhile restarts the quiet timer
// with the latest text.
func (d *Debouncer) Complete() {
	d.mu.Lock()
	d.inFlight = false
	d.buf.Reset()
	if d.hasPending {
		text := d.pending
		d.pending = ""
		d.hasPending = false
		d.buf.Update(text)
		d.restartTimerLocked()
	}
	d.mu.Unlock()
}

// Reset discards buffered text, pending updates, and the running timer. The
// duplicate guard survives so an unchanged utterance is not resubmitted.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	if d.cancelTimer != nil {
		d.cancelTimer()
		d.cancelTimer = nil
	}
	d.buf.Reset()
	d.pending = ""
	d.hasPending = false
	d.inFlight = false
	d.mu.Unlock()
}
