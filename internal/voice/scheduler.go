package voice

import (
	"sync"
	"time"
)

// Scheduler is a per-session registry of cancellable timers. Every delayed
// callback in the session (debounce, mic re-enable, cool-down, playback
// watchdog, capture restart) is tracked here so teardown can cancel all
// outstanding timers at once and no stale callback mutates a torn-down
// session.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	nextID  uint64
	stopped bool
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[uint64]*time.Timer)}
}

// After schedules fn to run once after d. It returns a cancel function that
// is safe to call multiple times. fn never runs after Stop.
func (s *Scheduler) After(d time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++

	t := time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		if _, ok := s.timers[id]; !ok {
			// cancelled after firing was already committed
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})

	s.timers[id] = t
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
		s.mu.Unlock()
	}
}

// Stop cancels every outstanding timer and rejects new ones
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

// Pending returns the number of outstanding timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
