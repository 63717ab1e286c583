package voice

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAfterFires(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.After(10*time.Millisecond, func() { fired.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected callback to fire once, fired %d times", got)
	}
	if s.Pending() != 0 {
		t.Errorf("expected no pending timers after fire, got %d", s.Pending())
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	cancel := s.After(20*time.Millisecond, func() { fired.Add(1) })
	cancel()
	cancel() // safe to call twice

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled callback fired %d times", got)
	}
}

func TestSchedulerStopCancelsAll(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	for i := 0; i < 5; i++ {
		s.After(20*time.Millisecond, func() { fired.Add(1) })
	}
	if s.Pending() != 5 {
		t.Fatalf("expected 5 pending timers, got %d", s.Pending())
	}

	s.Stop()
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callbacks fired after Stop: %d", got)
	}

	// new timers are rejected after Stop
	s.After(time.Millisecond, func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("timer scheduled after Stop fired")
	}
}
