package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func chunkSource(chunks ...[]byte) Playable {
	return PlayableFunc(func(ctx context.Context) (<-chan []byte, error) {
		out := make(chan []byte, len(chunks))
		for _, c := range chunks {
			out <- c
		}
		close(out)
		return out, nil
	})
}

func TestPlaybackNaturalEnd(t *testing.T) {
	sched := NewScheduler()
	defer sched.Stop()

	var starts, ends atomic.Int32
	var mu sync.Mutex
	var received [][]byte
	sink := func(chunk []byte) {
		mu.Lock()
		received = append(received, chunk)
		mu.Unlock()
	}

	p := NewPlayback(DefaultPlaybackConfig(), sched, sink,
		func() { starts.Add(1) }, func() { ends.Add(1) }, zap.NewNop())

	p.Play(context.Background(), chunkSource([]byte{1, 2}, []byte{3, 4}))

	time.Sleep(100 * time.Millisecond)
	if got := starts.Load(); got != 1 {
		t.Errorf("start fired %d times, want 1", got)
	}
	if got := ends.Load(); got != 1 {
		t.Errorf("end fired %d times, want exactly 1", got)
	}
	mu.Lock()
	n := len(received)
	mu.Unlock()
	if n != 2 {
		t.Errorf("sink received %d chunks, want 2", n)
	}
	if p.Playing() {
		t.Error("playback should be idle after natural end")
	}
}

func TestPlaybackStopFiresEndOnce(t *testing.T) {
	sched := NewScheduler()
	defer sched.Stop()

	var ends atomic.Int32
	blocking := PlayableFunc(func(ctx context.Context) (<-chan []byte, error) {
		out := make(chan []byte)
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, nil
	})

	p := NewPlayback(DefaultPlaybackConfig(), sched, nil, nil,
		func() { ends.Add(1) }, zap.NewNop())

	p.Play(context.Background(), blocking)
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent

	time.Sleep(100 * time.Millisecond)
	if got := ends.Load(); got != 1 {
		t.Errorf("end fired %d times, want exactly 1 for interrupted playback", got)
	}
}

func TestPlaybackSourceErrorStillEnds(t *testing.T) {
	sched := NewScheduler()
	defer sched.Stop()

	var ends atomic.Int32
	failing := PlayableFunc(func(ctx context.Context) (<-chan []byte, error) {
		return nil, errors.New("synthesis unavailable")
	})

	p := NewPlayback(DefaultPlaybackConfig(), sched, nil, nil,
		func() { ends.Add(1) }, zap.NewNop())

	p.Play(context.Background(), failing)
	time.Sleep(50 * time.Millisecond)
	if got := ends.Load(); got != 1 {
		t.Errorf("end fired %d times, want exactly 1 on source failure", got)
	}
}

func TestPlaybackWatchdog(t *testing.T) {
	sched := NewScheduler()
	defer sched.Stop()

	var ends atomic.Int32
	hung := PlayableFunc(func(ctx context.Context) (<-chan []byte, error) {
		out := make(chan []byte)
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, nil
	})

	cfg := PlaybackConfig{MaxDuration: 30 * time.Millisecond}
	p := NewPlayback(cfg, sched, nil, nil, func() { ends.Add(1) }, zap.NewNop())

	p.Play(context.Background(), hung)
	time.Sleep(200 * time.Millisecond)
	if got := ends.Load(); got != 1 {
		t.Errorf("end fired %d times, want exactly 1 from the watchdog", got)
	}
}

func TestPlaybackReplaceInterruptsPrevious(t *testing.T) {
	sched := NewScheduler()
	defer sched.Stop()

	var ends atomic.Int32
	blocking := PlayableFunc(func(ctx context.Context) (<-chan []byte, error) {
		out := make(chan []byte)
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, nil
	})

	p := NewPlayback(DefaultPlaybackConfig(), sched, nil, nil,
		func() { ends.Add(1) }, zap.NewNop())

	p.Play(context.Background(), blocking)
	time.Sleep(20 * time.Millisecond)
	p.Play(context.Background(), chunkSource([]byte{1}))

	time.Sleep(100 * time.Millisecond)
	// one end for the interrupted play, one for the replacement
	if got := ends.Load(); got != 2 {
		t.Errorf("end fired %d times, want 2", got)
	}
}
