package voice

import (
	"math/rand"
	"sync"
)

// Visualizer maintains the latest amplitude frame for bar rendering. It taps
// either the capture or playback stream; the frame is purely derived display
// state with no control-flow impact. While no source is active it produces a
// deterministic low-amplitude idle pattern as a visual placeholder.
type Visualizer struct {
	mu      sync.Mutex
	buckets int
	frame   []float64
	active  bool
	rng     *rand.Rand
}

// NewVisualizer creates a visualizer with the given number of bars
func NewVisualizer(buckets int) *Visualizer {
	if buckets <= 0 {
		buckets = 24
	}
	return &Visualizer{
		buckets: buckets,
		frame:   make([]float64, buckets),
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Ingest derives per-bucket amplitudes from a PCM frame and marks the
// visualizer active
func (v *Visualizer) Ingest(pcm []int16) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = true
	if len(pcm) == 0 {
		return
	}
	per := len(pcm) / v.buckets
	if per == 0 {
		per = 1
	}
	for b := 0; b < v.buckets; b++ {
		start := b * per
		if start >= len(pcm) {
			v.frame[b] = 0
			continue
		}
		end := start + per
		if end > len(pcm) {
			end = len(pcm)
		}
		v.frame[b] = RMSAmplitude(pcm[start:end])
	}
}

// SetActive marks whether a live audio source is attached
func (v *Visualizer) SetActive(active bool) {
	v.mu.Lock()
	v.active = active
	v.mu.Unlock()
}

// Frame returns a copy of the latest amplitude frame, or the idle pattern
// when no source is active. Never blocks, never returns an empty slice.
func (v *Visualizer) Frame() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]float64, v.buckets)
	if v.active {
		copy(out, v.frame)
		return out
	}
	for i := range out {
		out[i] = 0.02 + v.rng.Float64()*0.08
	}
	return out
}

// Buckets returns the number of bars per frame
func (v *Visualizer) Buckets() int { return v.buckets }
