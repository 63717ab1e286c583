package voice

import (
	"sync"
	"time"
)

// TranscriptBuffer accumulates interim transcript text for the current
// utterance. Once finalized it is immutable until Reset.
type TranscriptBuffer struct {
	mu         sync.Mutex
	interim    string
	final      string
	finalized  bool
	lastUpdate time.Time
}

// Update replaces the interim text. It returns false without mutating when
// the buffer has already been finalized.
func (b *TranscriptBuffer) Update(text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return false
	}
	b.interim = text
	b.lastUpdate = time.Now()
	return true
}

// Finalize freezes the current interim text as the final transcript. It
// returns the final text and false when the buffer was already finalized.
func (b *TranscriptBuffer) Finalize() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return b.final, false
	}
	b.final = b.interim
	b.finalized = true
	return b.final, true
}

// Interim returns the current interim text
func (b *TranscriptBuffer) Interim() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interim
}

// Final returns the finalized text, if any
func (b *TranscriptBuffer) Final() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.final, b.finalized
}

// LastUpdate returns the timestamp of the most recent interim update
func (b *TranscriptBuffer) LastUpdate() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdate
}

// Reset clears the buffer for the next utterance
func (b *TranscriptBuffer) Reset() {
	b.mu.Lock()
	b.interim = ""
	b.final = ""
	b.finalized = false
	b.lastUpdate = time.Time{}
	b.mu.Unlock()
}
