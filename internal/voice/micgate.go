package voice

import "sync"

// MicGate is the single logical switch over the microphone track. Exactly one
// authority may drive it at a time: the feedback suppressor while the AI is
// speaking (and during echo cool-downs), the capture lifecycle otherwise. The
// capture adapter only ever reads it to drop frames while muted.
type MicGate struct {
	mu       sync.Mutex
	enabled  bool
	onChange func(enabled bool)
}

// NewMicGate creates a gate in the disabled state
func NewMicGate(onChange func(bool)) *MicGate {
	return &MicGate{onChange: onChange}
}

// Enable turns the microphone track on
func (g *MicGate) Enable() { g.set(true) }

// Disable turns the microphone track off. Frames are dropped at the source,
// not merely ignored downstream.
func (g *MicGate) Disable() { g.set(false) }

func (g *MicGate) set(enabled bool) {
	g.mu.Lock()
	if g.enabled == enabled {
		g.mu.Unlock()
		return
	}
	g.enabled = enabled
	onChange := g.onChange
	g.mu.Unlock()
	if onChange != nil {
		onChange(enabled)
	}
}

// Enabled reports whether the microphone track is on
func (g *MicGate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
