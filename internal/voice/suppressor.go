package voice

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SuppressorConfig holds the feedback-suppression tuning knobs. The
// similarity/tolerance/amplitude values are empirical defaults, not derived
// constants; treat them as room-dependent and override per deployment.
type SuppressorConfig struct {
	// ReenableDelay is how long after AI speech ends before the microphone
	// track is re-enabled.
	ReenableDelay time.Duration
	// CooldownPeriod is how long a detected-echo mute lasts before the track
	// re-enables automatically.
	CooldownPeriod time.Duration
	// SimilarityThreshold is the fraction of matching bins above which live
	// input is treated as probable acoustic feedback.
	SimilarityThreshold float64
	// BinTolerance is the per-bin magnitude tolerance (0..255 scale).
	BinTolerance float64
	// AmplitudeThreshold is the minimum normalized input energy for echo
	// detection to apply at all.
	AmplitudeThreshold float64
	// Bins is the spectrum resolution used for fingerprinting.
	Bins int
}

// DefaultSuppressorConfig returns the stock heuristics
func DefaultSuppressorConfig() SuppressorConfig {
	return SuppressorConfig{
		ReenableDelay:       500 * time.Millisecond,
		CooldownPeriod:      time.Second,
		SimilarityThreshold: 0.8,
		BinTolerance:        20,
		AmplitudeThreshold:  0.05,
		Bins:                32,
	}
}

// Suppressor mutes the microphone track while the AI is speaking and hunts
// for acoustic feedback afterwards by comparing live input against a
// fingerprint of the AI's voice. It only ever gates capture; it never touches
// conversational turn state.
type Suppressor struct {
	mu       sync.Mutex
	cfg      SuppressorConfig
	gate     *MicGate
	sched    *Scheduler
	analyzer *SpectrumAnalyzer
	logger   *zap.Logger

	enabled     bool // false == headphones mode: trust the user's setup
	aiSpeaking  bool
	coolingDown bool
	fingerprint *Fingerprint

	cancelReenable func()
	cancelCooldown func()
}

// NewSuppressor creates a suppressor with feedback prevention enabled
func NewSuppressor(cfg SuppressorConfig, gate *MicGate, sched *Scheduler, logger *zap.Logger) *Suppressor {
	return &Suppressor{
		cfg:      cfg,
		gate:     gate,
		sched:    sched,
		analyzer: NewSpectrumAnalyzer(cfg.Bins),
		logger:   logger,
		enabled:  true,
	}
}

// SetEnabled toggles feedback prevention. Disabling it (headphones mode)
// cancels any pending mutes and re-enables the track immediately.
func (s *Suppressor) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	if !enabled {
		s.cancelTimersLocked()
		s.coolingDown = false
		s.mu.Unlock()
		s.gate.Enable()
		s.logger.Info("feedback prevention disabled (headphones mode)")
		return
	}
	aiSpeaking := s.aiSpeaking
	s.mu.Unlock()
	if aiSpeaking {
		s.gate.Disable()
	}
	s.logger.Info("feedback prevention enabled")
}

// RequestEnable turns the microphone track on on behalf of the capture
// lifecycle. While feedback prevention holds the gate (AI speaking or an
// echo cool-down) the request is deferred: the suppressor's own re-enable
// path turns the track back on when its claim ends.
func (s *Suppressor) RequestEnable() {
	s.mu.Lock()
	held := s.enabled && (s.aiSpeaking || s.coolingDown)
	s.mu.Unlock()
	if held {
		return
	}
	s.gate.Enable()
}

// Enabled reports whether feedback prevention is active
func (s *Suppressor) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// AiSpeechStarted mutes the microphone track for the duration of AI speech.
// The fingerprint is replaced lazily by the first output frame via NoteOutput.
func (s *Suppressor) AiSpeechStarted() {
	s.mu.Lock()
	s.aiSpeaking = true
	s.fingerprint = nil
	s.cancelTimersLocked()
	s.coolingDown = false
	enabled := s.enabled
	s.mu.Unlock()
	if enabled {
		s.gate.Disable()
	}
}

// NoteOutput observes AI output audio. The first frame of each utterance
// becomes the acoustic fingerprint used for echo detection.
func (s *Suppressor) NoteOutput(pcm []int16) {
	s.mu.Lock()
	if !s.aiSpeaking || s.fingerprint != nil || len(pcm) == 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// spectrum work happens outside the lock
	spectrum := s.analyzer.Spectrum(pcm)
	s.mu.Lock()
	if s.aiSpeaking && s.fingerprint == nil {
		s.fingerprint = CaptureFingerprint(spectrum)
	}
	s.mu.Unlock()
}

// AiSpeechEnded schedules microphone re-enable after the configured delay
func (s *Suppressor) AiSpeechEnded() {
	s.mu.Lock()
	s.aiSpeaking = false
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.cancelTimersLocked()
	s.cancelReenable = s.sched.After(s.cfg.ReenableDelay, func() {
		s.mu.Lock()
		cooling := s.coolingDown
		s.mu.Unlock()
		if !cooling {
			s.gate.Enable()
		}
	})
	s.mu.Unlock()
}

// AnalyzeInput inspects a live microphone frame for residual AI-voice echo.
// On a probable match the track is re-muted for the cool-down period, then
// re-enabled automatically. Returns true when feedback was detected.
func (s *Suppressor) AnalyzeInput(pcm []int16) bool {
	s.mu.Lock()
	if !s.enabled || s.aiSpeaking || s.coolingDown || s.fingerprint == nil {
		s.mu.Unlock()
		return false
	}
	fp := s.fingerprint
	cfg := s.cfg
	s.mu.Unlock()

	if !s.gate.Enabled() {
		return false
	}
	amplitude := RMSAmplitude(pcm)
	if amplitude < cfg.AmplitudeThreshold {
		return false
	}
	similarity := fp.Similarity(s.analyzer.Spectrum(pcm), cfg.BinTolerance)
	if similarity < cfg.SimilarityThreshold {
		return false
	}

	s.mu.Lock()
	if s.coolingDown || s.aiSpeaking || !s.enabled {
		s.mu.Unlock()
		return false
	}
	s.coolingDown = true
	s.cancelCooldown = s.sched.After(cfg.CooldownPeriod, func() {
		s.mu.Lock()
		s.coolingDown = false
		reenable := s.enabled && !s.aiSpeaking
		s.mu.Unlock()
		if reenable {
			s.gate.Enable()
		}
	})
	s.mu.Unlock()

	s.gate.Disable()
	s.logger.Info("probable acoustic feedback, muting briefly",
		zap.Float64("similarity", similarity),
		zap.Float64("amplitude", amplitude))
	return true
}

// Reset cancels pending timers and clears the fingerprint
func (s *Suppressor) Reset() {
	s.mu.Lock()
	s.cancelTimersLocked()
	s.aiSpeaking = false
	s.coolingDown = false
	s.fingerprint = nil
	s.mu.Unlock()
}

func (s *Suppressor) cancelTimersLocked() {
	if s.cancelReenable != nil {
		s.cancelReenable()
		s.cancelReenable = nil
	}
	if s.cancelCooldown != nil {
		s.cancelCooldown()
		s.cancelCooldown = nil
	}
}
