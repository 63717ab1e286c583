package voice

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestSuppressor(t *testing.T) (*Suppressor, *MicGate, *Scheduler) {
	t.Helper()
	sched := NewScheduler()
	t.Cleanup(sched.Stop)
	gate := NewMicGate(nil)
	gate.Enable()
	cfg := DefaultSuppressorConfig()
	cfg.ReenableDelay = 30 * time.Millisecond
	cfg.CooldownPeriod = 50 * time.Millisecond
	return NewSuppressor(cfg, gate, sched, zap.NewNop()), gate, sched
}

func TestSuppressorMutesDuringAiSpeech(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	s.AiSpeechStarted()
	if gate.Enabled() {
		t.Fatal("mic track must be muted while the AI speaks")
	}

	s.AiSpeechEnded()
	if gate.Enabled() {
		t.Fatal("mic track must stay muted through the re-enable delay")
	}
	time.Sleep(150 * time.Millisecond)
	if !gate.Enabled() {
		t.Fatal("mic track should re-enable after the delay")
	}
}

func TestSuppressorHeadphonesMode(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	s.SetEnabled(false)
	s.AiSpeechStarted()
	if !gate.Enabled() {
		t.Fatal("headphones mode must not mute the mic track")
	}

	// echo analysis is also off
	if s.AnalyzeInput(tone(0.1, 0.8, 512)) {
		t.Fatal("echo detection should be disabled in headphones mode")
	}
}

func TestSuppressorDisableCancelsPendingMute(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	s.AiSpeechStarted()
	s.SetEnabled(false)
	if !gate.Enabled() {
		t.Fatal("disabling prevention must re-enable the track immediately")
	}
}

func TestSuppressorEchoDetection(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	aiVoice := tone(0.12, 0.8, 512)
	s.AiSpeechStarted()
	s.NoteOutput(aiVoice) // first output frame becomes the fingerprint
	s.AiSpeechEnded()
	time.Sleep(100 * time.Millisecond)
	if !gate.Enabled() {
		t.Fatal("expected mic re-enabled before echo arrives")
	}

	// the AI's own voice leaking back in
	if !s.AnalyzeInput(aiVoice) {
		t.Fatal("expected echo of the AI voice to be detected")
	}
	if gate.Enabled() {
		t.Fatal("detected echo must mute the mic track")
	}

	// cool-down elapses, track comes back on its own
	time.Sleep(200 * time.Millisecond)
	if !gate.Enabled() {
		t.Fatal("mic track should re-enable after the cool-down")
	}
}

func TestSuppressorIgnoresQuietInput(t *testing.T) {
	s, _, _ := newTestSuppressor(t)

	aiVoice := tone(0.12, 0.8, 512)
	s.AiSpeechStarted()
	s.NoteOutput(aiVoice)
	s.AiSpeechEnded()
	time.Sleep(100 * time.Millisecond)

	// below the amplitude threshold: background murmur, not feedback
	if s.AnalyzeInput(tone(0.12, 0.01, 512)) {
		t.Fatal("quiet input should never count as feedback")
	}
}

func TestSuppressorNoFingerprintNoDetection(t *testing.T) {
	s, _, _ := newTestSuppressor(t)

	s.AiSpeechStarted()
	s.AiSpeechEnded() // no output was observed
	time.Sleep(100 * time.Millisecond)

	if s.AnalyzeInput(tone(0.1, 0.8, 512)) {
		t.Fatal("detection requires a captured fingerprint")
	}
}

func TestSuppressorFingerprintReplacedPerUtterance(t *testing.T) {
	s, _, _ := newTestSuppressor(t)

	s.AiSpeechStarted()
	s.NoteOutput(tone(0.1, 0.8, 512))
	s.AiSpeechEnded()

	// next utterance clears the old fingerprint and captures a new one
	s.AiSpeechStarted()
	s.NoteOutput(tone(0.3, 0.8, 512))
	s.AiSpeechEnded()
	time.Sleep(100 * time.Millisecond)

	if !s.AnalyzeInput(tone(0.3, 0.8, 512)) {
		t.Fatal("expected detection against the latest fingerprint")
	}
}

func TestSuppressorRequestEnableDeferredDuringAiSpeech(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	s.AiSpeechStarted()
	s.RequestEnable()
	if gate.Enabled() {
		t.Fatal("enable request must not open the mic while the AI speaks")
	}

	// the suppressor's own path delivers the enable after speech ends
	s.AiSpeechEnded()
	time.Sleep(150 * time.Millisecond)
	if !gate.Enabled() {
		t.Fatal("mic track should re-enable after the delay")
	}
}

func TestSuppressorRequestEnableDeferredDuringCooldown(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	aiVoice := tone(0.12, 0.8, 512)
	s.AiSpeechStarted()
	s.NoteOutput(aiVoice)
	s.AiSpeechEnded()
	time.Sleep(100 * time.Millisecond)

	if !s.AnalyzeInput(aiVoice) {
		t.Fatal("expected echo of the AI voice to be detected")
	}
	s.RequestEnable()
	if gate.Enabled() {
		t.Fatal("enable request must not cut an echo cool-down short")
	}

	time.Sleep(200 * time.Millisecond)
	if !gate.Enabled() {
		t.Fatal("mic track should re-enable once the cool-down expires")
	}
}

func TestSuppressorRequestEnableImmediateInHeadphonesMode(t *testing.T) {
	s, gate, _ := newTestSuppressor(t)

	s.SetEnabled(false)
	s.AiSpeechStarted()
	gate.Disable()
	s.RequestEnable()
	if !gate.Enabled() {
		t.Fatal("headphones mode holds no claim on the gate")
	}
}

func TestMicGateOnChange(t *testing.T) {
	var states []bool
	gate := NewMicGate(func(enabled bool) { states = append(states, enabled) })

	gate.Enable()
	gate.Enable() // no change, no callback
	gate.Disable()

	if len(states) != 2 || states[0] != true || states[1] != false {
		t.Errorf("onChange calls = %v, want [true false]", states)
	}
}
