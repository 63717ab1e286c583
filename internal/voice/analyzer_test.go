package voice

import (
	"math"
	"testing"
)

// tone synthesizes a sine wave at the given fraction of Nyquist
func tone(freq float64, amplitude float64, samples int) []int16 {
	pcm := make([]int16, samples)
	for i := range pcm {
		pcm[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)))
	}
	return pcm
}

func TestRMSAmplitude(t *testing.T) {
	tests := []struct {
		name string
		pcm  []int16
		min  float64
		max  float64
	}{
		{"empty", nil, 0, 0},
		{"silence", make([]int16, 256), 0, 0},
		{"full scale tone", tone(0.1, 1.0, 256), 0.6, 0.8},
		{"quiet tone", tone(0.1, 0.01, 256), 0, 0.02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMSAmplitude(tt.pcm)
			if got < tt.min || got > tt.max {
				t.Errorf("RMSAmplitude() = %v, want within [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestSpectrumShape(t *testing.T) {
	a := NewSpectrumAnalyzer(32)
	spec := a.Spectrum(tone(0.1, 0.8, 512))
	if len(spec) != 32 {
		t.Fatalf("spectrum length = %d, want 32", len(spec))
	}
	for i, v := range spec {
		if v < 0 || v > 255 {
			t.Errorf("bin %d = %v, want within [0, 255]", i, v)
		}
	}

	empty := a.Spectrum(nil)
	for i, v := range empty {
		if v != 0 {
			t.Errorf("empty frame bin %d = %v, want 0", i, v)
		}
	}
}

func TestFingerprintSimilarity(t *testing.T) {
	a := NewSpectrumAnalyzer(32)
	voice := a.Spectrum(tone(0.12, 0.8, 512))
	fp := CaptureFingerprint(voice)

	if sim := fp.Similarity(voice, 20); sim != 1.0 {
		t.Errorf("self similarity = %v, want 1.0", sim)
	}

	// the same tone slightly attenuated should still match closely
	echo := a.Spectrum(tone(0.12, 0.75, 512))
	if sim := fp.Similarity(echo, 20); sim < 0.8 {
		t.Errorf("echo similarity = %v, want >= 0.8", sim)
	}

	if sim := fp.Similarity(nil, 20); sim != 0 {
		t.Errorf("similarity against empty spectrum = %v, want 0", sim)
	}
}
