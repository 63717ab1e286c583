package voice

import "time"

// Fingerprint is a snapshot of frequency-bin magnitudes taken when the AI
// starts speaking. It only serves similarity comparison and is replaced on
// every new AI utterance.
type Fingerprint struct {
	bins       []float64
	capturedAt time.Time
}

// CaptureFingerprint snapshots the given spectrum
func CaptureFingerprint(spectrum []float64) *Fingerprint {
	bins := make([]float64, len(spectrum))
	copy(bins, spectrum)
	return &Fingerprint{bins: bins, capturedAt: time.Now()}
}

// Similarity returns the fraction of bins whose magnitude lies within
// tolerance of the fingerprint's corresponding bin. 0 when either side is
// empty.
func (f *Fingerprint) Similarity(spectrum []float64, tolerance float64) float64 {
	n := len(f.bins)
	if len(spectrum) < n {
		n = len(spectrum)
	}
	if n == 0 {
		return 0
	}
	matched := 0
	for i := 0; i < n; i++ {
		d := f.bins[i] - spectrum[i]
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			matched++
		}
	}
	return float64(matched) / float64(n)
}

// CapturedAt returns when the snapshot was taken
func (f *Fingerprint) CapturedAt() time.Time { return f.capturedAt }
