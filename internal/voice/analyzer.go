package voice

import "math"

// SpectrumAnalyzer derives coarse frequency-bin magnitudes from PCM16 frames.
// A naive DFT over a small fixed number of bins is plenty here: the bins feed
// a similarity heuristic and a bar visualization, not signal reconstruction.
type SpectrumAnalyzer struct {
	bins int
}

// NewSpectrumAnalyzer creates an analyzer producing the given bin count
func NewSpectrumAnalyzer(bins int) *SpectrumAnalyzer {
	if bins <= 0 {
		bins = 32
	}
	return &SpectrumAnalyzer{bins: bins}
}

// Bins returns the number of frequency bins per spectrum
func (a *SpectrumAnalyzer) Bins() int { return a.bins }

// Spectrum computes per-bin magnitudes scaled to 0..255, one bin per
// frequency bucket spread across the first half of the sample band.
func (a *SpectrumAnalyzer) Spectrum(pcm []int16) []float64 {
	out := make([]float64, a.bins)
	n := len(pcm)
	if n == 0 {
		return out
	}
	for b := 0; b < a.bins; b++ {
		// bucket center frequency as a fraction of Nyquist
		k := float64(b+1) / float64(2*a.bins)
		var re, im float64
		for i, s := range pcm {
			angle := 2 * math.Pi * k * float64(i)
			v := float64(s) / 32768.0
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}
		mag := math.Sqrt(re*re+im*im) / float64(n)
		// scale to the 0..255 range used by the similarity tolerance
		out[b] = math.Min(255, mag*255*8)
	}
	return out
}

// RMSAmplitude returns the normalized (0..1) RMS energy of a PCM16 frame
func RMSAmplitude(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}
	var sum float64
	for _, s := range pcm {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(pcm)))
}
