package tts

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// MockSynthesizer produces a short sine-wave tone instead of real speech, for
// development without an API key. Duration scales with text length so turn
// timing feels realistic.
type MockSynthesizer struct {
	logger *zap.Logger
}

// NewMockSynthesizer creates a mock speech synthesizer
func NewMockSynthesizer(logger *zap.Logger) repositories.SpeechSynthesizer {
	return &MockSynthesizer{logger: logger}
}

// Synthesize implements repositories.SpeechSynthesizer
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	m.logger.Info("synthesizing mock audio", zap.Int("text_length", len(text)))

	out := make(chan []byte, 10)
	go func() {
		defer close(out)

		const sampleRate = 16000
		const chunkSamples = 1600 // 100ms per chunk
		chunks := len(text) / 10
		if chunks < 2 {
			chunks = 2
		}
		if chunks > 40 {
			chunks = 40
		}

		sample := 0
		for c := 0; c < chunks; c++ {
			chunk := make([]byte, chunkSamples*2)
			for i := 0; i < chunkSamples; i++ {
				v := int16(8000 * math.Sin(2*math.Pi*440*float64(sample)/sampleRate))
				chunk[i*2] = byte(v)
				chunk[i*2+1] = byte(v >> 8)
				sample++
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
