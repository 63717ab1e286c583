package repositories

import "context"

// SpeechSynthesizer abstracts text-to-speech services
type SpeechSynthesizer interface {
	// Synthesize converts text to a stream of audio chunks. The returned
	// channel is closed when synthesis completes or the context is cancelled.
	Synthesize(ctx context.Context, text string) (<-chan []byte, error)
}
