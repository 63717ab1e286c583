package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// MockRecognizer is a placeholder recognizer for development without cloud
// credentials. Audio size drives the canned transcript so the pipeline can be
// exercised end to end.
type MockRecognizer struct {
	logger *zap.Logger
}

// NewMockRecognizer creates a mock speech recognizer
func NewMockRecognizer(logger *zap.Logger) repositories.SpeechRecognizer {
	return &MockRecognizer{logger: logger}
}

// Start implements repositories.SpeechRecognizer
func (m *MockRecognizer) Start(ctx context.Context, config repositories.AudioConfig) (repositories.RecognitionStream, error) {
	m.logger.Info("starting mock recognition stream",
		zap.Int("sample_rate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))
	return &mockStream{
		events: make(chan repositories.RecognitionEvent, 16),
	}, nil
}

type mockStream struct {
	mu     sync.Mutex
	total  int
	events chan repositories.RecognitionEvent
	once   sync.Once
}

// Feed emits interim transcripts keyed off cumulative audio size
func (m *mockStream) Feed(data []byte) error {
	m.mu.Lock()
	m.total += len(data)
	total := m.total
	m.mu.Unlock()

	var text string
	switch {
	case total > 100000:
		text = "can you explain why the answer is four"
	case total > 50000:
		text = "what is 2 plus 2"
	case total > 10000:
		text = "what is"
	default:
		return nil
	}
	select {
	case m.events <- repositories.RecognitionEvent{Text: text}:
	default:
	}
	return nil
}

func (m *mockStream) Events() <-chan repositories.RecognitionEvent {
	return m.events
}

func (m *mockStream) Close() error {
	m.once.Do(func() { close(m.events) })
	return nil
}
