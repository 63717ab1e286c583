package tts

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsSynthesizer(t *testing.T) {
	logger := zaptest.NewLogger(t)

	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	if _, err := NewElevenLabsSynthesizer(config, logger); err == nil {
		t.Error("expected error when API key is not set")
	}

	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	synth, err := NewElevenLabsSynthesizer(config, logger)
	if err != nil {
		t.Fatalf("failed to create synthesizer: %v", err)
	}

	if synth.cfg.APIKey != "test-api-key" {
		t.Errorf("API key = %q, want test-api-key", synth.cfg.APIKey)
	}
	if synth.cfg.VoiceID != defaultVoiceID {
		t.Errorf("voice ID = %q, want default %q", synth.cfg.VoiceID, defaultVoiceID)
	}
	if synth.cfg.OutputFormat != defaultOutputFormat {
		t.Errorf("output format = %q, want default %q", synth.cfg.OutputFormat, defaultOutputFormat)
	}
}

func TestElevenLabsConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid minimal", ElevenLabsConfig{APIKey: "key"}, false},
		{"missing api key", ElevenLabsConfig{}, true},
		{"stability out of range", ElevenLabsConfig{APIKey: "key", Stability: 1.5}, true},
		{"clarity out of range", ElevenLabsConfig{APIKey: "key", Clarity: -0.1}, true},
		{"negative chunk size", ElevenLabsConfig{APIKey: "key", ChunkSize: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsSynthesizeEmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)
	synth, err := NewElevenLabsSynthesizer(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("failed to create synthesizer: %v", err)
	}

	ctx := context.Background()
	if _, err := synth.Synthesize(ctx, ""); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := synth.Synthesize(ctx, "   "); err == nil {
		t.Error("expected error for whitespace-only text")
	}
}

func TestMockSynthesizerStreams(t *testing.T) {
	logger := zaptest.NewLogger(t)
	synth := NewMockSynthesizer(logger)

	ch, err := synth.Synthesize(context.Background(), "hello there, let's learn something")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}

	total := 0
	for chunk := range ch {
		if len(chunk) == 0 {
			t.Error("received empty audio chunk")
		}
		total += len(chunk)
	}
	if total == 0 {
		t.Error("no audio data received")
	}
}
