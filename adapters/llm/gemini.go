package llm

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

const (
	defaultModel           = "gemini-2.0-flash"
	defaultTemperature     = 0.7
	defaultTopP            = 0.95
	defaultTopK            = 40
	defaultMaxOutputTokens = 512
	defaultTimeoutSeconds  = 30
)

// tutorSystemPrompt frames every chat session. Answers are kept short because
// they are spoken aloud, not read.
const tutorSystemPrompt = `You are Brainy, a friendly and patient voice tutor for students.
Explain concepts step by step in plain language, check understanding with short
follow-up questions, and encourage the student when they struggle. Keep every
answer under four sentences since it will be read aloud. Never give the final
answer to homework directly; guide the student toward it instead.`

// tutorSafetySettings blocks content inappropriate for a student audience
var tutorSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
}

// tutorFallbacks are spoken when the model produces nothing usable
var tutorFallbacks = []string{
	"Hmm, I lost my train of thought. Could you ask me that again?",
	"Sorry, I didn't quite catch that. Can you say it one more time?",
	"Let me think about that differently. Could you rephrase your question?",
}

// GeminiConfig holds configuration for the Gemini tutor adapter
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}
	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}
	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewGeminiConfigFromEnv reads the adapter configuration from the environment
func NewGeminiConfigFromEnv() GeminiConfig {
	return GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
}

// GeminiTutor implements TutorModel on the Gemini API
type GeminiTutor struct {
	client *genai.Client
	logger *zap.Logger
	cfg    GeminiConfig
}

// NewGeminiTutor creates a Gemini-backed tutor model
func NewGeminiTutor(cfg GeminiConfig, logger *zap.Logger) (*GeminiTutor, error) {
	if err := ValidateGeminiConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.TopK == 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("gemini tutor ready", zap.String("model", cfg.Model))
	return &GeminiTutor{client: client, logger: logger, cfg: cfg}, nil
}

// NewChat creates a tutoring chat session seeded with history
func (g *GeminiTutor) NewChat(ctx context.Context, history []repositories.ChatMessage) (repositories.TutorChat, error) {
	return newGeminiChat(g.client, g.cfg, g.logger, history), nil
}
