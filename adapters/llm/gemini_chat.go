package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// geminiChat implements TutorChat. History lives in memory for the lifetime
// of the session; the conversation repository persists it separately.
type geminiChat struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *zap.Logger

	mu      sync.Mutex
	history []*genai.Content
}

func newGeminiChat(client *genai.Client, cfg GeminiConfig, logger *zap.Logger, history []repositories.ChatMessage) *geminiChat {
	return &geminiChat{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		history: toGeminiHistory(history),
	}
}

// Send delivers a student message and returns the tutor's reply, updating the
// session history. A model failure yields a spoken fallback rather than an
// error so the voice turn always completes.
func (c *geminiChat) Send(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	c.mu.Lock()
	contents := make([]*genai.Content, 0, len(c.history)+2)
	contents = append(contents, genai.NewContentFromText(tutorSystemPrompt, genai.RoleUser))
	contents = append(contents, c.history...)
	userContent := genai.NewContentFromText(message.Content, genai.RoleUser)
	contents = append(contents, userContent)
	c.mu.Unlock()

	config := &genai.GenerateContentConfig{
		SafetySettings:  tutorSafetySettings,
		Temperature:     genai.Ptr(c.cfg.Temperature),
		TopP:            genai.Ptr(c.cfg.TopP),
		TopK:            genai.Ptr(c.cfg.TopK),
		MaxOutputTokens: int32(c.cfg.MaxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
		if err == nil {
			break
		}
		c.logger.Warn("gemini generate failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < 2 {
			select {
			case <-time.After(time.Duration(attempt+1) * time.Second):
			case <-ctx.Done():
				return c.fallback(), nil
			}
		}
	}
	if err != nil {
		c.logger.Error("gemini generate exhausted retries", zap.Error(err))
		return c.fallback(), nil
	}

	text := extractText(response)
	if text == "" {
		c.logger.Warn("gemini returned no usable content")
		return c.fallback(), nil
	}

	c.mu.Lock()
	c.history = append(c.history, userContent, genai.NewContentFromText(text, genai.RoleModel))
	c.mu.Unlock()

	return repositories.ChatMessage{Role: repositories.TutorRole, Content: text}, nil
}

// History returns the conversation so far
func (c *geminiChat) History() ([]repositories.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fromGeminiHistory(c.history), nil
}

func (c *geminiChat) fallback() repositories.ChatMessage {
	text := tutorFallbacks[int(time.Now().UnixNano())%len(tutorFallbacks)]
	c.mu.Lock()
	c.history = append(c.history, genai.NewContentFromText(text, genai.RoleModel))
	c.mu.Unlock()
	return repositories.ChatMessage{Role: repositories.TutorRole, Content: text}
}

func extractText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

func toGeminiHistory(messages []repositories.ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == repositories.TutorRole {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(role)))
	}
	return contents
}

func fromGeminiHistory(contents []*genai.Content) []repositories.ChatMessage {
	var messages []repositories.ChatMessage
	for _, content := range contents {
		role := repositories.StudentRole
		if content.Role == genai.RoleModel {
			role = repositories.TutorRole
		}
		var text string
		for _, part := range content.Parts {
			text += part.Text
		}
		if text != "" {
			messages = append(messages, repositories.ChatMessage{Role: role, Content: text})
		}
	}
	return messages
}
