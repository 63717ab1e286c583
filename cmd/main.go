package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/adapters/llm"
	"github.com/6ogo/Brainy-sub002/adapters/mongo"
	"github.com/6ogo/Brainy-sub002/adapters/stt"
	"github.com/6ogo/Brainy-sub002/adapters/tts"
	"github.com/6ogo/Brainy-sub002/domain/repositories"
	"github.com/6ogo/Brainy-sub002/internal/api"
	"github.com/6ogo/Brainy-sub002/internal/auth"
	"github.com/6ogo/Brainy-sub002/internal/config"
	"github.com/6ogo/Brainy-sub002/internal/websocket"
	"github.com/6ogo/Brainy-sub002/usecase"
)

func main() {
	// .env is optional, real deployments set the environment directly
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load(logger)
	auth.SetSecret(cfg.JWTSecret)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Conversation persistence is optional: without MongoDB the tutor still
	// works, history is just not recorded
	var conversations repositories.ConversationRepository
	var mongoClient *mongo.Client
	if cfg.MongoEnabled {
		client, err := mongo.NewClient(mongo.NewConfigFromEnv(), logger)
		if err != nil {
			logger.Warn("MongoDB unavailable, continuing without history", zap.Error(err))
		} else {
			mongoClient = client
			conversations = mongo.NewConversationRepository(client.Database)
		}
	} else {
		logger.Info("MONGODB_URI not set, conversation history disabled")
	}

	recognizer := buildRecognizer(logger)
	model := buildTutorModel(logger)
	synthesizer := buildSynthesizer(logger)

	// Initialize usecase services
	tutorService := usecase.NewTutorService(model, synthesizer, conversations, logger)

	// Initialize WebSocket hub, one voice session per client
	hub := websocket.NewHub(recognizer, tutorService, cfg.Session, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, conversations, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Brainy voice server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if mongoClient != nil {
		mongoClient.Close(ctx)
	}

	logger.Info("Server exited")
}

// buildRecognizer selects Google Cloud Speech-to-Text when credentials are
// configured, the mock otherwise
func buildRecognizer(logger *zap.Logger) repositories.SpeechRecognizer {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		logger.Info("Using Google Cloud Speech-to-Text")
		return stt.NewGoogleRecognizer()
	}
	logger.Info("GOOGLE_APPLICATION_CREDENTIALS not set, using mock recognizer")
	return stt.NewMockRecognizer(logger)
}

// buildTutorModel selects Gemini when an API key is configured, the mock
// otherwise
func buildTutorModel(logger *zap.Logger) repositories.TutorModel {
	if os.Getenv("GEMINI_API_KEY") != "" {
		tutor, err := llm.NewGeminiTutor(llm.NewGeminiConfigFromEnv(), logger)
		if err != nil {
			logger.Warn("Gemini initialization failed, using mock tutor", zap.Error(err))
			return llm.NewMockTutor()
		}
		logger.Info("Using Gemini tutor model")
		return tutor
	}
	logger.Info("GEMINI_API_KEY not set, using mock tutor")
	return llm.NewMockTutor()
}

// buildSynthesizer selects ElevenLabs when an API key is configured, the
// mock otherwise
func buildSynthesizer(logger *zap.Logger) repositories.SpeechSynthesizer {
	if os.Getenv("ELEVEN_LABS_API_KEY") != "" {
		synth, err := tts.NewElevenLabsSynthesizer(tts.NewElevenLabsConfigFromEnv(), logger)
		if err != nil {
			logger.Warn("ElevenLabs initialization failed, using mock synthesizer", zap.Error(err))
			return tts.NewMockSynthesizer(logger)
		}
		logger.Info("Using ElevenLabs speech synthesis")
		return synth
	}
	logger.Info("ELEVEN_LABS_API_KEY not set, using mock synthesizer")
	return tts.NewMockSynthesizer(logger)
}
