package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/6ogo/Brainy-sub002/internal/voice"
)

// Config holds the server-level settings read from the environment.
// Adapter credentials (GEMINI_API_KEY, ELEVEN_LABS_API_KEY, MONGODB_URI)
// are read by the adapters themselves.
type Config struct {
	Port      string
	JWTSecret string

	// MongoEnabled reports whether conversation persistence is configured
	MongoEnabled bool

	Session voice.SessionConfig
}

// Load reads configuration from the environment, falling back to the stock
// voice tuning for anything unset
func Load(logger *zap.Logger) *Config {
	cfg := &Config{
		Port:         envString("PORT", "8080"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		MongoEnabled: os.Getenv("MONGODB_URI") != "",
		Session:      voice.DefaultSessionConfig(),
	}

	cfg.Session.PauseThreshold = voice.ClampPauseThreshold(
		envDurationMs("PAUSE_THRESHOLD_MS", cfg.Session.PauseThreshold, logger))
	cfg.Session.ResponseTimeout = envDurationMs("RESPONSE_TIMEOUT_MS", cfg.Session.ResponseTimeout, logger)
	cfg.Session.VisualizerBuckets = envInt("VIZ_BUCKETS", cfg.Session.VisualizerBuckets, logger)

	cfg.Session.Suppressor.SimilarityThreshold = envFloat(
		"FEEDBACK_SIMILARITY_THRESHOLD", cfg.Session.Suppressor.SimilarityThreshold, logger)
	cfg.Session.Suppressor.ReenableDelay = envDurationMs(
		"FEEDBACK_REENABLE_DELAY_MS", cfg.Session.Suppressor.ReenableDelay, logger)
	cfg.Session.Suppressor.CooldownPeriod = envDurationMs(
		"FEEDBACK_COOLDOWN_MS", cfg.Session.Suppressor.CooldownPeriod, logger)

	cfg.Session.Audio.SampleRate = envInt("AUDIO_SAMPLE_RATE", cfg.Session.Audio.SampleRate, logger)
	cfg.Session.Audio.Language = envString("AUDIO_LANGUAGE", cfg.Session.Audio.Language)

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, logger *zap.Logger) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logger.Warn("ignoring invalid config value", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64, logger *zap.Logger) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v > 1 {
		logger.Warn("ignoring invalid config value", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return v
}

func envDurationMs(key string, fallback time.Duration, logger *zap.Logger) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		logger.Warn("ignoring invalid config value", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
