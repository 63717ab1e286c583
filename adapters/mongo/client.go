package mongo

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI                    = "mongodb://localhost:27017"
	defaultDatabase               = "brainy"
	defaultMaxPoolSize            = 10
	defaultMinPoolSize            = 1
	defaultMaxConnIdleTime        = 30 * time.Minute
	defaultServerSelectionTimeout = 5 * time.Second
	defaultConnectTimeout         = 10 * time.Second
)

// Config holds the connection settings for the history store. Everything has
// a development-friendly default.
type Config struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ServerSelectionTimeout time.Duration
	ConnectTimeout         time.Duration
}

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.MinPoolSize > config.MaxPoolSize && config.MaxPoolSize != 0 {
		return fmt.Errorf("min pool size %d exceeds max pool size %d", config.MinPoolSize, config.MaxPoolSize)
	}
	if config.ConnectTimeout < 0 || config.ServerSelectionTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// NewConfigFromEnv reads the connection settings from the environment
func NewConfigFromEnv() Config {
	config := Config{
		URI:      os.Getenv("MONGODB_URI"),
		Database: os.Getenv("MONGODB_DATABASE"),
	}
	if poolStr := os.Getenv("MONGODB_MAX_POOL_SIZE"); poolStr != "" {
		if pool, err := strconv.ParseUint(poolStr, 10, 64); err == nil && pool > 0 {
			config.MaxPoolSize = pool
		}
	}
	if timeoutStr := os.Getenv("MONGODB_CONNECT_TIMEOUT_MS"); timeoutStr != "" {
		if ms, err := strconv.Atoi(timeoutStr); err == nil && ms > 0 {
			config.ConnectTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	return config
}

func applyDefaults(config Config) Config {
	if config.URI == "" {
		config.URI = defaultURI
	}
	if config.Database == "" {
		config.Database = defaultDatabase
	}
	if config.MaxPoolSize == 0 {
		config.MaxPoolSize = defaultMaxPoolSize
	}
	if config.MinPoolSize == 0 {
		config.MinPoolSize = defaultMinPoolSize
	}
	if config.MaxConnIdleTime == 0 {
		config.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if config.ServerSelectionTimeout == 0 {
		config.ServerSelectionTimeout = defaultServerSelectionTimeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}
	return config
}

// Client wraps the driver client together with the conversation database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects to MongoDB and verifies the connection with a ping
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	config = applyDefaults(config)

	opts := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(config.MaxConnIdleTime).
		SetServerSelectionTimeout(config.ServerSelectionTimeout).
		SetConnectTimeout(config.ConnectTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("database", config.Database))

	return &Client{
		Client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close disconnects from MongoDB
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("mongodb disconnect failed", zap.Error(err))
		return err
	}
	c.logger.Info("disconnected from mongodb")
	return nil
}
