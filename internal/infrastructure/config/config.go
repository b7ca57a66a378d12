package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Supported store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// ChatQueue is the asynq queue chat messages are enqueued on. A worker
// that does not consume it never appends queued messages.
const ChatQueue = "chat"

// Config holds every runtime setting of the API process.
// Values come from the environment (optionally seeded from a .env file by main).
type Config struct {
	Port string

	StoreDriver   string
	DatabaseURL   string
	MongoURL      string
	MongoDatabase string

	// RedisURL enables the cross-node relay and the task queue when set.
	RedisURL         string
	AsynqConcurrency int
	AsynqQueues      map[string]int

	NodeID string

	EventRate      float64
	EventBurst     int
	HandlerTimeout time.Duration

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             envOr("PORT", "8080"),
		StoreDriver:      strings.ToLower(envOr("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DB_URL")),
		MongoURL:         strings.TrimSpace(os.Getenv("MONGO_URL")),
		MongoDatabase:    envOr("MONGO_DB", "jobboard"),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		AsynqConcurrency: 10,
		AsynqQueues:      map[string]int{"default": 1, ChatQueue: 1},
		NodeID:           envOr("NODE_ID", uuid.NewString()),
		EventRate:        20,
		EventBurst:       40,
		HandlerTimeout:   5 * time.Second,
		LogLevel:         slog.LevelInfo,
		LogFormat:        strings.ToLower(envOr("LOG_FORMAT", "json")),
	}

	if v := strings.TrimSpace(os.Getenv("ASYNQ_CONCURRENCY")); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.AsynqConcurrency = i
		} else {
			slog.Warn("ignoring invalid ASYNQ_CONCURRENCY", "value", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ASYNQ_QUEUES")); v != "" {
		if parsed := ParseQueueWeights(v); len(parsed) > 0 {
			cfg.AsynqQueues = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_EVENT_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.EventRate = f
		} else {
			slog.Warn("ignoring invalid WS_EVENT_RATE", "value", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_EVENT_BURST")); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.EventBurst = i
		} else {
			slog.Warn("ignoring invalid WS_EVENT_BURST", "value", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("HANDLER_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HandlerTimeout = d
		} else {
			slog.Warn("ignoring invalid HANDLER_TIMEOUT", "value", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			slog.Warn("ignoring invalid LOG_LEVEL", "value", v)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DB_URL environment variable is not set")
		}
	case StoreDriverMongo:
		if c.MongoURL == "" {
			return errors.New("config: MONGO_URL environment variable is not set")
		}
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if _, ok := c.AsynqQueues[ChatQueue]; !ok {
		return fmt.Errorf("config: ASYNQ_QUEUES must include the %q queue", ChatQueue)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("config: unsupported LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// NewLogger builds the process logger described by LogFormat and LogLevel.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseQueueWeights parses strings like "critical=6,default=3,low=1" into a map.
// Entries without a weight default to 1.
func ParseQueueWeights(s string) map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		w := 1
		if len(kv) == 2 {
			if i, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && i > 0 {
				w = i
			}
		}
		res[name] = w
	}
	return res
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
