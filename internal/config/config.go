package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Streaming StreamingConfig
	Catalog   CatalogConfig
	Queue     QueueConfig
	Stream    StreamConfig
	Quiz      QuizConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StreamingConfig holds the client-credentials pair for the streaming
// service API.
type StreamingConfig struct {
	ClientID     string
	ClientSecret string
}

// CatalogConfig holds the discography catalog credentials. Token is
// required at startup: without it every catalog call 401s and the
// pipeline silently degrades to streaming dates.
type CatalogConfig struct {
	BaseURL string
	Token   string
}

type QueueConfig struct {
	Token string
}

// StreamConfig bounds the event stream loop.
type StreamConfig struct {
	PollInterval time.Duration
	MaxLifetime  time.Duration
}

type QuizConfig struct {
	SampleSize int
	JobTTL     time.Duration
}

type RateLimitConfig struct {
	ProcessPerMin int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("redis.addr", "KV_REST_API_URL")
	_ = viper.BindEnv("redis.password", "KV_REST_API_TOKEN")
	_ = viper.BindEnv("streaming.client_id", "STREAMING_CLIENT_ID")
	_ = viper.BindEnv("streaming.client_secret", "STREAMING_CLIENT_SECRET")
	_ = viper.BindEnv("catalog.token", "CATALOG_API_TOKEN")
	_ = viper.BindEnv("catalog.base_url", "CATALOG_BASE_URL")
	_ = viper.BindEnv("queue.token", "QUEUE_TOKEN")
	_ = viper.BindEnv("stream.poll_interval", "STREAM_POLL_INTERVAL")
	_ = viper.BindEnv("stream.max_lifetime", "STREAM_MAX_LIFETIME")
	_ = viper.BindEnv("ratelimit.process_per_min", "RATELIMIT_PROCESS_PER_MIN")

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("catalog.base_url", "https://api.discogs.com")
	viper.SetDefault("stream.poll_interval", "1s")
	viper.SetDefault("stream.max_lifetime", "60s")
	viper.SetDefault("quiz.sample_size", 10)
	viper.SetDefault("quiz.job_ttl", "1h")
	viper.SetDefault("ratelimit.process_per_min", 10)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Streaming: StreamingConfig{
			ClientID:     viper.GetString("streaming.client_id"),
			ClientSecret: viper.GetString("streaming.client_secret"),
		},
		Catalog: CatalogConfig{
			BaseURL: viper.GetString("catalog.base_url"),
			Token:   viper.GetString("catalog.token"),
		},
		Queue: QueueConfig{
			Token: viper.GetString("queue.token"),
		},
		Stream: StreamConfig{
			PollInterval: viper.GetDuration("stream.poll_interval"),
			MaxLifetime:  viper.GetDuration("stream.max_lifetime"),
		},
		Quiz: QuizConfig{
			SampleSize: viper.GetInt("quiz.sample_size"),
			JobTTL:     viper.GetDuration("quiz.job_ttl"),
		},
		RateLimit: RateLimitConfig{
			ProcessPerMin: viper.GetInt("ratelimit.process_per_min"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Streaming.ClientID == "" {
		missing = append(missing, "STREAMING_CLIENT_ID")
	}
	if c.Streaming.ClientSecret == "" {
		missing = append(missing, "STREAMING_CLIENT_SECRET")
	}
	if c.Catalog.Token == "" {
		missing = append(missing, "CATALOG_API_TOKEN")
	}
	if c.Queue.Token == "" {
		missing = append(missing, "QUEUE_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
