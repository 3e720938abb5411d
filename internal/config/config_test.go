package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STREAMING_CLIENT_ID", "cid")
	t.Setenv("STREAMING_CLIENT_SECRET", "csecret")
	t.Setenv("CATALOG_API_TOKEN", "cat-token")
	t.Setenv("QUEUE_TOKEN", "q-token")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KV_REST_API_URL", "redis.example:6379")
	t.Setenv("KV_REST_API_TOKEN", "redis-pass")
	t.Setenv("STREAM_MAX_LIFETIME", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cid", cfg.Streaming.ClientID)
	assert.Equal(t, "cat-token", cfg.Catalog.Token)
	assert.Equal(t, "q-token", cfg.Queue.Token)
	assert.Equal(t, "redis.example:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis-pass", cfg.Redis.Password)
	assert.Equal(t, "https://api.discogs.com", cfg.Catalog.BaseURL)
	assert.Equal(t, time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, 90*time.Second, cfg.Stream.MaxLifetime)
	assert.Equal(t, time.Hour, cfg.Quiz.JobTTL)
	assert.Equal(t, 10, cfg.Quiz.SampleSize)
}

func TestLoadMissingCatalogToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CATALOG_API_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_API_TOKEN")
}
