package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary", cfg.FeedBaseURL)
	assert.Equal(t, 15*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 2000, cfg.ResultCap)

	assert.Equal(t, "feed-cache.db", cfg.CachePath)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 50, cfg.CacheMaxEntries)

	assert.Equal(t, 150*time.Millisecond, cfg.BoundsDebounce)
	assert.Equal(t, 400*time.Millisecond, cfg.FilterDebounce)

	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("FEED_BASE_URL", "http://localhost:8081/feeds")
	t.Setenv("FEED_TIMEOUT", "30s")
	t.Setenv("RESULT_CAP", "500")
	t.Setenv("CACHE_PATH", "/var/lib/quake/cache.db")
	t.Setenv("CACHE_TTL", "10m")
	t.Setenv("CACHE_MAX_ENTRIES", "100")
	t.Setenv("BOUNDS_DEBOUNCE", "200ms")
	t.Setenv("FILTER_DEBOUNCE", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "http://localhost:8081/feeds", cfg.FeedBaseURL)
	assert.Equal(t, 30*time.Second, cfg.FeedTimeout)
	assert.Equal(t, 500, cfg.ResultCap)
	assert.Equal(t, "/var/lib/quake/cache.db", cfg.CachePath)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.CacheMaxEntries)
	assert.Equal(t, 200*time.Millisecond, cfg.BoundsDebounce)
	assert.Equal(t, time.Second, cfg.FilterDebounce)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("FEED_TIMEOUT", "fifteen seconds")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEED_TIMEOUT")
}

func TestLoad_NonPositiveDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "-5m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("RESULT_CAP", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESULT_CAP")
}

func TestLoad_NonPositiveInt(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_MAX_ENTRIES")
}

func TestLoad_KafkaImplicitlyEnabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SNAPSHOT_TOPIC", "quake.snapshots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "quake.snapshots", cfg.KafkaSnapshotTopic)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_SNAPSHOT_TOPIC", "quake.snapshots")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_SNAPSHOT_TOPIC", "quake.snapshots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaEnabledWithoutTopic(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_SNAPSHOT_TOPIC")
}
