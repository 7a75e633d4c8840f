package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed client configuration.
	FeedBaseURL string
	FeedTimeout time.Duration
	ResultCap   int

	// Cache configuration.
	CachePath       string
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Orchestrator debounce delays. Bounds changes fire continuously during
	// pan gestures, so they debounce faster than range/magnitude changes.
	BoundsDebounce time.Duration
	FilterDebounce time.Duration

	// Kafka snapshot publishing configuration.
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	KafkaEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	feedTimeout, err := durationOrDefault("FEED_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationOrDefault("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	boundsDebounce, err := durationOrDefault("BOUNDS_DEBOUNCE", 150*time.Millisecond)
	if err != nil {
		return nil, err
	}
	filterDebounce, err := durationOrDefault("FILTER_DEBOUNCE", 400*time.Millisecond)
	if err != nil {
		return nil, err
	}
	resultCap, err := intOrDefault("RESULT_CAP", 2000)
	if err != nil {
		return nil, err
	}
	cacheMaxEntries, err := intOrDefault("CACHE_MAX_ENTRIES", 50)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaTopic := os.Getenv("KAFKA_SNAPSHOT_TOPIC")
	kafkaEnabled := len(kafkaBrokers) > 0 && kafkaTopic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedBaseURL: envOrDefault("FEED_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"),
		FeedTimeout: feedTimeout,
		ResultCap:   resultCap,

		CachePath:       envOrDefault("CACHE_PATH", "feed-cache.db"),
		CacheTTL:        cacheTTL,
		CacheMaxEntries: cacheMaxEntries,

		BoundsDebounce: boundsDebounce,
		FilterDebounce: filterDebounce,

		KafkaBrokers:       kafkaBrokers,
		KafkaSnapshotTopic: kafkaTopic,
		KafkaEnabled:       kafkaEnabled,
	}

	if cfg.FeedBaseURL == "" {
		return nil, errors.New("FEED_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SNAPSHOT_TOPIC is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
