// Package usgs fetches and normalizes the USGS earthquake summary feeds,
// consulting the cache before any network I/O.
package usgs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-map-pipeline/internal/domain"
	"github.com/couchcryptid/quake-map-pipeline/internal/observability"
)

// DefaultBaseURL is the USGS real-time summary feed root.
const DefaultBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

// Cache is the subset of the cache tier the client needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.Event, bool)
	Set(ctx context.Context, key string, events []domain.Event, ttl time.Duration)
}

// Client fetches feed documents over HTTP and normalizes them into events.
type Client struct {
	baseURL    string
	timeout    time.Duration
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client. The timeout bounds each network fetch;
// the caller's context can abort it sooner.
func NewClient(baseURL string, timeout, cacheTTL time.Duration, cache Cache, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		cacheTTL:   cacheTTL,
		httpClient: &http.Client{},
		cache:      cache,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchEvents returns the normalized events for a time range at or above
// magnitudeFloor, sorted magnitude-descending and truncated to resultCap
// (<= 0 means no cap). The cache is consulted first; on a miss the full
// filtered set is cached before truncation so the cap never loses data for
// later callers.
func (c *Client) FetchEvents(ctx context.Context, rng domain.TimeRange, magnitudeFloor float64, resultCap int) (domain.FetchResult, error) {
	feedURL := c.feedURL(rng)
	key := cacheKey(feedURL, magnitudeFloor)

	if events, ok := c.cache.Get(ctx, key); ok {
		c.metrics.FetchRequests.WithLabelValues(string(rng), "hit").Inc()
		return domain.FetchResult{
			Events:    truncate(events, resultCap),
			FromCache: true,
			Total:     len(events),
		}, nil
	}

	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FetchResult{}, c.classify(rng, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.FetchRequests.WithLabelValues(string(rng), "error").Inc()
		return domain.FetchResult{}, &domain.FeedError{Status: resp.StatusCode, Message: string(body)}
	}

	events, err := domain.DecodeFeed(resp.Body)
	if err != nil {
		return domain.FetchResult{}, c.classify(rng, err)
	}

	events = domain.FilterByMagnitudeFloor(events, magnitudeFloor)
	domain.SortByMagnitude(events)

	// A cancelled caller must not commit side effects.
	if err := ctx.Err(); err != nil {
		c.metrics.FetchRequests.WithLabelValues(string(rng), "aborted").Inc()
		return domain.FetchResult{}, fmt.Errorf("%w: %v", domain.ErrAborted, err)
	}
	c.cache.Set(ctx, key, events, c.cacheTTL)

	c.metrics.FetchRequests.WithLabelValues(string(rng), "success").Inc()
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	c.logger.Debug("feed fetched", "range", rng, "events", len(events), "floor", magnitudeFloor)

	return domain.FetchResult{
		Events:    truncate(events, resultCap),
		FromCache: false,
		Total:     len(events),
	}, nil
}

// classify maps a transport or decode failure to the error taxonomy:
// cancellation and timeout become ErrAborted, everything else a FeedError.
func (c *Client) classify(rng domain.TimeRange, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.metrics.FetchRequests.WithLabelValues(string(rng), "aborted").Inc()
		return fmt.Errorf("%w: %v", domain.ErrAborted, err)
	}
	c.metrics.FetchRequests.WithLabelValues(string(rng), "error").Inc()
	return &domain.FeedError{Message: err.Error()}
}

func (c *Client) feedURL(rng domain.TimeRange) string {
	var file string
	switch rng {
	case domain.RangeMedium:
		file = "all_week.geojson"
	case domain.RangeLong:
		file = "all_month.geojson"
	default:
		file = "all_day.geojson"
	}
	return c.baseURL + "/" + file
}

func cacheKey(feedURL string, magnitudeFloor float64) string {
	return feedURL + "|min:" + strconv.FormatFloat(magnitudeFloor, 'g', -1, 64)
}

func truncate(events []domain.Event, resultCap int) []domain.Event {
	if resultCap <= 0 || len(events) <= resultCap {
		return events
	}
	return events[:resultCap:resultCap]
}
