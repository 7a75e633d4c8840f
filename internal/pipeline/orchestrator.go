// Package pipeline composes the feed client, viewport selection, and
// clustering behind a single debounced orchestrator loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-map-pipeline/internal/domain"
	"github.com/couchcryptid/quake-map-pipeline/internal/observability"
)

// Fetcher produces normalized events for a time range and magnitude floor.
type Fetcher interface {
	FetchEvents(ctx context.Context, rng domain.TimeRange, magnitudeFloor float64, resultCap int) (domain.FetchResult, error)
}

// Publisher forwards freshly fetched event batches to downstream consumers.
type Publisher interface {
	PublishEvents(ctx context.Context, rng domain.TimeRange, events []domain.Event) error
}

// Snapshot is the sole state exposed to the presentation layer: the derived
// cluster list plus status. Replaced wholesale, never mutated in place.
type Snapshot struct {
	Clusters     []domain.Cluster       `json:"clusters"`
	Loading      bool                   `json:"loading"`
	Err          string                 `json:"error,omitempty"`
	FromCache    bool                   `json:"fromCache"`
	VisibleCount int                    `json:"visibleCount"`
	CulledCount  int                    `json:"culledCount"`
	TotalCount   int                    `json:"totalCount"`
	Range        domain.TimeRange       `json:"range"`
	MinMagnitude float64                `json:"minMagnitude"`
	Mode         domain.PerformanceMode `json:"mode"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// Options tunes the orchestrator. Zero values pick the defaults below.
type Options struct {
	BoundsDebounce time.Duration // default 150ms; bounds fire continuously during pan
	FilterDebounce time.Duration // default 400ms; range/floor/mode changes
	ResultCap      int           // passed through to the fetcher
	PublishTimeout time.Duration // default 10s
	Clock          clockwork.Clock
}

type inputKind int

const (
	inputRange inputKind = iota
	inputFloor
	inputBounds
	inputMode
)

type input struct {
	kind   inputKind
	rng    domain.TimeRange
	floor  float64
	bounds domain.ViewportBounds
	mode   domain.PerformanceMode
}

type fetchOutcome struct {
	gen    uint64
	result domain.FetchResult
	err    error
}

// loopState is owned exclusively by the Run goroutine.
type loopState struct {
	rng    domain.TimeRange
	floor  float64
	mode   domain.PerformanceMode
	bounds *domain.ViewportBounds

	events    []domain.Event
	fromCache bool
	total     int

	gen    uint64
	cancel context.CancelFunc
}

// Orchestrator debounces user-driven inputs, keeps at most one fetch in
// flight, and feeds results through viewport selection and clustering.
type Orchestrator struct {
	fetcher   Fetcher
	publisher Publisher // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	boundsDebounce time.Duration
	filterDebounce time.Duration
	resultCap      int
	publishTimeout time.Duration

	inputs  chan input
	results chan fetchOutcome
	done    chan struct{}

	mu       sync.RWMutex
	snapshot Snapshot
	ready    atomic.Bool
}

// New creates an Orchestrator. Pass a nil publisher to disable downstream
// publishing.
func New(fetcher Fetcher, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Orchestrator {
	if opts.BoundsDebounce <= 0 {
		opts.BoundsDebounce = 150 * time.Millisecond
	}
	if opts.FilterDebounce <= 0 {
		opts.FilterDebounce = 400 * time.Millisecond
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		fetcher:        fetcher,
		publisher:      publisher,
		logger:         logger,
		metrics:        metrics,
		clock:          opts.Clock,
		boundsDebounce: opts.BoundsDebounce,
		filterDebounce: opts.FilterDebounce,
		resultCap:      opts.ResultCap,
		publishTimeout: opts.PublishTimeout,
		inputs:         make(chan input, 64),
		results:        make(chan fetchOutcome, 8),
		done:           make(chan struct{}),
		snapshot: Snapshot{
			Range: domain.RangeShort,
			Mode:  domain.ModeBalanced,
		},
	}
}

// SetRange requests a new time range. Debounced.
func (o *Orchestrator) SetRange(rng domain.TimeRange) {
	o.send(input{kind: inputRange, rng: rng})
}

// SetMinMagnitude requests a new magnitude floor. Debounced.
func (o *Orchestrator) SetMinMagnitude(floor float64) {
	o.send(input{kind: inputFloor, floor: floor})
}

// SetViewport reports the latest visible rectangle and zoom. Debounced more
// aggressively than the other inputs; latest report wins.
func (o *Orchestrator) SetViewport(bounds domain.ViewportBounds) {
	o.send(input{kind: inputBounds, bounds: bounds})
}

// SetMode selects the performance mode. Debounced.
func (o *Orchestrator) SetMode(mode domain.PerformanceMode) {
	o.send(input{kind: inputMode, mode: mode})
}

func (o *Orchestrator) send(in input) {
	select {
	case o.inputs <- in:
	case <-o.done:
	default:
		o.logger.Warn("input dropped, pipeline backlogged")
	}
}

// Snapshot returns the current derived state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// CheckReadiness returns nil once at least one fetch has succeeded.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("pipeline has not completed a fetch yet")
	}
	return nil
}

// Run executes the orchestrator loop until the context is cancelled. Loop
// state is confined to this goroutine; only the snapshot crosses out, under
// the mutex.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	o.logger.Info("pipeline started",
		"bounds_debounce", o.boundsDebounce,
		"filter_debounce", o.filterDebounce,
	)
	o.metrics.PipelineRunning.Set(1)
	defer o.metrics.PipelineRunning.Set(0)

	st := loopState{
		rng:  domain.RangeShort,
		mode: domain.ModeBalanced,
	}

	filterTimer := o.clock.NewTimer(time.Hour)
	filterTimer.Stop()
	boundsTimer := o.clock.NewTimer(time.Hour)
	boundsTimer.Stop()
	defer filterTimer.Stop()
	defer boundsTimer.Stop()

	// Initial fetch so the surface has data before any user input arrives.
	o.startFetch(ctx, &st)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline stopping", "reason", ctx.Err())
			if st.cancel != nil {
				st.cancel()
			}
			return nil

		case in := <-o.inputs:
			switch in.kind {
			case inputBounds:
				bounds := in.bounds
				st.bounds = &bounds
				boundsTimer.Reset(o.boundsDebounce)
			case inputRange:
				st.rng = in.rng
				filterTimer.Reset(o.filterDebounce)
			case inputFloor:
				st.floor = in.floor
				filterTimer.Reset(o.filterDebounce)
			case inputMode:
				st.mode = in.mode
				filterTimer.Reset(o.filterDebounce)
			}

		case <-filterTimer.Chan():
			o.startFetch(ctx, &st)

		case <-boundsTimer.Chan():
			o.startFetch(ctx, &st)

		case out := <-o.results:
			o.handleOutcome(out, &st)
		}
	}
}

// startFetch cancels any in-flight fetch and launches the next one. Results
// carry a generation number so stale completions are discarded.
func (o *Orchestrator) startFetch(ctx context.Context, st *loopState) {
	if st.cancel != nil {
		st.cancel()
	}
	st.gen++
	gen := st.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel

	rng, floor := st.rng, st.floor

	o.mu.Lock()
	o.snapshot.Loading = true
	o.mu.Unlock()

	go func() {
		result, err := o.fetcher.FetchEvents(fetchCtx, rng, floor, o.resultCap)
		select {
		case o.results <- fetchOutcome{gen: gen, result: result, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (o *Orchestrator) handleOutcome(out fetchOutcome, st *loopState) {
	if out.gen != st.gen {
		o.logger.Debug("discarding stale fetch result", "generation", out.gen)
		return
	}
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}

	if out.err != nil {
		if errors.Is(out.err, domain.ErrAborted) || errors.Is(out.err, context.Canceled) {
			// Superseded or timed out: indistinguishable from "no error".
			o.mu.Lock()
			o.snapshot.Loading = false
			o.mu.Unlock()
			return
		}
		o.logger.Error("fetch failed", "range", st.rng, "error", out.err)
		// Prior clusters stay visible; only the status changes.
		o.mu.Lock()
		o.snapshot.Loading = false
		o.snapshot.Err = out.err.Error()
		o.snapshot.UpdatedAt = o.clock.Now()
		o.mu.Unlock()
		return
	}

	st.events = out.result.Events
	st.fromCache = out.result.FromCache
	st.total = out.result.Total
	o.ready.Store(true)
	o.recompute(st)

	if o.publisher != nil && !out.result.FromCache {
		go o.publish(st.rng, out.result.Events)
	}
}

// recompute runs viewport selection and clustering in series over the
// current event list and replaces the exposed snapshot.
func (o *Orchestrator) recompute(st *loopState) {
	start := time.Now()
	ranked, stats := domain.SelectVisible(st.events, st.bounds, st.mode)
	zoom := 0
	if st.bounds != nil {
		zoom = st.bounds.Zoom
	}
	clusters := domain.ClusterEvents(ranked, zoom)

	o.metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	o.metrics.EventsVisible.Set(float64(stats.Visible))
	o.metrics.EventsCulled.Set(float64(stats.Culled))
	o.metrics.ClusterCount.Set(float64(len(clusters)))

	o.mu.Lock()
	o.snapshot = Snapshot{
		Clusters:     clusters,
		FromCache:    st.fromCache,
		VisibleCount: stats.Visible,
		CulledCount:  stats.Culled,
		TotalCount:   st.total,
		Range:        st.rng,
		MinMagnitude: st.floor,
		Mode:         st.mode,
		UpdatedAt:    o.clock.Now(),
	}
	o.mu.Unlock()
}

func (o *Orchestrator) publish(rng domain.TimeRange, events []domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), o.publishTimeout)
	defer cancel()

	if err := o.publisher.PublishEvents(ctx, rng, events); err != nil {
		o.metrics.PublishErrors.Inc()
		o.logger.Warn("snapshot publish failed", "range", rng, "events", len(events), "error", err)
		return
	}
	o.metrics.SnapshotsPublished.Inc()
}
