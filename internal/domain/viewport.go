package domain

import (
	"math"
	"sort"
)

// magnitudeTieBand is the magnitude difference within which two events are
// considered peers and ranked by recency instead, keeping the "biggest and
// newest" events privileged under truncation.
const magnitudeTieBand = 0.5

// SelectionStats reports what SelectVisible saw and kept. Read-only
// observability data, not state.
type SelectionStats struct {
	Total    int // events considered
	Visible  int // events inside the viewport, pre-truncation
	Rendered int // events returned after the cap
	Culled   int // visible events dropped by the cap
}

// SelectVisible filters events to the viewport, ranks them by priority, and
// truncates to a zoom- and mode-dependent render cap. A nil bounds treats
// every event as visible, used before the first viewport report arrives.
// The input slice is not modified.
func SelectVisible(events []Event, bounds *ViewportBounds, mode PerformanceMode) ([]Event, SelectionStats) {
	visible := make([]Event, 0, len(events))
	for _, e := range events {
		if bounds == nil || bounds.Contains(e.Coords) {
			visible = append(visible, e)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		mi, mj := visible[i].MagnitudeOrZero(), visible[j].MagnitudeOrZero()
		if math.Abs(mi-mj) <= magnitudeTieBand {
			return visible[i].Time.After(visible[j].Time)
		}
		return mi > mj
	})

	zoom := 0
	if bounds != nil {
		zoom = bounds.Zoom
	}
	limit := renderCap(zoom, mode)

	stats := SelectionStats{Total: len(events), Visible: len(visible)}
	if len(visible) > limit {
		stats.Culled = len(visible) - limit
		visible = visible[:limit]
	}
	stats.Rendered = len(visible)
	return visible, stats
}

// renderCap returns the rendering limit for a zoom tier, scaled by mode:
// coarser zoom means a smaller cap, higher quality a larger one.
func renderCap(zoom int, mode PerformanceMode) int {
	var base int
	switch {
	case zoom >= 8:
		base = 1000
	case zoom >= 6:
		base = 500
	case zoom >= 4:
		base = 250
	default:
		base = 100
	}

	switch mode {
	case ModeHighQuality:
		return base * 2
	case ModePerformance:
		return base * 3 / 4
	default:
		return base
	}
}
