package domain

import "time"

// TimeRange selects which fixed USGS summary feed to fetch.
type TimeRange string

const (
	RangeShort  TimeRange = "24h"
	RangeMedium TimeRange = "7d"
	RangeLong   TimeRange = "30d"
)

// ParseTimeRange maps a UI-supplied range value to a TimeRange.
// Unrecognized values fall back to RangeShort.
func ParseTimeRange(s string) TimeRange {
	switch s {
	case "24h", "short":
		return RangeShort
	case "7d", "medium":
		return RangeMedium
	case "30d", "long":
		return RangeLong
	default:
		return RangeShort
	}
}

// PerformanceMode scales the render cap applied by SelectVisible.
type PerformanceMode string

const (
	ModePerformance PerformanceMode = "performance"
	ModeBalanced    PerformanceMode = "balanced"
	ModeHighQuality PerformanceMode = "high-quality"
)

// ParsePerformanceMode maps a UI-supplied mode value to a PerformanceMode.
// Unrecognized values fall back to ModeBalanced.
func ParsePerformanceMode(s string) PerformanceMode {
	switch s {
	case string(ModePerformance):
		return ModePerformance
	case string(ModeHighQuality):
		return ModeHighQuality
	default:
		return ModeBalanced
	}
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one normalized seismic reading. Immutable once normalized.
// Magnitude and Depth are pointers so "absent in the source" survives
// normalization and serialization; comparisons treat absent as 0.
type Event struct {
	ID        string      `json:"id"`
	Magnitude *float64    `json:"magnitude,omitempty"`
	Place     string      `json:"place,omitempty"`
	Time      time.Time   `json:"time"`
	Depth     *float64    `json:"depth,omitempty"`
	Coords    Coordinates `json:"coords"`
}

// MagnitudeOrZero returns the magnitude for ordering and threshold checks,
// treating an absent magnitude as 0.
func (e Event) MagnitudeOrZero() float64 {
	if e.Magnitude == nil {
		return 0
	}
	return *e.Magnitude
}

// ViewportBounds is the geographic rectangle and zoom level currently
// visible on the map surface. Updates follow latest-wins: each report
// replaces the prior snapshot wholesale.
type ViewportBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
	Zoom  int     `json:"zoom"`
}

// Contains reports whether c falls within [South,North] × [West,East].
// The antimeridian is not special-cased; see the clustering notes in doc.go.
func (b ViewportBounds) Contains(c Coordinates) bool {
	return c.Lat >= b.South && c.Lat <= b.North &&
		c.Lon >= b.West && c.Lon <= b.East
}

// FetchResult is the outcome of one feed fetch: the floor-filtered,
// magnitude-sorted events truncated to the caller's cap, whether they came
// from cache, and the pre-truncation total.
type FetchResult struct {
	Events    []Event
	FromCache bool
	Total     int
}
