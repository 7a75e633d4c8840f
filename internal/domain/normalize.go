package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Feed document types mirroring the USGS GeoJSON summary shape.

type feedDocument struct {
	Features []feedFeature `json:"features"`
}

type feedFeature struct {
	ID         string         `json:"id"`
	Properties feedProperties `json:"properties"`
	Geometry   *feedGeometry  `json:"geometry"`
}

type feedProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
}

type feedGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depthKm]
}

// DecodeFeed parses a USGS GeoJSON summary document into normalized events.
// Individual features never fail normalization: a missing magnitude or
// geometry yields defaulted fields rather than dropping the record, so
// counts stay consistent with the source feed.
func DecodeFeed(r io.Reader) ([]Event, error) {
	var doc feedDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	events := make([]Event, 0, len(doc.Features))
	for _, f := range doc.Features {
		events = append(events, normalizeFeature(f))
	}
	return events, nil
}

// normalizeFeature flattens one feed feature into an Event. Coords are
// always set (origin when geometry is missing or malformed) so viewport
// math never fails on a missing field.
func normalizeFeature(f feedFeature) Event {
	e := Event{
		ID:        f.ID,
		Magnitude: f.Properties.Mag,
		Place:     f.Properties.Place,
	}

	if f.Properties.Time != 0 {
		e.Time = time.UnixMilli(f.Properties.Time).UTC()
	}

	if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
		e.Coords = Coordinates{
			Lat: f.Geometry.Coordinates[1],
			Lon: f.Geometry.Coordinates[0],
		}
		if len(f.Geometry.Coordinates) >= 3 {
			depth := f.Geometry.Coordinates[2]
			e.Depth = &depth
		}
	}

	if e.ID == "" {
		e.ID = generateID(f.Properties.Time, e.Coords, e.MagnitudeOrZero())
	}
	return e
}

// generateID produces a deterministic ID from the event's key fields, used
// when the feed omits one. Reprocessing the same document yields the same ID.
func generateID(epochMillis int64, c Coordinates, magnitude float64) string {
	input := fmt.Sprintf("%d|%.4f|%.4f|%g", epochMillis, c.Lat, c.Lon, magnitude)
	hash := sha256.Sum256([]byte(input))
	return "ev-" + hex.EncodeToString(hash[:8])
}

// FilterByMagnitudeFloor keeps events whose magnitude is at or above floor.
// Absent magnitudes compare as 0, so they survive only a floor of 0 or less.
func FilterByMagnitudeFloor(events []Event, floor float64) []Event {
	kept := make([]Event, 0, len(events))
	for _, e := range events {
		if e.MagnitudeOrZero() >= floor {
			kept = append(kept, e)
		}
	}
	return kept
}

// SortByMagnitude orders events by magnitude descending, in place and stable
// for ties, so a later truncation never drops the most severe events.
func SortByMagnitude(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].MagnitudeOrZero() > events[j].MagnitudeOrZero()
	})
}
