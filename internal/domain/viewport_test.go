package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(id string, mag float64, lat, lon float64, at time.Time) Event {
	return Event{
		ID:        id,
		Magnitude: &mag,
		Time:      at,
		Coords:    Coordinates{Lat: lat, Lon: lon},
	}
}

func TestSelectVisible_NilBoundsKeepsEverything(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		testEvent("a", 5.0, 10, 20, base),
		testEvent("b", 3.0, -40, 170, base),
	}

	visible, stats := SelectVisible(events, nil, ModeBalanced)
	assert.Len(t, visible, 2)
	assert.Equal(t, SelectionStats{Total: 2, Visible: 2, Rendered: 2}, stats)
}

func TestSelectVisible_FiltersToBounds(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	bounds := &ViewportBounds{North: 50, South: 0, East: 180, West: 0, Zoom: 4}

	events := []Event{
		testEvent("inside", 2.0, 25, 100, base),
		// High magnitude does not rescue an event outside the rectangle.
		testEvent("western", 8.5, 25, -120, base),
		testEvent("too-far-north", 6.0, 60, 100, base),
	}

	visible, stats := SelectVisible(events, bounds, ModeBalanced)
	require.Len(t, visible, 1)
	assert.Equal(t, "inside", visible[0].ID)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Visible)
}

func TestSelectVisible_RanksByMagnitudeThenRecency(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		testEvent("older-stronger", 5.3, 10, 10, base),
		testEvent("newer-weaker", 5.0, 10, 11, base.Add(time.Hour)),
		testEvent("clearly-bigger", 6.5, 10, 12, base.Add(-time.Hour)),
	}

	visible, _ := SelectVisible(events, nil, ModeBalanced)
	require.Len(t, visible, 3)
	// 6.5 beats both outright; 5.3 vs 5.0 is within the 0.5 tie band, so
	// the newer event wins.
	assert.Equal(t, "clearly-bigger", visible[0].ID)
	assert.Equal(t, "newer-weaker", visible[1].ID)
	assert.Equal(t, "older-stronger", visible[2].ID)
}

func TestSelectVisible_CapsAndReportsCulled(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := make([]Event, 0, 150)
	for i := 0; i < 150; i++ {
		events = append(events, testEvent(fmt.Sprintf("e%d", i), float64(i%9), float64(i%80), float64(i%170), base))
	}

	// Zoom 0 world view in balanced mode caps at 100.
	visible, stats := SelectVisible(events, &ViewportBounds{North: 90, South: -90, East: 180, West: -180, Zoom: 0}, ModeBalanced)
	assert.Len(t, visible, 100)
	assert.Equal(t, 150, stats.Visible)
	assert.Equal(t, 50, stats.Culled)
	assert.Equal(t, 100, stats.Rendered)
}

func TestRenderCap_Tiers(t *testing.T) {
	tests := []struct {
		zoom int
		mode PerformanceMode
		want int
	}{
		{zoom: 9, mode: ModeBalanced, want: 1000},
		{zoom: 8, mode: ModeBalanced, want: 1000},
		{zoom: 6, mode: ModeBalanced, want: 500},
		{zoom: 4, mode: ModeBalanced, want: 250},
		{zoom: 2, mode: ModeBalanced, want: 100},
		{zoom: 8, mode: ModeHighQuality, want: 2000},
		{zoom: 2, mode: ModeHighQuality, want: 200},
		{zoom: 8, mode: ModePerformance, want: 750},
		{zoom: 2, mode: ModePerformance, want: 75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderCap(tt.zoom, tt.mode), "zoom=%d mode=%s", tt.zoom, tt.mode)
	}
}

func TestSelectVisible_Idempotent(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		testEvent("a", 5.0, 10, 20, base),
		testEvent("b", 5.2, 11, 21, base.Add(time.Minute)),
		testEvent("c", 2.0, -5, 30, base),
	}
	bounds := &ViewportBounds{North: 20, South: 0, East: 40, West: 0, Zoom: 6}

	first, firstStats := SelectVisible(events, bounds, ModeBalanced)
	second, secondStats := SelectVisible(events, bounds, ModeBalanced)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)

	// The input order is untouched.
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Equal(t, "c", events[2].ID)
}
