package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "id": "us7000abcd",
      "properties": {"mag": 4.0, "place": "42 km W of Petrolia, CA", "time": 1714140600000},
      "geometry": {"type": "Point", "coordinates": [-124.6, 40.3, 21.5]}
    },
    {
      "id": "us7000abce",
      "properties": {"mag": 6.2, "place": "south of the Fiji Islands", "time": 1714137000000},
      "geometry": {"type": "Point", "coordinates": [178.1, -24.8, 520.0]}
    },
    {
      "id": "us7000abcf",
      "properties": {"mag": 1.5, "place": "3 km NE of Pahala, Hawaii", "time": 1714143300000},
      "geometry": {"type": "Point", "coordinates": [-155.4, 19.2]}
    },
    {
      "id": "us7000abd0",
      "properties": {"mag": null, "place": "offshore", "time": 1714140000000}
    },
    {
      "properties": {"mag": 2.1, "place": "no id assigned", "time": 1714139000000},
      "geometry": {"type": "Point", "coordinates": [10.0, 45.0, 8.0]}
    }
  ]
}`

func decodeFixture(t *testing.T) []Event {
	t.Helper()
	events, err := DecodeFeed(strings.NewReader(feedFixture))
	require.NoError(t, err)
	return events
}

func TestDecodeFeed_CountMatchesSource(t *testing.T) {
	events := decodeFixture(t)
	// Malformed or partial features are coerced to defaults, never dropped.
	assert.Len(t, events, 5)
}

func TestDecodeFeed_NormalizesFields(t *testing.T) {
	events := decodeFixture(t)

	e := events[0]
	assert.Equal(t, "us7000abcd", e.ID)
	require.NotNil(t, e.Magnitude)
	assert.Equal(t, 4.0, *e.Magnitude)
	assert.Equal(t, "42 km W of Petrolia, CA", e.Place)
	assert.Equal(t, time.UnixMilli(1714140600000).UTC(), e.Time)
	require.NotNil(t, e.Depth)
	assert.Equal(t, 21.5, *e.Depth)
	assert.Equal(t, Coordinates{Lat: 40.3, Lon: -124.6}, e.Coords)
}

func TestDecodeFeed_MissingDepthStaysAbsent(t *testing.T) {
	events := decodeFixture(t)

	// Two-element coordinates: lat/lon set, depth absent.
	e := events[2]
	assert.Equal(t, Coordinates{Lat: 19.2, Lon: -155.4}, e.Coords)
	assert.Nil(t, e.Depth)
}

func TestDecodeFeed_MissingGeometryDefaultsToOrigin(t *testing.T) {
	events := decodeFixture(t)

	e := events[3]
	assert.Equal(t, Coordinates{}, e.Coords)
	assert.Nil(t, e.Magnitude, "absent magnitude must stay absent")
	assert.Equal(t, 0.0, e.MagnitudeOrZero())
}

func TestDecodeFeed_MissingIDIsDeterministic(t *testing.T) {
	first := decodeFixture(t)
	second := decodeFixture(t)

	assert.NotEmpty(t, first[4].ID)
	assert.Equal(t, first[4].ID, second[4].ID, "generated IDs must be stable across decodes")
}

func TestDecodeFeed_InvalidDocument(t *testing.T) {
	_, err := DecodeFeed(strings.NewReader("not-json{{{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed")
}

func TestFilterByMagnitudeFloor(t *testing.T) {
	events := decodeFixture(t)

	kept := FilterByMagnitudeFloor(events, 4.0)
	SortByMagnitude(kept)

	require.Len(t, kept, 2)
	assert.Equal(t, 6.2, kept[0].MagnitudeOrZero())
	assert.Equal(t, 4.0, kept[1].MagnitudeOrZero())
}

func TestFilterByMagnitudeFloor_AbsentMagnitude(t *testing.T) {
	events := decodeFixture(t)

	kept := FilterByMagnitudeFloor(events, 0)
	assert.Len(t, kept, 5, "floor 0 keeps absent magnitudes")

	kept = FilterByMagnitudeFloor(events, 0.1)
	assert.Len(t, kept, 4, "any positive floor excludes absent magnitudes")
}

func TestSortByMagnitude_TruncationCommutes(t *testing.T) {
	events := decodeFixture(t)
	SortByMagnitude(events)

	// Top-K after truncation must equal the top-K of the full sorted set.
	for k := 1; k <= len(events); k++ {
		topK := events[:k]
		for i := 1; i < len(topK); i++ {
			assert.GreaterOrEqual(t, topK[i-1].MagnitudeOrZero(), topK[i].MagnitudeOrZero())
		}
		assert.Equal(t, events[0].MagnitudeOrZero(), 6.2, "most severe event never dropped")
	}
}
