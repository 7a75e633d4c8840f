package domain

import "math"

// metersPerDegree scales planar degree distance to an approximate metric
// distance. The approximation distorts near the poles and across the ±180°
// seam, which is acceptable for the visual-only clusters this feeds; swap
// clusterDistanceMeters for a great-circle formula if that ever changes.
const metersPerDegree = 111_000.0

// Cluster is an aggregate of nearby events. A cluster with exactly one
// member renders as a plain point, not a cluster glyph. Clusters are
// recomputed wholesale on every input change, never mutated in place.
type Cluster struct {
	Center       Coordinates `json:"center"`
	Members      []Event     `json:"members"`
	MaxMagnitude float64     `json:"maxMagnitude"`
}

// IsSingleton reports whether the cluster holds a single event.
func (c Cluster) IsSingleton() bool {
	return len(c.Members) == 1
}

// ClusterEvents groups nearby events with a greedy single proximity pass,
// deterministic given the same input order. Events are visited in the given
// (priority-ranked) order; each unclaimed event claims every later unclaimed
// event within the zoom-dependent radius. O(n²) in the event count, which is
// acceptable only because SelectVisible bounds n first.
func ClusterEvents(ranked []Event, zoom int) []Cluster {
	if len(ranked) == 0 {
		return nil
	}

	radius := clusterRadius(zoom)
	claimed := make([]bool, len(ranked))
	clusters := make([]Cluster, 0, len(ranked))

	for i := range ranked {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		members := []Event{ranked[i]}
		for j := i + 1; j < len(ranked); j++ {
			if claimed[j] {
				continue
			}
			if clusterDistanceMeters(ranked[i].Coords, ranked[j].Coords) <= radius {
				claimed[j] = true
				members = append(members, ranked[j])
			}
		}
		clusters = append(clusters, newCluster(members))
	}
	return clusters
}

// clusterRadius returns the grouping distance in approximate meters: wide at
// world view, narrow at street view.
func clusterRadius(zoom int) float64 {
	switch {
	case zoom > 10:
		return 40
	case zoom > 7:
		return 60
	case zoom > 4:
		return 80
	default:
		return 120
	}
}

func clusterDistanceMeters(a, b Coordinates) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon) * metersPerDegree
}

// newCluster builds a cluster from its members. Multi-member clusters center
// on the magnitude-weighted centroid (weight = max(1, magnitude)); a
// singleton keeps its event's own coordinates.
func newCluster(members []Event) Cluster {
	c := Cluster{
		Center:  members[0].Coords,
		Members: members,
	}
	for _, e := range members {
		if m := e.MagnitudeOrZero(); m > c.MaxMagnitude {
			c.MaxMagnitude = m
		}
	}
	if len(members) == 1 {
		return c
	}

	var latSum, lonSum, weightSum float64
	for _, e := range members {
		w := math.Max(1, e.MagnitudeOrZero())
		latSum += e.Coords.Lat * w
		lonSum += e.Coords.Lon * w
		weightSum += w
	}
	c.Center = Coordinates{Lat: latSum / weightSum, Lon: lonSum / weightSum}
	return c
}
