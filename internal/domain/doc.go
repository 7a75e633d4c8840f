// Package domain models USGS earthquake feed data and the pure selection
// and clustering logic applied to it before rendering.
//
// # Data Source
//
// Events originate from the USGS real-time GeoJSON summary feeds, available
// at https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/. Each time
// range maps to one fixed feed document (all_day, all_week, all_month); the
// document is a GeoJSON FeatureCollection with one feature per event.
//
// # Feed Conventions
//
// Feature shape:
//
//	properties.mag    magnitude, may be null for unreviewed events
//	properties.place  human-readable label, e.g. "12 km SSW of Ridgecrest, CA"
//	properties.time   event time in epoch milliseconds UTC
//	geometry.coordinates = [lon, lat, depthKm]; geometry may be absent
//
// Normalization never drops a feature: a missing magnitude or depth stays
// absent (nil) so the display layer can show "unknown", and missing geometry
// defaults to the origin so viewport math never sees a hole. This keeps
// event counts consistent with the source document.
//
// # ID Generation
//
// Features usually carry a feed-assigned id. When they do not, a
// deterministic SHA-256 hash of time|lat|lon|mag stands in, so reprocessing
// the same document always yields the same IDs. See [generateID].
//
// # Selection and Clustering
//
// [SelectVisible] and [ClusterEvents] are pure functions over the snapshots
// they are given; they hold no state and are safe to call repeatedly with
// the same inputs. They are designed to run in series: clustering is a
// greedy O(n²) pass whose n is bounded by the render cap SelectVisible
// applies first.
package domain
