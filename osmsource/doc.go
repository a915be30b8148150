// Package osmsource reads nodes, ways and relations from a remote mapping
// data source.
//
// Two implementations of Source are provided:
//   - Client: the OpenStreetMap API v0.6 for reads by id and the Overpass API
//     for reads by name
//   - FileSource: an in-memory index over a local .osm XML extract, useful for
//     offline runs and tests
//
// Neither implementation caches or retries; wrap a Source in lookup.Lookup for
// memoization.
package osmsource
