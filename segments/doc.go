// Package segments turns a route relation's member list into an edge table.
//
// This package handles:
// - Filtering members by role (for example "alternative" branches)
// - Fetching each way member through the lookup layer, in parallel
// - Recording each way's first and last node alongside its full node list
// - Dropping members whose way cannot be fetched, while counting them
//
// Rows keep the member order of the relation. Node lists keep the way's native
// orientation; walking direction is decided later by the track package.
package segments
