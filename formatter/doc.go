// Package formatter serializes reconstructed tracks and edge tables.
//
// This package is organized into:
// - meta.go: Track metadata, output formats and file naming
// - gpx.go: GPX 1.1 serialization with proper escaping
// - geojson.go: GeoJSON feature collections
// - json.go: Plain JSON point lists
// - csv.go: Edge and node tables as CSV
//
// GPX is written by hand for precise control over the output.
package formatter
