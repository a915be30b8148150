// Package utils provides small helpers shared by the exporters, the HTTP
// handlers and the CLI.
//
// It contains:
//   - openstreetmap.org viewer links for nodes, ways, relations and areas
//   - Length formatting for track summaries
//   - Time formatting
package utils
