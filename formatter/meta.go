package formatter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Format names an export format.
type Format string

const (
	FormatGPX     Format = "gpx"
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// ParseFormat accepts a format name, case insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatGPX, FormatGeoJSON, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want gpx, geojson, json or csv)", s)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatGeoJSON:
		return "application/geo+json"
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	}
	return "application/octet-stream"
}

// Waypoint is a named point exported next to the track.
type Waypoint struct {
	NodeID osm.NodeID
	Name   string
	Point  orb.Point
}

// Meta describes the exported track.
type Meta struct {
	RelationID osm.RelationID
	Name       string
	Source     string
	Start      osm.NodeID
	// Link is an optional viewer URL for the relation.
	Link      string
	Time      string
	Waypoints []Waypoint
}

// FileName returns <dir>/<relationID>-<slug of name>.<ext>.
func FileName(dir string, relationID osm.RelationID, name, ext string) string {
	slug := slugify(name)
	base := strconv.FormatInt(int64(relationID), 10)
	if slug != "" {
		base += "-" + slug
	}
	return filepath.Join(dir, base+"."+strings.TrimPrefix(ext, "."))
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
