package osmtrail

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/osm"

	"github.com/theoremus-urban-solutions/osmtrail/formatter"
	"github.com/theoremus-urban-solutions/osmtrail/lookup"
	"github.com/theoremus-urban-solutions/osmtrail/segments"
	"github.com/theoremus-urban-solutions/osmtrail/storage"
	"github.com/theoremus-urban-solutions/osmtrail/track"
)

// QueryError is a problem with the caller's input.
type QueryError struct{ Msg string }

func (e *QueryError) Error() string { return e.Msg }

func parsePositiveID(name, s string) (int64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, &QueryError{Msg: name + " must be a positive integer."}
	}
	return v, nil
}

func parseRelationID(s string) (osm.RelationID, error) {
	v, err := parsePositiveID("relation id", s)
	return osm.RelationID(v), err
}

// parseStart accepts an empty value, meaning the start is resolved later.
func parseStart(s string) (osm.NodeID, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	v, err := parsePositiveID("start", s)
	return osm.NodeID(v), err
}

// parseExportFile maps the last path element to an export format.
func parseExportFile(file string) (formatter.Format, error) {
	switch file {
	case "track.gpx":
		return formatter.FormatGPX, nil
	case "track.geojson":
		return formatter.FormatGeoJSON, nil
	case "track.json":
		return formatter.FormatJSON, nil
	case "edges.csv":
		return formatter.FormatCSV, nil
	}
	return "", &QueryError{Msg: "No such export: " + file}
}

// errorKind classifies err and picks the HTTP status for it.
func errorKind(err error) (string, int) {
	var (
		qe *QueryError
		me *segments.MalformedRelationError
		be *track.BranchError
		le *lookup.LookupError
	)
	switch {
	case errors.As(err, &qe):
		return "query", http.StatusBadRequest
	case errors.Is(err, lookup.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.As(err, &me):
		return "malformed_relation", http.StatusUnprocessableEntity
	case errors.As(err, &be):
		return "branching_relation", http.StatusUnprocessableEntity
	case errors.As(err, &le):
		return "upstream", http.StatusBadGateway
	}
	return "internal", http.StatusInternalServerError
}

func buildErrorPayload(kind, msg string) []byte {
	type errorPayload struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	b, _ := json.Marshal(errorPayload{Error: msg, Kind: kind})
	return b
}
