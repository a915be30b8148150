package segments

import (
	"context"
	"fmt"

	"github.com/paulmach/osm"
)

// SegmentGetter fetches ways. *lookup.Lookup satisfies it.
type SegmentGetter interface {
	GetSegment(ctx context.Context, id osm.WayID) (*osm.Way, error)
}

// Edge is one row of the edge table.
type Edge struct {
	RelationID osm.RelationID `json:"relation"`
	WayID      osm.WayID      `json:"way"`
	Begin      osm.NodeID     `json:"begin"`
	End        osm.NodeID     `json:"end"`
}

// Table is the edge table of one relation. Points[i] is the node list of
// Edges[i] in the way's own orientation.
type Table struct {
	RelationID osm.RelationID
	Edges      []Edge
	Points     [][]osm.NodeID

	// Expected counts the way members left after role filtering.
	Expected int
	// Dropped counts way members that could not be tabled.
	Dropped int
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Edges)
}

// Complete reports whether every expected way made it into the table.
func (t *Table) Complete() bool {
	return t != nil && t.Dropped == 0 && len(t.Edges) == t.Expected
}

// Options control table construction.
type Options struct {
	// SkipRole drops members with this role. Empty keeps all members.
	SkipRole string
	// Concurrency bounds parallel way fetches. Values below 1 mean DefaultConcurrency.
	Concurrency int
}

// DefaultConcurrency is used when Options.Concurrency is unset.
const DefaultConcurrency = 8

// Record is the descriptive row stored for a relation.
type Record struct {
	RelationID osm.RelationID `json:"relation"`
	Name       string         `json:"name"`
	Source     string         `json:"source,omitempty"`
}

// MalformedRelationError reports a relation whose members or tags cannot be
// interpreted. It aborts table construction.
type MalformedRelationError struct {
	RelationID osm.RelationID
	// Index is the member position, or -1 when the problem is not a member.
	Index  int
	Reason string
}

func (e *MalformedRelationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("relation %d is malformed: %s", e.RelationID, e.Reason)
	}
	return fmt.Sprintf("relation %d member %d is malformed: %s", e.RelationID, e.Index, e.Reason)
}
