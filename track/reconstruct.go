package track

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/osm"

	"github.com/theoremus-urban-solutions/osmtrail/segments"
)

type match struct {
	row      int
	reversed bool
}

// next finds the row that extends the walk at current.
func next(edges []segments.Edge, current osm.NodeID, used map[osm.WayID]bool) (match, bool) {
	for i, e := range edges {
		if e.Begin == current && !used[e.WayID] {
			return match{row: i}, true
		}
	}
	for i, e := range edges {
		if e.End == current && !used[e.WayID] {
			return match{row: i, reversed: true}, true
		}
	}
	return match{}, false
}

// Reconstruct walks table from start and returns the visited node ids.
// A junction node shared by consecutive ways appears once. An empty or nil
// table yields just start.
func Reconstruct(table *segments.Table, start osm.NodeID) []osm.NodeID {
	out := []osm.NodeID{start}
	if table.Len() == 0 {
		return out
	}

	used := make(map[osm.WayID]bool, len(table.Edges))
	current := start
	for {
		m, ok := next(table.Edges, current, used)
		if !ok {
			return out
		}
		pts := table.Points[m.row]
		if m.reversed {
			for i := len(pts) - 2; i >= 0; i-- {
				out = append(out, pts[i])
			}
			current = pts[0]
		} else {
			out = append(out, pts[1:]...)
			current = pts[len(pts)-1]
		}
		used[table.Edges[m.row].WayID] = true

		if current == start {
			return out
		}
	}
}

// BranchError lists nodes where the relation branches.
type BranchError struct {
	RelationID osm.RelationID
	Junctions  []osm.NodeID
}

func (e *BranchError) Error() string {
	ids := make([]string, len(e.Junctions))
	for i, id := range e.Junctions {
		ids[i] = fmt.Sprint(int64(id))
	}
	return fmt.Sprintf("relation %d branches at node(s) %s", e.RelationID, strings.Join(ids, ", "))
}

// CheckLinear returns a *BranchError when any node is an endpoint of three
// or more distinct ways, since the walk would then have to choose.
func CheckLinear(table *segments.Table) error {
	if table.Len() == 0 {
		return nil
	}
	degree := map[osm.NodeID]int{}
	seen := map[osm.WayID]bool{}
	for _, e := range table.Edges {
		if seen[e.WayID] {
			continue
		}
		seen[e.WayID] = true
		degree[e.Begin]++
		degree[e.End]++
	}
	var junctions []osm.NodeID
	for id, d := range degree {
		if d >= 3 {
			junctions = append(junctions, id)
		}
	}
	if len(junctions) == 0 {
		return nil
	}
	sort.Slice(junctions, func(i, j int) bool { return junctions[i] < junctions[j] })
	return &BranchError{RelationID: table.RelationID, Junctions: junctions}
}
