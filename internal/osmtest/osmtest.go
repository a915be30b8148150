// Package osmtest builds small OSM documents and instrumented sources for tests.
package osmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/osm"

	"github.com/theoremus-urban-solutions/osmtrail/osmsource"
)

// Builder accumulates nodes, ways and relations into one document.
type Builder struct {
	doc *osm.OSM
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{doc: &osm.OSM{Version: "0.6"}}
}

// Node adds a node at lat/lon.
func (b *Builder) Node(id int64, lat, lon float64) *Builder {
	b.doc.Nodes = append(b.doc.Nodes, &osm.Node{ID: osm.NodeID(id), Lat: lat, Lon: lon, Visible: true})
	return b
}

// NamedNode adds a node carrying a name tag.
func (b *Builder) NamedNode(id int64, lat, lon float64, name string) *Builder {
	b.doc.Nodes = append(b.doc.Nodes, &osm.Node{
		ID: osm.NodeID(id), Lat: lat, Lon: lon, Visible: true,
		Tags: osm.Tags{{Key: "name", Value: name}},
	})
	return b
}

// Way adds a way over the given node ids, in order.
func (b *Builder) Way(id int64, nodes ...int64) *Builder {
	wn := make(osm.WayNodes, len(nodes))
	for i, n := range nodes {
		wn[i] = osm.WayNode{ID: osm.NodeID(n)}
	}
	b.doc.Ways = append(b.doc.Ways, &osm.Way{ID: osm.WayID(id), Nodes: wn, Visible: true})
	return b
}

// Relation adds a route relation with a name tag and the given members.
func (b *Builder) Relation(id int64, name string, members ...osm.Member) *Builder {
	r := &osm.Relation{
		ID:      osm.RelationID(id),
		Members: members,
		Visible: true,
		Tags:    osm.Tags{{Key: "type", Value: "route"}},
	}
	if name != "" {
		r.Tags = append(r.Tags, osm.Tag{Key: "name", Value: name})
	}
	b.doc.Relations = append(b.doc.Relations, r)
	return b
}

// AutoNodes adds a node for every way node id not yet present, placing them
// on a small diagonal so that coordinates are distinct and deterministic.
func (b *Builder) AutoNodes() *Builder {
	have := map[osm.NodeID]bool{}
	for _, n := range b.doc.Nodes {
		have[n.ID] = true
	}
	for _, w := range b.doc.Ways {
		for _, wn := range w.Nodes {
			if have[wn.ID] {
				continue
			}
			have[wn.ID] = true
			off := float64(wn.ID) * 0.001
			b.Node(int64(wn.ID), 59.0+off, 18.0+off)
		}
	}
	return b
}

// OSM returns the built document.
func (b *Builder) OSM() *osm.OSM { return b.doc }

// Source returns an in-memory source over the built document.
func (b *Builder) Source() *osmsource.FileSource {
	return osmsource.NewFileSourceFromOSM(b.doc)
}

// WayMember is a relation member referencing a way.
func WayMember(id int64, role string) osm.Member {
	return osm.Member{Type: osm.TypeWay, Ref: id, Role: role}
}

// NodeMember is a relation member referencing a node.
func NodeMember(id int64, role string) osm.Member {
	return osm.Member{Type: osm.TypeNode, Ref: id, Role: role}
}

// CountingSource records every call made to the wrapped source and can be
// told to fail specific keys.
type CountingSource struct {
	osmsource.Source

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

// NewCountingSource wraps src.
func NewCountingSource(src osmsource.Source) *CountingSource {
	return &CountingSource{Source: src, calls: map[string]int{}, fail: map[string]error{}}
}

func key(kind string, k any) string { return fmt.Sprintf("%s/%v", kind, k) }

// Fail makes calls for kind/k return err. A nil err clears the failure. kind
// is node, way, relation, relation-name or node-name.
func (c *CountingSource) Fail(kind string, k any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[key(kind, k)] = err
}

// Calls returns how often kind/k was requested.
func (c *CountingSource) Calls(kind string, k any) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key(kind, k)]
}

// Total returns the number of calls of any kind.
func (c *CountingSource) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *CountingSource) record(kind string, k any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[key(kind, k)]++
	return c.fail[key(kind, k)]
}

func (c *CountingSource) Node(ctx context.Context, id osm.NodeID) (*osm.Node, error) {
	if err := c.record("node", int64(id)); err != nil {
		return nil, err
	}
	return c.Source.Node(ctx, id)
}

func (c *CountingSource) Way(ctx context.Context, id osm.WayID) (*osm.Way, error) {
	if err := c.record("way", int64(id)); err != nil {
		return nil, err
	}
	return c.Source.Way(ctx, id)
}

func (c *CountingSource) Relation(ctx context.Context, id osm.RelationID) (*osm.Relation, error) {
	if err := c.record("relation", int64(id)); err != nil {
		return nil, err
	}
	return c.Source.Relation(ctx, id)
}

func (c *CountingSource) RelationsByName(ctx context.Context, name string) (osm.Relations, error) {
	if err := c.record("relation-name", name); err != nil {
		return nil, err
	}
	return c.Source.RelationsByName(ctx, name)
}

func (c *CountingSource) NodesByName(ctx context.Context, name string) (osm.Nodes, error) {
	if err := c.record("node-name", name); err != nil {
		return nil, err
	}
	return c.Source.NodesByName(ctx, name)
}
