package osmsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/paulmach/osm"
)

// FileSource serves elements from an OSM XML document held in memory.
// It is safe for concurrent reads once constructed.
type FileSource struct {
	nodes     map[osm.NodeID]*osm.Node
	ways      map[osm.WayID]*osm.Way
	relations map[osm.RelationID]*osm.Relation
	// document order, for name queries
	nodeOrder     []osm.NodeID
	relationOrder []osm.RelationID
}

var _ Source = (*FileSource)(nil)

// NewFileSource loads an .osm XML extract from path.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return NewFileSourceFromReader(f)
}

// NewFileSourceFromReader loads an OSM XML document from r.
func NewFileSourceFromReader(r io.Reader) (*FileSource, error) {
	o, err := decodeOSM(r)
	if err != nil {
		return nil, err
	}
	return NewFileSourceFromOSM(o), nil
}

// NewFileSourceFromOSM indexes an already decoded document.
func NewFileSourceFromOSM(o *osm.OSM) *FileSource {
	fs := &FileSource{
		nodes:     make(map[osm.NodeID]*osm.Node, len(o.Nodes)),
		ways:      make(map[osm.WayID]*osm.Way, len(o.Ways)),
		relations: make(map[osm.RelationID]*osm.Relation, len(o.Relations)),
	}
	for _, n := range o.Nodes {
		if _, dup := fs.nodes[n.ID]; !dup {
			fs.nodeOrder = append(fs.nodeOrder, n.ID)
		}
		fs.nodes[n.ID] = n
	}
	for _, w := range o.Ways {
		fs.ways[w.ID] = w
	}
	for _, r := range o.Relations {
		if _, dup := fs.relations[r.ID]; !dup {
			fs.relationOrder = append(fs.relationOrder, r.ID)
		}
		fs.relations[r.ID] = r
	}
	return fs
}

func (fs *FileSource) Node(ctx context.Context, id osm.NodeID) (*osm.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n, ok := fs.nodes[id]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
}

func (fs *FileSource) Way(ctx context.Context, id osm.WayID) (*osm.Way, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w, ok := fs.ways[id]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("way %d: %w", id, ErrNotFound)
}

func (fs *FileSource) Relation(ctx context.Context, id osm.RelationID) (*osm.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r, ok := fs.relations[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("relation %d: %w", id, ErrNotFound)
}

func (fs *FileSource) RelationsByName(ctx context.Context, name string) (osm.Relations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("relation name pattern: %w", err)
	}
	var out osm.Relations
	for _, id := range fs.relationOrder {
		r := fs.relations[id]
		if n := r.Tags.Find("name"); n != "" && re.MatchString(n) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("relation named %q: %w", name, ErrNotFound)
	}
	return out, nil
}

func (fs *FileSource) NodesByName(ctx context.Context, name string) (osm.Nodes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out osm.Nodes
	for _, id := range fs.nodeOrder {
		if name == "" {
			break
		}
		n := fs.nodes[id]
		if n.Tags.Find("name") == name {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("node named %q: %w", name, ErrNotFound)
	}
	return out, nil
}
