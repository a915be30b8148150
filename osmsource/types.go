package osmsource

import (
	"context"
	"errors"

	"github.com/paulmach/osm"
)

// ErrNotFound is returned (wrapped) when the source has no element for a key.
var ErrNotFound = errors.New("osm element not found")

// Source is read access to points (nodes), segments (ways) and relations.
type Source interface {
	Node(ctx context.Context, id osm.NodeID) (*osm.Node, error)
	Way(ctx context.Context, id osm.WayID) (*osm.Way, error)
	Relation(ctx context.Context, id osm.RelationID) (*osm.Relation, error)
	// RelationsByName matches the name tag as a regular expression.
	RelationsByName(ctx context.Context, name string) (osm.Relations, error)
	// NodesByName matches the name tag exactly.
	NodesByName(ctx context.Context, name string) (osm.Nodes, error)
}
