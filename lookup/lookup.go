package lookup

import (
	"context"
	"strconv"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/osmtrail/config"
	"github.com/theoremus-urban-solutions/osmtrail/osmsource"
)

// Sizes bounds each cache. Relations see little reuse compared with the
// nodes and ways of the tracks built from them.
type Sizes struct {
	Nodes         int
	NodeNames     int
	Ways          int
	Relations     int
	RelationNames int
}

// DefaultSizes are the bounds used when none are configured.
var DefaultSizes = Sizes{Nodes: 4096, NodeNames: 4096, Ways: 2048, Relations: 128, RelationNames: 128}

// SizesFromConfig converts the cache section of the configuration.
func SizesFromConfig(c config.CacheConfig) Sizes {
	return Sizes{
		Nodes:         c.Nodes,
		NodeNames:     c.NodeNames,
		Ways:          c.Ways,
		Relations:     c.Relations,
		RelationNames: c.RelationNames,
	}
}

// Stats holds the counters of every cache in a Lookup.
type Stats struct {
	Nodes         CacheStats `json:"nodes"`
	NodeNames     CacheStats `json:"node_names"`
	Ways          CacheStats `json:"ways"`
	Relations     CacheStats `json:"relations"`
	RelationNames CacheStats `json:"relation_names"`
}

// Lookup memoizes point, segment and relation reads from a Source.
// It is safe for concurrent use.
type Lookup struct {
	source osmsource.Source
	logger *zap.Logger

	nodes         *Cache[osm.NodeID, *osm.Node]
	nodeNames     *Cache[string, osm.Nodes]
	ways          *Cache[osm.WayID, *osm.Way]
	relations     *Cache[osm.RelationID, *osm.Relation]
	relationNames *Cache[string, osm.Relations]
}

// Option configures a Lookup.
type Option func(*Lookup)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(lk *Lookup) {
		if l != nil {
			lk.logger = l
		}
	}
}

// New wraps source with caches bounded by sizes.
func New(source osmsource.Source, sizes Sizes, opts ...Option) *Lookup {
	lk := &Lookup{
		source:        source,
		logger:        zap.NewNop(),
		nodes:         NewCache[osm.NodeID, *osm.Node]("nodes", sizes.Nodes),
		nodeNames:     NewCache[string, osm.Nodes]("node_names", sizes.NodeNames),
		ways:          NewCache[osm.WayID, *osm.Way]("ways", sizes.Ways),
		relations:     NewCache[osm.RelationID, *osm.Relation]("relations", sizes.Relations),
		relationNames: NewCache[string, osm.Relations]("relation_names", sizes.RelationNames),
	}
	for _, o := range opts {
		o(lk)
	}
	return lk
}

// GetPoint returns the node with the given id.
func (lk *Lookup) GetPoint(ctx context.Context, id osm.NodeID) (*osm.Node, error) {
	return lk.nodes.Get(ctx, id, func(ctx context.Context, id osm.NodeID) (*osm.Node, error) {
		n, err := lk.source.Node(ctx, id)
		if err == nil && n == nil {
			err = ErrNotFound
		}
		return n, lk.wrap(KindNode, strconv.FormatInt(int64(id), 10), err)
	})
}

// GetPointsByName returns the nodes whose name tag equals name.
func (lk *Lookup) GetPointsByName(ctx context.Context, name string) (osm.Nodes, error) {
	return lk.nodeNames.Get(ctx, name, func(ctx context.Context, name string) (osm.Nodes, error) {
		ns, err := lk.source.NodesByName(ctx, name)
		if err == nil && len(ns) == 0 {
			err = ErrNotFound
		}
		return ns, lk.wrap(KindNodeName, strconv.Quote(name), err)
	})
}

// GetSegment returns the way with the given id.
func (lk *Lookup) GetSegment(ctx context.Context, id osm.WayID) (*osm.Way, error) {
	return lk.ways.Get(ctx, id, func(ctx context.Context, id osm.WayID) (*osm.Way, error) {
		w, err := lk.source.Way(ctx, id)
		if err == nil && w == nil {
			err = ErrNotFound
		}
		return w, lk.wrap(KindWay, strconv.FormatInt(int64(id), 10), err)
	})
}

// GetRelationByID returns the relation with the given id.
func (lk *Lookup) GetRelationByID(ctx context.Context, id osm.RelationID) (*osm.Relation, error) {
	return lk.relations.Get(ctx, id, func(ctx context.Context, id osm.RelationID) (*osm.Relation, error) {
		r, err := lk.source.Relation(ctx, id)
		if err == nil && r == nil {
			err = ErrNotFound
		}
		return r, lk.wrap(KindRelation, strconv.FormatInt(int64(id), 10), err)
	})
}

// GetRelationByName returns the relations whose name tag matches name.
func (lk *Lookup) GetRelationByName(ctx context.Context, name string) (osm.Relations, error) {
	return lk.relationNames.Get(ctx, name, func(ctx context.Context, name string) (osm.Relations, error) {
		rs, err := lk.source.RelationsByName(ctx, name)
		if err == nil && len(rs) == 0 {
			err = ErrNotFound
		}
		return rs, lk.wrap(KindRelationName, strconv.Quote(name), err)
	})
}

// Stats returns the counters of every cache.
func (lk *Lookup) Stats() Stats {
	return Stats{
		Nodes:         lk.nodes.Stats(),
		NodeNames:     lk.nodeNames.Stats(),
		Ways:          lk.ways.Stats(),
		Relations:     lk.relations.Stats(),
		RelationNames: lk.relationNames.Stats(),
	}
}

// Purge empties every cache.
func (lk *Lookup) Purge() {
	lk.nodes.Purge()
	lk.nodeNames.Purge()
	lk.ways.Purge()
	lk.relations.Purge()
	lk.relationNames.Purge()
}

func (lk *Lookup) wrap(kind Kind, key string, err error) error {
	if err == nil {
		return nil
	}
	lk.logger.Debug("lookup failed",
		zap.String("kind", string(kind)),
		zap.String("key", key),
		zap.Error(err))
	return &LookupError{Kind: kind, Key: key, Err: err}
}
