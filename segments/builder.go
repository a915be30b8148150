package segments

import (
	"context"
	"errors"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/osmtrail/lookup"
)

// Builder builds edge tables from relations.
type Builder struct {
	getter SegmentGetter
	opts   Options
	logger *zap.Logger
}

// NewBuilder returns a Builder fetching ways through getter. A nil logger
// disables logging.
func NewBuilder(getter SegmentGetter, opts Options, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Builder{getter: getter, opts: opts, logger: logger}
}

// Build is a convenience wrapper around NewBuilder(...).Build without logging.
func Build(ctx context.Context, getter SegmentGetter, relation *osm.Relation, opts Options) (*Table, error) {
	return NewBuilder(getter, opts, nil).Build(ctx, relation)
}

type fetched struct {
	way   *osm.Way
	ok    bool
	cause error
}

// Build fetches every way member of relation and returns its edge table.
//
// Members with the configured skip role are ignored. Node and relation
// members are not segments and are ignored as well. A way that cannot be
// fetched with a lookup error, or that has fewer than two nodes, is dropped
// and counted in Table.Dropped. Malformed members and context errors abort.
func (b *Builder) Build(ctx context.Context, relation *osm.Relation) (*Table, error) {
	if relation == nil {
		return nil, &MalformedRelationError{Index: -1, Reason: "nil relation"}
	}

	var ids []osm.WayID
	for i, m := range relation.Members {
		if m.Type == "" {
			return nil, &MalformedRelationError{RelationID: relation.ID, Index: i, Reason: "member has no type"}
		}
		if m.Ref <= 0 {
			return nil, &MalformedRelationError{RelationID: relation.ID, Index: i, Reason: "member has no ref"}
		}
		if b.opts.SkipRole != "" && m.Role == b.opts.SkipRole {
			continue
		}
		if m.Type != osm.TypeWay {
			continue
		}
		ids = append(ids, osm.WayID(m.Ref))
	}

	results := make([]fetched, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			w, err := b.getter.GetSegment(gctx, id)
			if err != nil {
				var le *lookup.LookupError
				if errors.As(err, &le) && !isContextErr(err) && gctx.Err() == nil {
					results[i] = fetched{cause: err}
					return nil
				}
				return err
			}
			results[i] = fetched{way: w, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := &Table{
		RelationID: relation.ID,
		Edges:      make([]Edge, 0, len(ids)),
		Points:     make([][]osm.NodeID, 0, len(ids)),
		Expected:   len(ids),
	}
	for i, r := range results {
		if !r.ok {
			t.Dropped++
			b.logger.Warn("dropping relation member",
				zap.Int64("relation", int64(relation.ID)),
				zap.Int64("way", int64(ids[i])),
				zap.Error(r.cause))
			continue
		}
		nodes := r.way.Nodes.NodeIDs()
		if len(nodes) < 2 {
			t.Dropped++
			b.logger.Warn("dropping degenerate way",
				zap.Int64("relation", int64(relation.ID)),
				zap.Int64("way", int64(ids[i])),
				zap.Int("nodes", len(nodes)))
			continue
		}
		t.Edges = append(t.Edges, Edge{
			RelationID: relation.ID,
			WayID:      r.way.ID,
			Begin:      nodes[0],
			End:        nodes[len(nodes)-1],
		})
		t.Points = append(t.Points, nodes)
	}

	if t.Dropped > 0 {
		b.logger.Info("edge table incomplete",
			zap.Int64("relation", int64(relation.ID)),
			zap.Int("expected", t.Expected),
			zap.Int("rows", len(t.Edges)))
	}
	return t, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// WayPoints returns the refs of node members, in member order.
func WayPoints(relation *osm.Relation) []osm.NodeID {
	if relation == nil {
		return nil
	}
	var out []osm.NodeID
	for _, m := range relation.Members {
		if m.Type == osm.TypeNode && m.Ref > 0 {
			out = append(out, osm.NodeID(m.Ref))
		}
	}
	return out
}

// Describe returns the relation's name and source tags.
func Describe(relation *osm.Relation) (Record, error) {
	if relation == nil {
		return Record{}, &MalformedRelationError{Index: -1, Reason: "nil relation"}
	}
	name := relation.Tags.Find("name")
	if name == "" {
		return Record{}, &MalformedRelationError{RelationID: relation.ID, Index: -1, Reason: "missing name tag"}
	}
	return Record{
		RelationID: relation.ID,
		Name:       name,
		Source:     relation.Tags.Find("source"),
	}, nil
}
