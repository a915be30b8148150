package track

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"golang.org/x/sync/errgroup"
)

// PointGetter fetches nodes. *lookup.Lookup satisfies it.
type PointGetter interface {
	GetPoint(ctx context.Context, id osm.NodeID) (*osm.Node, error)
}

// Coordinates resolves points to a line, in walk order. Any failed lookup
// fails the whole call.
func Coordinates(ctx context.Context, getter PointGetter, points []osm.NodeID, concurrency int) (orb.LineString, error) {
	if concurrency < 1 {
		concurrency = 8
	}
	line := make(orb.LineString, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range points {
		g.Go(func() error {
			n, err := getter.GetPoint(gctx, id)
			if err != nil {
				return err
			}
			line[i] = n.Point()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return line, nil
}

// Summary describes a reconstructed track.
type Summary struct {
	Points   int       `json:"points"`
	LengthKM float64   `json:"length_km"`
	Bound    orb.Bound `json:"-"`
	Closed   bool      `json:"closed"`
}

// Summarize computes the point count, haversine length and bounding box.
func Summarize(points []osm.NodeID, line orb.LineString) Summary {
	s := Summary{
		Points: len(points),
		Closed: len(points) > 1 && points[0] == points[len(points)-1],
	}
	if len(line) == 0 {
		return s
	}
	s.LengthKM = geo.LengthHaversine(line) / 1000
	s.Bound = line.Bound()
	return s
}
