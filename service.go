package osmtrail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/osmtrail/config"
	"github.com/theoremus-urban-solutions/osmtrail/formatter"
	"github.com/theoremus-urban-solutions/osmtrail/lookup"
	"github.com/theoremus-urban-solutions/osmtrail/osmsource"
	"github.com/theoremus-urban-solutions/osmtrail/segments"
	"github.com/theoremus-urban-solutions/osmtrail/storage"
	"github.com/theoremus-urban-solutions/osmtrail/track"
	"github.com/theoremus-urban-solutions/osmtrail/utils"
)

// ErrNoStore is returned by persistence operations on a Service without a store.
var ErrNoStore = errors.New("no storage configured")

// Service runs the relation to track pipeline.
type Service struct {
	Lookup *lookup.Lookup
	Store  *storage.Store
	Cfg    config.AppConfig
	Logger *zap.Logger

	builder *segments.Builder
	exports *ExportCache
}

// NewService wires a Service over source. store may be nil.
func NewService(cfg config.AppConfig, source osmsource.Source, store *storage.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	lk := lookup.New(source, lookup.SizesFromConfig(cfg.Cache), lookup.WithLogger(logger.Named("lookup")))
	s := &Service{
		Lookup: lk,
		Store:  store,
		Cfg:    cfg,
		Logger: logger,
		builder: segments.NewBuilder(lk, segments.Options{
			SkipRole:    cfg.Relations.RoleFilter(),
			Concurrency: cfg.Relations.Concurrency,
		}, logger.Named("segments")),
	}
	s.exports = NewExportCache(s, cfg.Cache.Relations)
	return s
}

// TrackResult is everything known about one reconstructed track.
type TrackResult struct {
	Record  segments.Record
	Table   *segments.Table
	Start   osm.NodeID
	Points  []osm.NodeID
	Line    orb.LineString
	Summary track.Summary
}

// Relation fetches a relation and its descriptive record.
func (s *Service) Relation(ctx context.Context, relationID osm.RelationID) (*osm.Relation, segments.Record, error) {
	rel, err := s.Lookup.GetRelationByID(ctx, relationID)
	if err != nil {
		return nil, segments.Record{}, err
	}
	rec, err := segments.Describe(rel)
	if err != nil {
		return nil, segments.Record{}, err
	}
	return rel, rec, nil
}

// EdgeTable builds the edge table of a relation.
func (s *Service) EdgeTable(ctx context.Context, relationID osm.RelationID) (*segments.Table, segments.Record, error) {
	rel, rec, err := s.Relation(ctx, relationID)
	if err != nil {
		return nil, segments.Record{}, err
	}
	table, err := s.builder.Build(ctx, rel)
	if err != nil {
		return nil, segments.Record{}, err
	}
	return table, rec, nil
}

// ResolveStart picks the start node when none is given: the start of a
// configured trail for the relation, else the relation's first node member.
func (s *Service) ResolveStart(ctx context.Context, relationID osm.RelationID, start osm.NodeID) (osm.NodeID, error) {
	if start > 0 {
		return start, nil
	}
	for _, t := range s.Cfg.Trails {
		if osm.RelationID(t.Relation) == relationID {
			return osm.NodeID(t.Start), nil
		}
	}
	rel, err := s.Lookup.GetRelationByID(ctx, relationID)
	if err != nil {
		return 0, err
	}
	if wps := segments.WayPoints(rel); len(wps) > 0 {
		return wps[0], nil
	}
	return 0, &QueryError{Msg: fmt.Sprintf("relation %d has no configured or tagged start node; pass a start node", relationID)}
}

// StartByName returns the id of the single node named name.
func (s *Service) StartByName(ctx context.Context, name string) (osm.NodeID, error) {
	nodes, err := s.Lookup.GetPointsByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(nodes) > 1 {
		s.Logger.Warn("several nodes share the start name, using the first",
			zap.String("name", name), zap.Int("count", len(nodes)))
	}
	return nodes[0].ID, nil
}

// Track builds the edge table of a relation and walks it from start.
func (s *Service) Track(ctx context.Context, relationID osm.RelationID, start osm.NodeID) (*TrackResult, error) {
	start, err := s.ResolveStart(ctx, relationID, start)
	if err != nil {
		return nil, err
	}
	table, rec, err := s.EdgeTable(ctx, relationID)
	if err != nil {
		return nil, err
	}
	if s.Cfg.Relations.StrictLinear {
		if err := track.CheckLinear(table); err != nil {
			return nil, err
		}
	}

	points := track.Reconstruct(table, start)
	if len(points) == 1 && table.Len() > 0 {
		s.Logger.Warn("start node touches no way of the relation",
			zap.Int64("relation", int64(relationID)),
			zap.Int64("start", int64(start)))
	}
	line, err := track.Coordinates(ctx, s.Lookup, points, s.Cfg.Relations.Concurrency)
	if err != nil {
		return nil, err
	}
	summary := track.Summarize(points, line)

	s.Logger.Info("track reconstructed",
		zap.Int64("relation", int64(relationID)),
		zap.String("name", rec.Name),
		zap.Int("ways", table.Len()),
		zap.Int("dropped", table.Dropped),
		zap.Int("points", summary.Points),
		zap.Float64("length_km", summary.LengthKM))

	return &TrackResult{
		Record:  rec,
		Table:   table,
		Start:   start,
		Points:  points,
		Line:    line,
		Summary: summary,
	}, nil
}

// Meta returns the export metadata of a result, resolving waypoint names
// and coordinates through the lookup layer.
func (s *Service) Meta(ctx context.Context, res *TrackResult) formatter.Meta {
	meta := formatter.Meta{
		RelationID: res.Record.RelationID,
		Name:       res.Record.Name,
		Source:     res.Record.Source,
		Start:      res.Start,
		Time:       utils.Iso8601Now(),
	}
	if link, err := utils.RelationURL(res.Record.RelationID, s.Cfg.Export.Layer); err == nil {
		meta.Link = link
	}
	rel, err := s.Lookup.GetRelationByID(ctx, res.Record.RelationID)
	if err != nil {
		return meta
	}
	for _, id := range segments.WayPoints(rel) {
		n, err := s.Lookup.GetPoint(ctx, id)
		if err != nil {
			s.Logger.Debug("skipping waypoint", zap.Int64("node", int64(id)), zap.Error(err))
			continue
		}
		meta.Waypoints = append(meta.Waypoints, formatter.Waypoint{
			NodeID: id,
			Name:   n.Tags.Find("name"),
			Point:  n.Point(),
		})
	}
	return meta
}

// Export renders a track in the given format. Results are memoized per
// relation, start and format, unless members were dropped from the table.
func (s *Service) Export(ctx context.Context, relationID osm.RelationID, start osm.NodeID, format formatter.Format) ([]byte, error) {
	start, err := s.ResolveStart(ctx, relationID, start)
	if err != nil {
		return nil, err
	}
	return s.exports.Get(ctx, relationID, start, format)
}

// render builds an export. complete is false when the edge table dropped
// members; such exports are returned but not memoized.
func (s *Service) render(ctx context.Context, relationID osm.RelationID, start osm.NodeID, format formatter.Format) (buf []byte, complete bool, err error) {
	if format == formatter.FormatCSV {
		table, _, err := s.EdgeTable(ctx, relationID)
		if err != nil {
			return nil, false, err
		}
		var b bytes.Buffer
		if err := formatter.WriteEdgesCSV(&b, table); err != nil {
			return nil, false, err
		}
		return b.Bytes(), table.Complete(), nil
	}

	res, err := s.Track(ctx, relationID, start)
	if err != nil {
		return nil, false, err
	}
	buf, err = s.Render(ctx, res, format)
	if err != nil {
		return nil, false, err
	}
	return buf, res.Table.Complete(), nil
}

// Render serializes an already reconstructed track. CSV renders the edge table.
func (s *Service) Render(ctx context.Context, res *TrackResult, format formatter.Format) ([]byte, error) {
	switch format {
	case formatter.FormatCSV:
		var b bytes.Buffer
		if err := formatter.WriteEdgesCSV(&b, res.Table); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case formatter.FormatGPX:
		return formatter.BuildGPX(s.Meta(ctx, res), res.Line), nil
	case formatter.FormatGeoJSON:
		return formatter.BuildGeoJSON(s.Meta(ctx, res), res.Line)
	case formatter.FormatJSON:
		return formatter.BuildJSON(s.Meta(ctx, res), res.Points)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Persist saves the relation's edge table and its reconstructed track.
func (s *Service) Persist(ctx context.Context, relationID osm.RelationID, start osm.NodeID) (string, *TrackResult, error) {
	if s.Store == nil {
		return "", nil, ErrNoStore
	}
	res, err := s.Track(ctx, relationID, start)
	if err != nil {
		return "", nil, err
	}
	if err := s.Store.SaveRelation(ctx, res.Record, res.Table); err != nil {
		return "", nil, err
	}
	id, err := s.Store.SaveTrack(ctx, relationID, res.Start, res.Points)
	if err != nil {
		return "", nil, err
	}
	s.Logger.Info("track persisted",
		zap.Int64("relation", int64(relationID)),
		zap.String("track_id", id))
	return id, res, nil
}

// FindRelations returns records for every relation whose name matches pattern.
func (s *Service) FindRelations(ctx context.Context, pattern string) ([]segments.Record, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, &QueryError{Msg: fmt.Sprintf("invalid name pattern: %v", err)}
	}
	rels, err := s.Lookup.GetRelationByName(ctx, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]segments.Record, 0, len(rels))
	for _, r := range rels {
		rec, err := segments.Describe(r)
		if err != nil {
			s.Logger.Debug("skipping unnamed relation", zap.Int64("relation", int64(r.ID)))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
