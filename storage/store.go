package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/theoremus-urban-solutions/osmtrail/segments"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when nothing is stored for a relation.
var ErrNotFound = errors.New("relation not stored")

// Store persists edge tables and reconstructed tracks in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// TrackRecord is one stored track.
type TrackRecord struct {
	ID         string
	RelationID osm.RelationID
	Start      osm.NodeID
	Points     []osm.NodeID
	CreatedAt  time.Time
}

// Open opens (creating if needed) the database at path. Call Migrate before
// first use.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one connection keeps pragmas and :memory: databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Migrate applies every pending schema migration.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it closes the shared *sql.DB.
	m.Log = &migrateLogger{logger: s.logger}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	version, _, err := m.Version()
	if err == nil {
		s.logger.Debug("schema ready", zap.Uint("version", version))
	}
	return nil
}

type migrateLogger struct {
	logger *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Sugar().Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// SaveRelation replaces the stored record and edge table of a relation.
func (s *Store) SaveRelation(ctx context.Context, rec segments.Record, table *segments.Table) error {
	if table == nil {
		return errors.New("save relation: nil table")
	}
	if rec.RelationID != table.RelationID {
		return fmt.Errorf("save relation: record %d does not match table %d", rec.RelationID, table.RelationID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := int64(rec.RelationID)
	for _, q := range []string{
		`DELETE FROM nodes WHERE relation = ?`,
		`DELETE FROM ways WHERE relation = ?`,
		`DELETE FROM relations WHERE relation = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("clear relation %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO relations (relation, name, source, expected, dropped) VALUES (?, ?, ?, ?, ?)`,
		id, rec.Name, rec.Source, table.Expected, table.Dropped); err != nil {
		return fmt.Errorf("insert relation %d: %w", id, err)
	}

	wayStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ways (relation, position, way, begin_node, end_node) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ways: %w", err)
	}
	defer func() { _ = wayStmt.Close() }()
	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (relation, position, way, nodes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer func() { _ = nodeStmt.Close() }()

	for i, e := range table.Edges {
		if _, err := wayStmt.ExecContext(ctx, id, i, int64(e.WayID), int64(e.Begin), int64(e.End)); err != nil {
			return fmt.Errorf("insert way %d: %w", e.WayID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, id, i, int64(e.WayID), EncodePointList(table.Points[i])); err != nil {
			return fmt.Errorf("insert nodes of way %d: %w", e.WayID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("relation saved", zap.Int64("relation", id), zap.Int("ways", len(table.Edges)))
	return nil
}

// LoadRecord returns the stored record of a relation.
func (s *Store) LoadRecord(ctx context.Context, relationID osm.RelationID) (segments.Record, error) {
	rec := segments.Record{RelationID: relationID}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, source FROM relations WHERE relation = ?`, int64(relationID)).
		Scan(&rec.Name, &rec.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return segments.Record{}, fmt.Errorf("relation %d: %w", relationID, ErrNotFound)
	}
	if err != nil {
		return segments.Record{}, fmt.Errorf("load relation %d: %w", relationID, err)
	}
	return rec, nil
}

// LoadTable returns the stored edge table of a relation, rows in saved order.
func (s *Store) LoadTable(ctx context.Context, relationID osm.RelationID) (*segments.Table, error) {
	id := int64(relationID)
	t := &segments.Table{RelationID: relationID}
	err := s.db.QueryRowContext(ctx,
		`SELECT expected, dropped FROM relations WHERE relation = ?`, id).
		Scan(&t.Expected, &t.Dropped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("relation %d: %w", relationID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load relation %d: %w", relationID, err)
	}

	points, err := s.loadPoints(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, way, begin_node, end_node FROM ways WHERE relation = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load ways of %d: %w", relationID, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var pos int
		var way, begin, end int64
		if err := rows.Scan(&pos, &way, &begin, &end); err != nil {
			return nil, fmt.Errorf("scan way: %w", err)
		}
		pts, ok := points[pos]
		if !ok {
			return nil, fmt.Errorf("relation %d way %d at position %d has no node list", relationID, way, pos)
		}
		t.Edges = append(t.Edges, segments.Edge{
			RelationID: relationID,
			WayID:      osm.WayID(way),
			Begin:      osm.NodeID(begin),
			End:        osm.NodeID(end),
		})
		t.Points = append(t.Points, pts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ways of %d: %w", relationID, err)
	}
	return t, nil
}

func (s *Store) loadPoints(ctx context.Context, relation int64) (map[int][]osm.NodeID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, nodes FROM nodes WHERE relation = ?`, relation)
	if err != nil {
		return nil, fmt.Errorf("load nodes of %d: %w", relation, err)
	}
	defer func() { _ = rows.Close() }()

	out := map[int][]osm.NodeID{}
	for rows.Next() {
		var pos int
		var blob []byte
		if err := rows.Scan(&pos, &blob); err != nil {
			return nil, fmt.Errorf("scan nodes: %w", err)
		}
		ids, err := DecodePointList(blob)
		if err != nil {
			return nil, fmt.Errorf("relation %d position %d: %w", relation, pos, err)
		}
		out[pos] = ids
	}
	return out, rows.Err()
}

// SaveTrack stores a reconstructed track and returns its id.
func (s *Store) SaveTrack(ctx context.Context, relationID osm.RelationID, start osm.NodeID, points []osm.NodeID) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO track_points (track_id, relation, start_node, nodes, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, int64(relationID), int64(start), EncodePointList(points), s.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert track of %d: %w", relationID, err)
	}
	s.logger.Debug("track saved",
		zap.String("track_id", id),
		zap.Int64("relation", int64(relationID)),
		zap.Int("points", len(points)))
	return id, nil
}

// LatestTrack returns the most recently saved track of a relation.
func (s *Store) LatestTrack(ctx context.Context, relationID osm.RelationID) (TrackRecord, bool, error) {
	var (
		rec     = TrackRecord{RelationID: relationID}
		start   int64
		blob    []byte
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT track_id, start_node, nodes, created_at FROM track_points
		 WHERE relation = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, int64(relationID)).
		Scan(&rec.ID, &start, &blob, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return TrackRecord{}, false, nil
	}
	if err != nil {
		return TrackRecord{}, false, fmt.Errorf("load track of %d: %w", relationID, err)
	}
	pts, err := DecodePointList(blob)
	if err != nil {
		return TrackRecord{}, false, fmt.Errorf("track %s: %w", rec.ID, err)
	}
	rec.Start = osm.NodeID(start)
	rec.Points = pts
	rec.CreatedAt = time.Unix(0, created)
	return rec, true, nil
}

// LoadTrack returns the points of the latest track of a relation, or an
// empty list when none is stored.
func (s *Store) LoadTrack(ctx context.Context, relationID osm.RelationID) ([]osm.NodeID, error) {
	rec, ok, err := s.LatestTrack(ctx, relationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []osm.NodeID{}, nil
	}
	return rec.Points, nil
}
