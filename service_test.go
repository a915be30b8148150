package osmtrail

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/theoremus-urban-solutions/osmtrail/config"
	"github.com/theoremus-urban-solutions/osmtrail/formatter"
	"github.com/theoremus-urban-solutions/osmtrail/internal/osmtest"
	"github.com/theoremus-urban-solutions/osmtrail/segments"
	"github.com/theoremus-urban-solutions/osmtrail/storage"
	"github.com/theoremus-urban-solutions/osmtrail/track"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixture() *osmtest.Builder {
	return osmtest.New().
		NamedNode(1, 59.0, 18.0, "Trailhead").
		Node(2, 59.001, 18.0).
		Node(3, 59.002, 18.0).
		Node(4, 59.003, 18.0).
		NamedNode(5, 59.004, 18.0, "Lookout").
		Node(7, 59.002, 18.001).
		Node(9, 59.002, 17.999).
		Way(101, 1, 2, 3).
		Way(102, 3, 4).
		Way(103, 5, 4).
		Way(104, 3, 9).
		Way(105, 3, 7).
		Relation(9001, "Ridge Trail",
			osmtest.NodeMember(1, "start"),
			osmtest.WayMember(101, ""),
			osmtest.WayMember(102, ""),
			osmtest.WayMember(103, ""),
			osmtest.WayMember(104, "alternative"),
		).
		Relation(9002, "", osmtest.WayMember(101, "")).
		Relation(9003, "Fork",
			osmtest.WayMember(101, ""),
			osmtest.WayMember(102, ""),
			osmtest.WayMember(105, ""),
		).
		Relation(9004, "Bare", osmtest.WayMember(102, ""))
}

func newTestService(t *testing.T, mutate func(*config.AppConfig)) (*Service, *osmtest.CountingSource) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	src := osmtest.NewCountingSource(fixture().Source())
	return NewService(cfg, src, nil, nil), src
}

func TestService_Track(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.Track(context.Background(), 9001, 0)
	require.NoError(t, err)

	assert.Equal(t, osm.NodeID(1), res.Start, "start comes from the first node member")
	assert.Equal(t, []osm.NodeID{1, 2, 3, 4, 5}, res.Points)
	assert.Equal(t, 3, res.Table.Len(), "alternative member is filtered")
	assert.Equal(t, segments.Record{RelationID: 9001, Name: "Ridge Trail"}, res.Record)
	assert.Equal(t, 5, res.Summary.Points)
	assert.InDelta(t, 0.445, res.Summary.LengthKM, 0.01)
	require.Len(t, res.Line, 5)
	assert.Equal(t, 59.004, res.Line[4].Lat())
}

func TestService_TrackWithoutRoleFilter(t *testing.T) {
	svc, _ := newTestService(t, func(c *config.AppConfig) { c.Relations.SkipRole = config.NoSkipRole })

	table, _, err := svc.EdgeTable(context.Background(), 9001)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
}

func TestService_ResolveStart(t *testing.T) {
	svc, _ := newTestService(t, func(c *config.AppConfig) {
		c.Trails = []config.Trail{{Name: "bare", Relation: 9004, Start: 4}}
	})
	ctx := context.Background()

	start, err := svc.ResolveStart(ctx, 9004, 0)
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(4), start)

	start, err = svc.ResolveStart(ctx, 9004, 3)
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(3), start)

	res, err := svc.Track(ctx, 9004, 0)
	require.NoError(t, err)
	assert.Equal(t, []osm.NodeID{4, 3}, res.Points)

	other, _ := newTestService(t, nil)
	_, err = other.ResolveStart(ctx, 9004, 0)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
}

func TestService_StartByName(t *testing.T) {
	svc, _ := newTestService(t, nil)

	id, err := svc.StartByName(context.Background(), "Lookout")
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(5), id)

	_, err = svc.StartByName(context.Background(), "Nowhere")
	require.Error(t, err)
}

func TestService_StrictLinear(t *testing.T) {
	ctx := context.Background()

	lenient, _ := newTestService(t, nil)
	res, err := lenient.Track(ctx, 9003, 1)
	require.NoError(t, err)
	assert.Equal(t, []osm.NodeID{1, 2, 3, 4}, res.Points, "first row in table order wins at the fork")

	strict, _ := newTestService(t, func(c *config.AppConfig) { c.Relations.StrictLinear = true })
	_, err = strict.Track(ctx, 9003, 1)
	var be *track.BranchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []osm.NodeID{3}, be.Junctions)
}

func TestService_MalformedRelation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Track(context.Background(), 9002, 1)
	var me *segments.MalformedRelationError
	require.ErrorAs(t, err, &me)
}

func TestService_ExportIsMemoized(t *testing.T) {
	svc, src := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Export(ctx, 9001, 1, formatter.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"relation":9001,"name":"Ridge Trail","start":1,"points":[1,2,3,4,5]}`, string(first))

	calls := src.Total()
	second, err := svc.Export(ctx, 9001, 1, formatter.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, src.Total())
	assert.Equal(t, uint64(1), svc.exports.Stats().Hits)
}

func TestService_IncompleteExportIsNotMemoized(t *testing.T) {
	svc, src := newTestService(t, nil)
	ctx := context.Background()

	src.Fail("way", 102, errors.New("connection reset"))
	partial, err := svc.Export(ctx, 9001, 1, formatter.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(partial), `"points":[1,2,3]`)
	assert.Equal(t, 0, svc.exports.Stats().Len)

	src.Fail("way", 102, nil)
	full, err := svc.Export(ctx, 9001, 1, formatter.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(full), `"points":[1,2,3,4,5]`)
	assert.Equal(t, 1, svc.exports.Stats().Len)

	again, err := svc.Export(ctx, 9001, 1, formatter.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, full, again)
}

func TestService_Render(t *testing.T) {
	svc, src := newTestService(t, nil)
	ctx := context.Background()

	res, err := svc.Track(ctx, 9001, 1)
	require.NoError(t, err)
	calls := src.Total()

	buf, err := svc.Render(ctx, res, formatter.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"relation":9001,"name":"Ridge Trail","start":1,"points":[1,2,3,4,5]}`, string(buf))
	assert.Equal(t, calls, src.Total(), "rendering reuses the cached lookups")

	_, err = svc.Render(ctx, res, formatter.Format("kml"))
	require.Error(t, err)
}

func TestService_ExportFormats(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	gpx, err := svc.Export(ctx, 9001, 1, formatter.FormatGPX)
	require.NoError(t, err)
	assert.Contains(t, string(gpx), `<trkpt lat="59.004" lon="18"/>`)
	assert.Contains(t, string(gpx), `<wpt lat="59" lon="18"><name>Trailhead</name></wpt>`)
	assert.Contains(t, string(gpx), `https://www.openstreetmap.org/?relation=9001&amp;layers=M`)

	geo, err := svc.Export(ctx, 9001, 1, formatter.FormatGeoJSON)
	require.NoError(t, err)
	assert.Contains(t, string(geo), `"LineString"`)

	csv, err := svc.Export(ctx, 9001, 1, formatter.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "relation,way,begin,end\n9001,101,1,3\n9001,102,3,4\n9001,103,5,4\n", string(csv))
}

func TestService_Persist(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "relations.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	cfg := config.Default()
	svc := NewService(cfg, fixture().Source(), store, nil)
	ctx := context.Background()

	id, res, err := svc.Persist(ctx, 9001, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pts, err := store.LoadTrack(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, res.Points, pts)

	table, err := store.LoadTable(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, res.Table, table)
}

func TestService_PersistWithoutStore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, _, err := svc.Persist(context.Background(), 9001, 1)
	require.True(t, errors.Is(err, ErrNoStore))
}

func TestService_FindRelations(t *testing.T) {
	svc, src := newTestService(t, nil)

	recs, err := svc.FindRelations(context.Background(), "Trail|Fork")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Ridge Trail", recs[0].Name)
	assert.Equal(t, "Fork", recs[1].Name)

	calls := src.Total()
	_, err = svc.FindRelations(context.Background(), "(Ridge")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, calls, src.Total(), "invalid pattern never reaches the source")
}
