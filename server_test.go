package osmtrail

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/osmtrail/config"
	"github.com/theoremus-urban-solutions/osmtrail/segments"
)

func serve(t *testing.T, svc *Service, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(svc, 0)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	svc, _ := newTestService(t, nil)
	rec := serve(t, svc, "/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Storage)
	assert.Equal(t, 128, body.Caches.Relations.MaxEntries)
	assert.Equal(t, "exports", body.Exports.Name)
}

func TestServer_TrackExports(t *testing.T) {
	svc, _ := newTestService(t, nil)

	tests := []struct {
		target      string
		contentType string
		contains    string
	}{
		{"/api/relations/9001/track.json?start=1", "application/json", `"points":[1,2,3,4,5]`},
		{"/api/relations/9001/track.json", "application/json", `"start":1`},
		{"/api/relations/9001/track.gpx?start=5", "application/gpx+xml", `<trkpt lat="59" lon="18"/>`},
		{"/api/relations/9001/track.geojson?start=1", "application/geo+json", `"FeatureCollection"`},
		{"/api/relations/9001/edges.csv", "text/csv", "9001,103,5,4"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(t, svc, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestServer_GPXIsAttachment(t *testing.T) {
	svc, _ := newTestService(t, nil)
	rec := serve(t, svc, "/api/relations/9001/track.gpx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="9001.gpx"`, rec.Header().Get("Content-Disposition"))
}

func TestServer_Errors(t *testing.T) {
	svc, src := newTestService(t, func(c *config.AppConfig) { c.Relations.StrictLinear = true })
	src.Fail("relation", 77, errors.New("connection reset"))

	tests := []struct {
		name   string
		target string
		status int
		kind   string
	}{
		{"bad relation id", "/api/relations/abc/track.json", http.StatusBadRequest, "query"},
		{"negative relation id", "/api/relations/-4/track.json", http.StatusBadRequest, "query"},
		{"unknown export", "/api/relations/9001/track.kml", http.StatusBadRequest, "query"},
		{"bad start", "/api/relations/9001/track.json?start=x", http.StatusBadRequest, "query"},
		{"no start available", "/api/relations/9004/track.json", http.StatusBadRequest, "query"},
		{"unknown relation", "/api/relations/12345/track.json?start=1", http.StatusNotFound, "not_found"},
		{"unnamed relation", "/api/relations/9002/track.json?start=1", http.StatusUnprocessableEntity, "malformed_relation"},
		{"branching relation", "/api/relations/9003/track.json?start=1", http.StatusUnprocessableEntity, "branching_relation"},
		{"upstream failure", "/api/relations/77/track.json?start=1", http.StatusBadGateway, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, svc, tt.target)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestServer_FindRelations(t *testing.T) {
	svc, _ := newTestService(t, nil)

	rec := serve(t, svc, "/api/relations?name=Ridge")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []segments.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Equal(t, []segments.Record{{RelationID: 9001, Name: "Ridge Trail"}}, recs)

	rec = serve(t, svc, "/api/relations")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, svc, "/api/relations?name=Nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, svc, "/api/relations?name=%28Ridge")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "query", body.Kind)
}

func TestErrorKind_Internal(t *testing.T) {
	kind, status := errorKind(errors.New("disk full"))
	assert.Equal(t, "internal", kind)
	assert.Equal(t, http.StatusInternalServerError, status)
}
