package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/osmtrail/config"
)

const fixturePath = "../../osmsource/testdata/trail.osm"

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, configPath, trailName, sourceFile = false, "", "", ""
	relationID, relationName, startNode, startName = 0, "", 0, ""
	format, outDir, findName = "gpx", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	body := "storage:\n  path: " + filepath.Join(dir, "relations.sqlite") + "\n" +
		"export:\n  dir: " + dir + "\n" +
		"trails:\n  - name: test\n    relation: 9001\n    start: 5\n"
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestOpenSource_FileAndURL(t *testing.T) {
	data, err := os.ReadFile(fixturePath)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	ctx := context.Background()
	for _, target := range []string{fixturePath, srv.URL + "/trail.osm"} {
		src, err := openSource(ctx, target, config.Default().OSM)
		require.NoError(t, err, target)
		rel, err := src.Relation(ctx, 9001)
		require.NoError(t, err, target)
		assert.Equal(t, "Test Trail", rel.Tags.Find("name"))
	}
}

func TestOpenSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := openSource(context.Background(), srv.URL, config.Default().OSM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestTrackCommand_JSONToStdout(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath,
		"track", "--relation", "9001", "--start", "1", "--format", "json", "--out", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"relation":9001,"name":"Test Trail","start":1,"points":[1,2,3,4,5]}`, out)
}

func TestTrackCommand_UsesConfiguredTrail(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath,
		"--trail", "test", "track", "--format", "json", "--out", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"relation":9001,"name":"Test Trail","start":5,"points":[5,4,3,2,1]}`, out)
}

func TestTrackCommand_StartByName(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath,
		"track", "--name", "Test", "--start-name", "Lookout", "--format", "json", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"start":5`)
}

func TestTrackCommand_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath,
		"track", "--relation", "9001", "--start", "1", "--format", "csv")
	require.NoError(t, err)

	edges, err := os.ReadFile(filepath.Join(dir, "9001-test-trail.edges.csv"))
	require.NoError(t, err)
	assert.Equal(t, "relation,way,begin,end\n9001,101,1,3\n9001,102,3,4\n9001,103,5,4\n", string(edges))
	assert.FileExists(t, filepath.Join(dir, "9001-test-trail.nodes.csv"))

	assert.Contains(t, out, "Test Trail (relation 9001)")
	assert.Contains(t, out, "https://www.openstreetmap.org/?node=1&layers=M")
}

func TestTrackCommand_GPXFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath,
		"track", "--relation", "9001", "--start", "1")
	require.NoError(t, err)

	gpx, err := os.ReadFile(filepath.Join(dir, "9001-test-trail.gpx"))
	require.NoError(t, err)
	assert.Contains(t, string(gpx), "<name>Test Trail</name>")
}

func TestTrackCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	_, err := execute(t, "--config", cfgPath, "--file", fixturePath, "track", "--relation", "9001", "--format", "kml")
	require.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "--file", fixturePath, "track", "--name", "Nothing here", "--out", "-")
	require.Error(t, err)
}

func TestSaveAndLoadCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	out, err := execute(t, "--config", cfgPath, "--file", fixturePath, "save", "--relation", "9001", "--start", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "saved track")
	assert.Contains(t, out, "Test Trail")

	out, err = execute(t, "--config", cfgPath, "--file", fixturePath, "load", "--relation", "9001")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Trail (relation 9001), 3 ways")
	assert.Contains(t, out, "way 103: 5 -> 4")
	assert.Contains(t, out, "from node 1")
}

func TestLoadCommand_NothingStored(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath, "load", "--relation", "9001")
	require.Error(t, err)
}

func TestFindCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--config", writeTestConfig(t, dir), "--file", fixturePath, "find", "--name", "Trail")
	require.NoError(t, err)
	assert.Equal(t, "9001\tTest Trail\thttps://www.openstreetmap.org/?relation=9001&layers=M\n", out)
}
