package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/osm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lib "github.com/theoremus-urban-solutions/osmtrail"
	"github.com/theoremus-urban-solutions/osmtrail/formatter"
	"github.com/theoremus-urban-solutions/osmtrail/segments"
	"github.com/theoremus-urban-solutions/osmtrail/utils"
)

var (
	relationID   int64
	relationName string
	startNode    int64
	startName    string
	format       string
	outDir       string
	findName     string
)

// trackCmd reconstructs and exports a track
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Reconstruct a relation's track and export it",
	Long: `Builds the edge table of a relation, walks it from the start node and
writes the track to --out (default: export.dir from the config).

Use --out - to write to stdout. Format csv writes both the edge table and
the per-way node lists.

Example:
  osmtrail track --relation 660162 --start 360693242 --format gpx`,
	RunE: runTrack,
}

// saveCmd persists a relation and its track
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Reconstruct a track and store it in SQLite",
	RunE:  runSave,
}

// loadCmd prints a stored track
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Print the stored edge table and latest track of a relation",
	RunE:  runLoad,
}

// findCmd searches relations by name
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find relations whose name matches a regular expression",
	RunE:  runFind,
}

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tracks over HTTP",
	RunE:  runServe,
}

func init() {
	for _, c := range []*cobra.Command{trackCmd, saveCmd, loadCmd} {
		c.Flags().Int64Var(&relationID, "relation", 0, "Relation id")
	}
	for _, c := range []*cobra.Command{trackCmd, saveCmd} {
		c.Flags().StringVar(&relationName, "name", "", "Relation name pattern, used when --relation is not set")
		c.Flags().Int64Var(&startNode, "start", 0, "Start node id")
		c.Flags().StringVar(&startName, "start-name", "", "Start node name, used when --start is not set")
	}
	trackCmd.Flags().StringVar(&format, "format", "gpx", "Output format: gpx|geojson|json|csv")
	trackCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory, or - for stdout")
	findCmd.Flags().StringVar(&findName, "name", "", "Relation name pattern (required)")
	_ = findCmd.MarkFlagRequired("name")
}

// resolveTarget turns the flags (or --trail) into a relation and start node.
func resolveTarget(ctx context.Context, svc *lib.Service) (osm.RelationID, osm.NodeID, error) {
	rel, start := relationID, startNode
	if rel == 0 && relationName == "" {
		if t, ok := cfg.SelectTrail(trailName); ok {
			logger.Debug("using configured trail", zap.String("trail", t.Name))
			rel = t.Relation
			if start == 0 {
				start = t.Start
			}
		}
	}
	if rel == 0 && relationName != "" {
		recs, err := svc.FindRelations(ctx, relationName)
		if err != nil {
			return 0, 0, err
		}
		if len(recs) == 0 {
			return 0, 0, fmt.Errorf("no named relation matches %q", relationName)
		}
		if len(recs) > 1 {
			logger.Warn("several relations match, using the first",
				zap.String("name", relationName), zap.Int("count", len(recs)))
		}
		rel = int64(recs[0].RelationID)
	}
	if rel == 0 {
		return 0, 0, fmt.Errorf("no relation given: use --relation, --name or --trail")
	}
	if start == 0 && startName != "" {
		id, err := svc.StartByName(ctx, startName)
		if err != nil {
			return 0, 0, err
		}
		start = int64(id)
	}
	return osm.RelationID(rel), osm.NodeID(start), nil
}

func runTrack(cmd *cobra.Command, args []string) error {
	f, err := formatter.ParseFormat(format)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, cleanup, err := newService(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	rel, start, err := resolveTarget(ctx, svc)
	if err != nil {
		return err
	}
	res, err := svc.Track(ctx, rel, start)
	if err != nil {
		return err
	}
	dir := outDir
	if dir == "" {
		dir = cfg.Export.Dir
	}

	if f == formatter.FormatCSV {
		if err := writeCSV(cmd.OutOrStdout(), dir, res); err != nil {
			return err
		}
	} else {
		buf, err := svc.Render(ctx, res, f)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), dir, formatter.FileName(dir, rel, res.Record.Name, string(f)), buf); err != nil {
			return err
		}
	}
	if dir != "-" {
		printSummary(cmd.OutOrStdout(), svc, res)
	}
	return nil
}

func writeOutput(stdout io.Writer, dir, path string, buf []byte) error {
	if dir == "-" {
		_, err := stdout.Write(buf)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return err
	}
	logger.Info("export written", zap.String("path", path))
	return nil
}

func writeCSV(stdout io.Writer, dir string, res *lib.TrackResult) error {
	name := res.Record.Name
	if dir == "-" {
		if err := formatter.WriteEdgesCSV(stdout, res.Table); err != nil {
			return err
		}
		return formatter.WriteNodesCSV(stdout, res.Table)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	writers := []struct {
		ext   string
		write func(io.Writer, *segments.Table) error
	}{
		{"edges.csv", formatter.WriteEdgesCSV},
		{"nodes.csv", formatter.WriteNodesCSV},
	}
	for _, w := range writers {
		path := formatter.FileName(dir, res.Record.RelationID, name, w.ext)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := w.write(f, res.Table); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("export written", zap.String("path", path))
	}
	return nil
}

func printSummary(w io.Writer, svc *lib.Service, res *lib.TrackResult) {
	layer := cfg.Export.Layer
	fmt.Fprintf(w, "%s (relation %d)\n", res.Record.Name, res.Record.RelationID)
	fmt.Fprintf(w, "  %s over %d ways, %s\n",
		utils.PresentablePoints(res.Summary.Points), res.Table.Len(), utils.PresentableLength(res.Summary.LengthKM))
	if !res.Table.Complete() {
		fmt.Fprintf(w, "  warning: %d of %d ways could not be used\n", res.Table.Dropped, res.Table.Expected)
	}
	if u, err := utils.NodeURL(res.Start, layer); err == nil {
		fmt.Fprintf(w, "  start: %s\n", u)
	}
	if len(res.Line) > 0 {
		first := res.Line[0]
		if u, err := utils.MarkerURL(first.Lat(), first.Lon(), 0, layer); err == nil {
			fmt.Fprintf(w, "  map:   %s\n", u)
		}
		if u, err := utils.BoundsURL(res.Summary.Bound, &first, layer); err == nil {
			fmt.Fprintf(w, "  area:  %s\n", u)
		}
	}
	stats := svc.Lookup.Stats()
	logger.Debug("cache stats",
		zap.Uint64("way_hits", stats.Ways.Hits),
		zap.Uint64("way_misses", stats.Ways.Misses),
		zap.Uint64("node_hits", stats.Nodes.Hits),
		zap.Uint64("node_misses", stats.Nodes.Misses))
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, cleanup, err := newService(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	rel, start, err := resolveTarget(ctx, svc)
	if err != nil {
		return err
	}
	id, res, err := svc.Persist(ctx, rel, start)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved track %s of %s (%s) to %s\n",
		id, res.Record.Name, utils.PresentablePoints(len(res.Points)), cfg.Storage.Path)
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, cleanup, err := newService(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	rel := relationID
	if rel == 0 {
		if t, ok := cfg.SelectTrail(trailName); ok {
			rel = t.Relation
		}
	}
	if rel == 0 {
		return fmt.Errorf("no relation given: use --relation or --trail")
	}
	id := osm.RelationID(rel)

	rec, err := svc.Store.LoadRecord(ctx, id)
	if err != nil {
		return err
	}
	table, err := svc.Store.LoadTable(ctx, id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (relation %d), %d ways\n", rec.Name, rec.RelationID, table.Len())
	for _, e := range table.Edges {
		u, _ := utils.WayURL(e.WayID, cfg.Export.Layer)
		fmt.Fprintf(out, "  way %d: %d -> %d  %s\n", e.WayID, e.Begin, e.End, u)
	}

	trk, ok, err := svc.Store.LatestTrack(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "no stored track")
		return nil
	}
	fmt.Fprintf(out, "track %s from node %d, saved %s, %s\n",
		trk.ID, trk.Start, utils.Iso8601(trk.CreatedAt), utils.PresentablePoints(len(trk.Points)))
	for _, p := range trk.Points {
		fmt.Fprintln(out, int64(p))
	}
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	svc, cleanup, err := newService(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	recs, err := svc.FindRelations(ctx, findName)
	if err != nil {
		return err
	}
	for _, r := range recs {
		u, _ := utils.RelationURL(r.RelationID, cfg.Export.Layer)
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", r.RelationID, r.Name, u)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(cmd.Context(), cfg.Storage.Path != "")
	if err != nil {
		return err
	}
	defer cleanup()

	srv := lib.NewServer(svc, cfg.Server.Port)
	errc := srv.Start()
	return srv.HandleGracefulShutdown(errc)
}
