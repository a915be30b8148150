package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lib "github.com/theoremus-urban-solutions/osmtrail"
	"github.com/theoremus-urban-solutions/osmtrail/config"
	"github.com/theoremus-urban-solutions/osmtrail/internal"
	"github.com/theoremus-urban-solutions/osmtrail/storage"
)

var (
	logger *zap.Logger
	cfg    config.AppConfig

	// global flags
	verbose    bool
	configPath string
	trailName  string
	sourceFile string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "osmtrail",
	Short: "Reconstruct OpenStreetMap route relations into ordered tracks",
	Long: `osmtrail fetches a route relation (a named trail made of unordered ways),
stitches its ways into one ordered walk of nodes and exports it as GPX,
GeoJSON, JSON or CSV. Tracks and edge tables can be stored in SQLite.

Relations come from the OpenStreetMap API, or from a local .osm extract
given with --file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = internal.NewLogger(verbose)
		if err != nil {
			return err
		}
		cfg, err = loadConfig()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: config.yml or ./config/config.yml)")
	rootCmd.PersistentFlags().StringVar(&trailName, "trail", "", "Trail name from config trails[] (relation and start)")
	rootCmd.PersistentFlags().StringVarP(&sourceFile, "file", "f", "", "Read relations from an .osm extract (path or http(s) URL) instead of the API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config, else the default locations, else built-in defaults.
func loadConfig() (config.AppConfig, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if err := config.LoadAppConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no config file found, using defaults")
			config.Config = config.Default()
			return config.Config, nil
		}
		return config.AppConfig{}, err
	}
	return config.Config, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// newService builds the pipeline; withStore opens and migrates the database.
func newService(ctx context.Context, withStore bool) (*lib.Service, func(), error) {
	src, err := openSource(ctx, sourceFile, cfg.OSM)
	if err != nil {
		return nil, nil, err
	}
	var store *storage.Store
	cleanup := func() {}
	if withStore {
		store, err = storage.Open(cfg.Storage.Path, logger.Named("storage"))
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		cleanup = func() { _ = store.Close() }
	}
	return lib.NewService(cfg, src, store, logger), cleanup, nil
}
