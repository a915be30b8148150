package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 16181
	DefaultAPIURL      = "https://api.openstreetmap.org/api/0.6"
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"
	DefaultTimeoutMS   = 30000
	DefaultSkipRole    = "alternative"
	DefaultConcurrency = 8
	DefaultStoragePath = "relations.sqlite"
	DefaultLayer       = "M"

	// NoSkipRole disables the member role filter.
	NoSkipRole = "none"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// LoadFile reads, validates and defaults the configuration at path.
func LoadFile(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration, validates it and fills in defaults.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// Validate checks struct tags section by section.
func Validate(cfg AppConfig) error {
	v := validator.New()
	sections := []any{cfg.Server, cfg.OSM, cfg.Cache, cfg.Relations, cfg.Export}
	for _, s := range sections {
		if err := v.Struct(s); err != nil {
			return err
		}
	}
	// trails are optional; if present validate each
	seen := map[string]bool{}
	for _, t := range cfg.Trails {
		if err := v.Struct(t); err != nil {
			return err
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate trail name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// ApplyDefaults fills zero values with the package defaults.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.OSM.APIURL == "" {
		cfg.OSM.APIURL = DefaultAPIURL
	}
	if cfg.OSM.OverpassURL == "" {
		cfg.OSM.OverpassURL = DefaultOverpassURL
	}
	if cfg.OSM.TimeoutMS == 0 {
		cfg.OSM.TimeoutMS = DefaultTimeoutMS
	}
	// per-kind entry bounds
	if cfg.Cache.Nodes == 0 {
		cfg.Cache.Nodes = 4096
	}
	if cfg.Cache.NodeNames == 0 {
		cfg.Cache.NodeNames = 4096
	}
	if cfg.Cache.Ways == 0 {
		cfg.Cache.Ways = 2048
	}
	if cfg.Cache.Relations == 0 {
		cfg.Cache.Relations = 128
	}
	if cfg.Cache.RelationNames == 0 {
		cfg.Cache.RelationNames = 128
	}
	if cfg.Relations.SkipRole == "" {
		cfg.Relations.SkipRole = DefaultSkipRole
	}
	if cfg.Relations.Concurrency == 0 {
		cfg.Relations.Concurrency = DefaultConcurrency
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "."
	}
	if cfg.Export.Layer == "" {
		cfg.Export.Layer = DefaultLayer
	}
}

// Default returns a configuration with every default applied.
func Default() AppConfig {
	var cfg AppConfig
	ApplyDefaults(&cfg)
	return cfg
}

// RoleFilter returns the member role to drop, or "" when filtering is disabled.
func (r RelationsConfig) RoleFilter() string {
	if r.SkipRole == NoSkipRole {
		return ""
	}
	return r.SkipRole
}

// SelectTrail chooses a trail by name; fallback to first. ok is false when no
// trails are configured.
func (c AppConfig) SelectTrail(name string) (Trail, bool) {
	if name != "" {
		for _, t := range c.Trails {
			if t.Name == name {
				return t, true
			}
		}
	}
	if len(c.Trails) > 0 {
		return c.Trails[0], true
	}
	return Trail{}, false
}
