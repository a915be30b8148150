package config

// ServerConfig contains server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// OSMConfig contains the remote mapping source endpoints
type OSMConfig struct {
	APIURL      string `yaml:"apiURL" validate:"omitempty,url"`
	OverpassURL string `yaml:"overpassURL" validate:"omitempty,url"`
	TimeoutMS   int    `yaml:"timeoutMS" validate:"gte=0"`
	UserAgent   string `yaml:"userAgent"`
}

// CacheConfig bounds the number of entries kept per entity kind
type CacheConfig struct {
	Nodes         int `yaml:"nodes" validate:"gte=0"`
	NodeNames     int `yaml:"nodeNames" validate:"gte=0"`
	Ways          int `yaml:"ways" validate:"gte=0"`
	Relations     int `yaml:"relations" validate:"gte=0"`
	RelationNames int `yaml:"relationNames" validate:"gte=0"`
}

// RelationsConfig controls how relation members become an edge table
type RelationsConfig struct {
	SkipRole     string `yaml:"skipRole"`
	StrictLinear bool   `yaml:"strictLinear"`
	Concurrency  int    `yaml:"concurrency" validate:"gte=0,lte=64"`
}

// StorageConfig contains the SQLite database location
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig contains file export settings
type ExportConfig struct {
	Dir   string `yaml:"dir"`
	Layer string `yaml:"layer" validate:"omitempty,oneof=M C Q H"`
}

// Trail names a relation together with the node its track starts from
type Trail struct {
	Name     string `yaml:"name" validate:"required"`
	Relation int64  `yaml:"relation" validate:"gt=0"`
	Start    int64  `yaml:"start" validate:"gt=0"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	OSM       OSMConfig       `yaml:"osm"`
	Cache     CacheConfig     `yaml:"cache"`
	Relations RelationsConfig `yaml:"relations"`
	Storage   StorageConfig   `yaml:"storage"`
	Export    ExportConfig    `yaml:"export"`
	Trails    []Trail         `yaml:"trails"`
}
