package osmtrail

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/osmtrail/formatter"
	"github.com/theoremus-urban-solutions/osmtrail/lookup"
)

// ExportCache memoizes rendered exports. Concurrent requests for the same
// export share one render.
type ExportCache struct {
	svc     *Service
	entries *lookup.Cache[string, []byte]
}

// NewExportCache returns a cache of at most maxEntries rendered exports.
func NewExportCache(svc *Service, maxEntries int) *ExportCache {
	return &ExportCache{svc: svc, entries: lookup.NewCache[string, []byte]("exports", maxEntries)}
}

func (ec *ExportCache) memoKey(args ...string) string {
	var b bytes.Buffer
	for i, a := range args {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(a)
	}
	return b.String()
}

// Get returns the export of relationID walked from start, rendering it on a miss.
func (ec *ExportCache) Get(ctx context.Context, relationID osm.RelationID, start osm.NodeID, format formatter.Format) ([]byte, error) {
	key := ec.memoKey(
		strconv.FormatInt(int64(relationID), 10),
		strconv.FormatInt(int64(start), 10),
		string(format),
	)
	buf, err := ec.entries.Get(ctx, key, func(ctx context.Context, _ string) ([]byte, error) {
		buf, complete, err := ec.svc.render(ctx, relationID, start, format)
		if err != nil {
			return nil, err
		}
		if !complete {
			// failed fetches are not cached, so neither is what they truncated
			return nil, &uncachedExport{buf: buf}
		}
		return buf, nil
	})
	var u *uncachedExport
	if errors.As(err, &u) {
		ec.svc.Logger.Debug("export not memoized, edge table incomplete",
			zap.String("key", key))
		return u.buf, nil
	}
	return buf, err
}

// uncachedExport carries a rendered export through the cache without storing it.
type uncachedExport struct {
	buf []byte
}

func (e *uncachedExport) Error() string { return "export built from an incomplete edge table" }

// Stats returns the cache counters.
func (ec *ExportCache) Stats() lookup.CacheStats { return ec.entries.Stats() }
