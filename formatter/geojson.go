package formatter

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// BuildGeoJSON returns a feature collection holding the track as a
// LineString feature followed by one Point feature per waypoint.
func BuildGeoJSON(meta Meta, line orb.LineString) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	track := geojson.NewFeature(line)
	track.ID = int64(meta.RelationID)
	track.Properties["relation"] = int64(meta.RelationID)
	track.Properties["start"] = int64(meta.Start)
	track.Properties["points"] = len(line)
	if meta.Name != "" {
		track.Properties["name"] = meta.Name
	}
	if meta.Source != "" {
		track.Properties["source"] = meta.Source
	}
	if meta.Link != "" {
		track.Properties["link"] = meta.Link
	}
	fc.Append(track)

	for _, w := range meta.Waypoints {
		f := geojson.NewFeature(w.Point)
		f.Properties["node"] = int64(w.NodeID)
		if w.Name != "" {
			f.Properties["name"] = w.Name
		}
		fc.Append(f)
	}
	return fc.MarshalJSON()
}
