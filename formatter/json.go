package formatter

import (
	"encoding/json"

	"github.com/paulmach/osm"
)

type trackJSON struct {
	Relation osm.RelationID `json:"relation"`
	Name     string         `json:"name,omitempty"`
	Start    osm.NodeID     `json:"start"`
	Points   []osm.NodeID   `json:"points"`
}

// BuildJSON serializes the node ids of a track.
func BuildJSON(meta Meta, points []osm.NodeID) ([]byte, error) {
	if points == nil {
		points = []osm.NodeID{}
	}
	return json.Marshal(trackJSON{
		Relation: meta.RelationID,
		Name:     meta.Name,
		Start:    meta.Start,
		Points:   points,
	})
}
