package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// OSMBaseURL is the map viewer all links point at.
const OSMBaseURL = "https://www.openstreetmap.org/"

// Map layer codes understood by the viewer.
const (
	LayerMapnik       = "M"
	LayerCycleMap     = "C"
	LayerMapQuest     = "Q"
	LayerHumanitarian = "H"
)

// DefaultZoom is used by MarkerURL when zoom is not positive.
const DefaultZoom = 14

// ValidLayer reports whether code is a known layer code.
func ValidLayer(code string) bool {
	switch code {
	case LayerMapnik, LayerCycleMap, LayerMapQuest, LayerHumanitarian:
		return true
	}
	return false
}

func layerParam(code string) (string, error) {
	if code == "" {
		code = LayerMapnik
	}
	if !ValidLayer(code) {
		return "", fmt.Errorf("unknown map layer %q", code)
	}
	return "&layers=" + code, nil
}

func idURL(kind string, id int64, layer string) (string, error) {
	lp, err := layerParam(layer)
	if err != nil {
		return "", err
	}
	return OSMBaseURL + "?" + kind + "=" + strconv.FormatInt(id, 10) + lp, nil
}

// NodeURL links to a node.
func NodeURL(id osm.NodeID, layer string) (string, error) {
	return idURL("node", int64(id), layer)
}

// WayURL links to a way.
func WayURL(id osm.WayID, layer string) (string, error) {
	return idURL("way", int64(id), layer)
}

// RelationURL links to a relation.
func RelationURL(id osm.RelationID, layer string) (string, error) {
	return idURL("relation", int64(id), layer)
}

func deg(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// MarkerURL centers the map on a marker at lat/lon.
func MarkerURL(lat, lon float64, zoom int, layer string) (string, error) {
	lp, err := layerParam(layer)
	if err != nil {
		return "", err
	}
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	var b strings.Builder
	b.WriteString(OSMBaseURL)
	b.WriteString("?mlat=")
	b.WriteString(deg(lat))
	b.WriteString("&mlon=")
	b.WriteString(deg(lon))
	b.WriteString("#map=")
	b.WriteString(strconv.Itoa(zoom))
	b.WriteString("/")
	b.WriteString(deg(lat))
	b.WriteString("/")
	b.WriteString(deg(lon))
	b.WriteString(lp)
	return b.String(), nil
}

// BoundsURL shows everything inside bound, optionally with a marker.
func BoundsURL(bound orb.Bound, marker *orb.Point, layer string) (string, error) {
	lp, err := layerParam(layer)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(OSMBaseURL)
	b.WriteString("?minlon=")
	b.WriteString(deg(bound.Min.Lon()))
	b.WriteString("&minlat=")
	b.WriteString(deg(bound.Min.Lat()))
	b.WriteString("&maxlon=")
	b.WriteString(deg(bound.Max.Lon()))
	b.WriteString("&maxlat=")
	b.WriteString(deg(bound.Max.Lat()))
	if marker != nil {
		b.WriteString("&mlat=")
		b.WriteString(deg(marker.Lat()))
		b.WriteString("&mlon=")
		b.WriteString(deg(marker.Lon()))
	}
	b.WriteString(lp)
	return b.String(), nil
}
