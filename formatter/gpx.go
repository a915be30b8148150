package formatter

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// BuildGPX serializes a track to GPX 1.1 with one track segment. Waypoints
// in meta become <wpt> elements.
func BuildGPX(meta Meta, line orb.LineString) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	b.WriteString(`<gpx version="1.1" creator="osmtrail" xmlns="http://www.topografix.com/GPX/1/1">`)
	b.WriteString("\n")

	// metadata
	b.WriteString("<metadata>")
	if meta.Name != "" {
		b.WriteString("<name>")
		b.WriteString(xmlEscape(meta.Name))
		b.WriteString("</name>")
	}
	if meta.Link != "" {
		b.WriteString(`<link href="`)
		b.WriteString(xmlEscape(meta.Link))
		b.WriteString(`"/>`)
	}
	if meta.Time != "" {
		b.WriteString("<time>")
		b.WriteString(xmlEscape(meta.Time))
		b.WriteString("</time>")
	}
	b.WriteString("</metadata>\n")

	for _, w := range meta.Waypoints {
		b.WriteString("<wpt")
		writeLatLon(&b, w.Point)
		b.WriteString(">")
		if w.Name != "" {
			b.WriteString("<name>")
			b.WriteString(xmlEscape(w.Name))
			b.WriteString("</name>")
		}
		b.WriteString("</wpt>\n")
	}

	b.WriteString("<trk>")
	if meta.Name != "" {
		b.WriteString("<name>")
		b.WriteString(xmlEscape(meta.Name))
		b.WriteString("</name>")
	}
	if meta.Source != "" {
		b.WriteString("<src>")
		b.WriteString(xmlEscape(meta.Source))
		b.WriteString("</src>")
	}
	b.WriteString("\n<trkseg>\n")
	for _, p := range line {
		b.WriteString("<trkpt")
		writeLatLon(&b, p)
		b.WriteString("/>\n")
	}
	b.WriteString("</trkseg>\n</trk>\n</gpx>\n")
	return []byte(b.String())
}

func writeLatLon(b *strings.Builder, p orb.Point) {
	b.WriteString(` lat="`)
	b.WriteString(strconv.FormatFloat(p.Lat(), 'f', -1, 64))
	b.WriteString(`" lon="`)
	b.WriteString(strconv.FormatFloat(p.Lon(), 'f', -1, 64))
	b.WriteString(`"`)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
