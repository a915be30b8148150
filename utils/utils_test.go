package utils

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDURLs(t *testing.T) {
	u, err := NodeURL(652065750, "")
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?node=652065750&layers=M", u)

	u, err = WayURL(101, LayerCycleMap)
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?way=101&layers=C", u)

	u, err = RelationURL(9001, LayerHumanitarian)
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?relation=9001&layers=H", u)

	_, err = RelationURL(9001, "X")
	require.Error(t, err)
}

func TestMarkerURL(t *testing.T) {
	u, err := MarkerURL(59.2763333333, 18.187, 0, "M")
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?mlat=59.2763333333&mlon=18.187#map=14/59.2763333333/18.187&layers=M", u)

	u, err = MarkerURL(-1.5, 2, 9, "Q")
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?mlat=-1.5&mlon=2#map=9/-1.5/2&layers=Q", u)
}

func TestBoundsURL(t *testing.T) {
	b := orb.Bound{Min: orb.Point{12.4985, 56.0189}, Max: orb.Point{12.6314, 56.0763}}

	u, err := BoundsURL(b, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?minlon=12.4985&minlat=56.0189&maxlon=12.6314&maxlat=56.0763&layers=M", u)

	u, err = BoundsURL(b, &orb.Point{12.61303, 56.037}, "M")
	require.NoError(t, err)
	assert.Equal(t, "https://www.openstreetmap.org/?minlon=12.4985&minlat=56.0189&maxlon=12.6314&maxlat=56.0763&mlat=56.037&mlon=12.61303&layers=M", u)
}

func TestPresentableLength(t *testing.T) {
	assert.Equal(t, "0 m", PresentableLength(-3))
	assert.Equal(t, "850 m", PresentableLength(0.85))
	assert.Equal(t, "1.0 km", PresentableLength(1))
	assert.Equal(t, "12.3 km", PresentableLength(12.34))
	assert.Equal(t, "1 point", PresentablePoints(1))
	assert.Equal(t, "0 points", PresentablePoints(0))
}

func TestIso8601(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2024-05-01T12:00:00Z", Iso8601(ts))
}
