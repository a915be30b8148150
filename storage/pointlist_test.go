package storage

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestPointList_RoundTrip(t *testing.T) {
	tests := map[string][]osm.NodeID{
		"empty":     {},
		"single":    {42},
		"track":     {1, 2, 3, 4, 5},
		"large ids": {11830012345, 9000000000000, 1},
		"negative":  {-7, 3},
	}
	for name, ids := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := DecodePointList(EncodePointList(ids))
			require.NoError(t, err)
			assert.Equal(t, ids, got)
		})
	}
}

func TestPointList_Layout(t *testing.T) {
	// field 1, length delimited, 3 bytes of varints
	assert.Equal(t, []byte{0x0a, 0x03, 0x01, 0x02, 0x03}, EncodePointList([]osm.NodeID{1, 2, 3}))
	assert.Empty(t, EncodePointList(nil))
}

func TestPointList_AcceptsUnpacked(t *testing.T) {
	var b []byte
	for _, v := range []uint64{5, 6} {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}
	got, err := DecodePointList(b)
	require.NoError(t, err)
	assert.Equal(t, []osm.NodeID{5, 6}, got)
}

func TestPointList_RejectsCorruption(t *testing.T) {
	valid := EncodePointList([]osm.NodeID{100, 200, 300})
	tests := map[string][]byte{
		"truncated payload": valid[:len(valid)-1],
		"truncated varint":  {0x0a, 0x01, 0x80},
		"trailing garbage":  append(append([]byte{}, valid...), 0xff),
		"unknown field":     protowire.AppendVarint(protowire.AppendTag(nil, 2, protowire.VarintType), 1),
		"fixed64 wire type": protowire.AppendFixed64(protowire.AppendTag(nil, 1, protowire.Fixed64Type), 1),
		"python literal":    []byte("[1, 2, 3]"),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePointList(b)
			require.ErrorIs(t, err, ErrCorruptPointList)
		})
	}
}
