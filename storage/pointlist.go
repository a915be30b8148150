package storage

import (
	"errors"
	"fmt"

	"github.com/paulmach/osm"
	"google.golang.org/protobuf/encoding/protowire"
)

// pointListField is field 1 of
//
//	message PointList { repeated int64 ids = 1 [packed = true]; }
const pointListField protowire.Number = 1

// ErrCorruptPointList is returned for point list blobs that cannot be decoded.
var ErrCorruptPointList = errors.New("corrupt point list")

// EncodePointList encodes ids in protobuf wire format. An empty list
// encodes to an empty slice.
func EncodePointList(ids []osm.NodeID) []byte {
	if len(ids) == 0 {
		return []byte{}
	}
	var packed []byte
	for _, id := range ids {
		packed = protowire.AppendVarint(packed, uint64(int64(id)))
	}
	b := protowire.AppendTag(nil, pointListField, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// DecodePointList decodes a blob written by EncodePointList. Unpacked
// repeated encoding is accepted too. Other fields and wire types are errors.
func DecodePointList(b []byte) ([]osm.NodeID, error) {
	ids := []osm.NodeID{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: tag: %v", ErrCorruptPointList, protowire.ParseError(n))
		}
		b = b[n:]
		if num != pointListField {
			return nil, fmt.Errorf("%w: unexpected field %d", ErrCorruptPointList, num)
		}
		switch typ {
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: packed ids: %v", ErrCorruptPointList, protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return nil, fmt.Errorf("%w: id %d: %v", ErrCorruptPointList, len(ids), protowire.ParseError(m))
				}
				ids = append(ids, osm.NodeID(int64(v)))
				packed = packed[m:]
			}
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: id %d: %v", ErrCorruptPointList, len(ids), protowire.ParseError(n))
			}
			ids = append(ids, osm.NodeID(int64(v)))
			b = b[n:]
		default:
			return nil, fmt.Errorf("%w: wire type %d", ErrCorruptPointList, typ)
		}
	}
	return ids, nil
}
