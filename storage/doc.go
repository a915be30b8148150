// Package storage persists relations, edge tables and tracks in SQLite.
//
// Node lists are stored as BLOBs in the protobuf wire format of
//
//	message PointList { repeated int64 ids = 1 [packed = true]; }
//
// written and read by EncodePointList and DecodePointList. The schema is
// managed by golang-migrate from migrations embedded in the binary.
package storage
