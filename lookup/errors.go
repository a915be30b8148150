package lookup

import (
	"fmt"

	"github.com/theoremus-urban-solutions/osmtrail/osmsource"
)

// ErrNotFound matches (via errors.Is) lookups the source reported as missing.
var ErrNotFound = osmsource.ErrNotFound

// Kind names the entity a lookup was for.
type Kind string

const (
	KindNode         Kind = "node"
	KindNodeName     Kind = "node name"
	KindWay          Kind = "way"
	KindRelation     Kind = "relation"
	KindRelationName Kind = "relation name"
)

// LookupError is returned when the source could not supply a value.
// It carries the key that was asked for.
type LookupError struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s %s: %v", e.Kind, e.Key, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
