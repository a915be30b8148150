// Package lookup memoizes reads from an osmsource.Source.
//
// Every entity kind (node, way, relation, and the by-name queries) has its
// own bounded LRU cache. The first read of a key fetches from the source and
// stores the result; later reads of the same key return the stored value
// without a remote call. Failures are returned as *LookupError, are never
// cached and are never retried; retry policy belongs to the caller.
//
// A Lookup is an ordinary value: construct one per configuration and pass it
// to the components that need it.
package lookup
