package records

import (
	"context"
	"errors"
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("records: object not found")

// ObjectRef identifies a stored object by its physical path and a URL it
// can be fetched from.
type ObjectRef struct {
	Path string
	URL  string
}

// Store abstracts the object store holding user record documents.
//
// The store is append-like: every Write to a fresh path creates a new
// physical object, and the only way to resolve "the record for X" is to
// list the paths sharing X's prefix. Write to an existing path replaces
// the object in place.
type Store interface {
	// Write stores body at exactly the supplied path.
	Write(ctx context.Context, path string, body []byte) (ObjectRef, error)
	// Find lists objects whose path starts with prefix, ordered
	// lexicographically by path.
	Find(ctx context.Context, prefix string) ([]ObjectRef, error)
	// Read returns the body of the object at path, or ErrObjectNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
}
