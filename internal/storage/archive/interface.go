// internal/storage/archive/interface.go
package archive

import "context"

// Storage is one artifact backend. Paths are slash-separated and relative;
// each backend maps them onto its own namespace.
type Storage interface {
	// Put stores data at path, overwriting any previous object.
	Put(ctx context.Context, path string, data []byte) error

	// Get retrieves the object at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// List returns every path under the prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at path.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
}
