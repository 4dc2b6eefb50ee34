package ports

import (
	"context"
	"fmt"
)

// StatusError reports a non-success HTTP status from the build server.
// Distinct from transport errors so the publisher can log the status code.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.Path, e.StatusCode)
}

// ArtifactSource fetches the compiled form of a source file from the
// build/dev server by its path relative to the server root.
type ArtifactSource interface {
	// Fetch returns the full artifact body. A non-2xx response yields a
	// *StatusError; transport failures yield the underlying error.
	Fetch(ctx context.Context, relPath string) ([]byte, error)
}

// ArtifactCache remembers the content hash of the last artifact written per
// relative path, so an unchanged artifact can skip its disk write. The
// staging directory is exclusively owned by one running instance, which is
// what makes the cache sound. A nil cache disables skipping.
type ArtifactCache interface {
	// Get returns the stored hash for relPath, or nil if none.
	Get(relPath string) ([]byte, error)

	// Put stores the hash for relPath, overwriting any prior value.
	Put(relPath string, hash []byte) error

	// Close releases the backing store.
	Close() error
}
