// Package blob abstracts the key-addressed object store behind the pipeline.
//
// The production implementation is S3; tests use the in-memory store. The
// store is deliberately dumb: eventually-consistent listing, no locking, and
// overwriting puts, matching what the hosting bucket actually guarantees.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound reports a get against a key that does not exist.
var ErrNotFound = errors.New("object not found")

// IsNotFound reports whether err means the requested object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the key-addressed blob store the pipeline reads and writes.
type Store interface {
	// Get returns the full contents of an object.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put writes an object, overwriting any existing value at the key.
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error

	// Copy duplicates an object server-side within the bucket.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error

	// List returns the keys under a prefix. Listing is eventually consistent.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// Download streams an object to a local file path.
	Download(ctx context.Context, bucket, key, localPath string) error
}

// PutFile uploads a local file to the store with the given content type.
func PutFile(ctx context.Context, s Store, bucket, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	return s.Put(ctx, bucket, key, f, contentType)
}
