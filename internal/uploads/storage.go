package uploads

import (
	"context"
	"io"
	"time"
)

// StorageDriver abstracts where upload bytes live. The wizard only ever
// addresses files by key; everything else (hashing, buckets, URLs) is the
// driver's business.
type StorageDriver interface {
	// Save writes the content under the given key.
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get streams the content back together with its content type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the content. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a URL the customer's browser can fetch the file
	// from. expires only matters for presigned backends.
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
