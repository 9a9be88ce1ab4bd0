// Package blob abstracts durable object storage for item photos.
package blob

import "context"

// Store is the durable object storage used for item photos.
type Store interface {
	// Upload stores data under the given folder and returns its public URI.
	Upload(ctx context.Context, data []byte, folder string) (string, error)

	// Delete removes a previously uploaded object. It is best-effort: a
	// failed delete is logged by the implementation and reported as false,
	// never as an error that fails the caller's operation.
	Delete(ctx context.Context, uri string) bool

	// DownloadTemp fetches an object into a temporary local file and
	// returns its path. The caller owns the file.
	DownloadTemp(ctx context.Context, uri string) (string, error)

	// ThumbnailURL derives a resized-variant URL from an uploaded URI.
	ThumbnailURL(uri string, width, height int) string
}
