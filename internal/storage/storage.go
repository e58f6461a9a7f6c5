// Package storage abstracts the external blob store the media service
// uploads to. The rest of the system only sees opaque handles.
package storage

import (
	"context"
	"io"
)

// Object is the result of a successful upload.
type Object struct {
	// Handle identifies the blob for later deletion.
	Handle string
	// URL is where clients fetch the blob.
	URL string
}

// Store uploads and deletes blobs by handle.
type Store interface {
	Upload(ctx context.Context, name string, contentType string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, handle string) error
}
