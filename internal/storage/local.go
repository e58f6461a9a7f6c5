package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Local stores blobs on the filesystem under a root directory. It serves
// development and tests; production deployments point Store at an external
// object service instead.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the root directory if needed.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root, baseURL: baseURL}, nil
}

func (l *Local) Upload(_ context.Context, name, _ string, r io.Reader) (*Object, error) {
	handle := uuid.New().String() + filepath.Ext(name)
	path := filepath.Join(l.root, handle)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write blob: %w", err)
	}

	return &Object{Handle: handle, URL: l.baseURL + "/" + handle}, nil
}

func (l *Local) Delete(_ context.Context, handle string) error {
	// Handles are generated server-side; reject anything path-like anyway.
	if filepath.Base(handle) != handle {
		return fmt.Errorf("invalid handle %q", handle)
	}
	err := os.Remove(filepath.Join(l.root, handle))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
