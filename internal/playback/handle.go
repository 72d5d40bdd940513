// Package playback implements the media playback engine.
package playback

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Handle is a transient playable reference. For remote sources it is
// just the locator; for local sources it points at bytes staged from
// the object store and must be released on teardown so staged files do
// not accumulate across session navigations. Releasing is a
// correctness-critical cleanup, not an optimization.
type Handle struct {
	location string

	mu       sync.Mutex
	released bool
	release  func() error
}

// Location returns the string the platform media layer can load.
func (h *Handle) Location() string {
	return h.location
}

// Release invalidates the handle's underlying resource. Idempotent.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released || h.release == nil {
		h.released = true
		return nil
	}
	h.released = true
	return h.release()
}

// remoteHandle wraps an external locator. Nothing to release.
func remoteHandle(locator string) *Handle {
	return &Handle{location: locator}
}

// stageHandle materializes object bytes as a temp file and returns a
// handle whose release removes the file.
func stageHandle(stagingDir string, r io.Reader) (*Handle, error) {
	f, err := os.CreateTemp(stagingDir, "localtube-media-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	path := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to stage media: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close staging file: %w", err)
	}

	return &Handle{
		location: path,
		release:  func() error { return os.Remove(path) },
	}, nil
}
