//go:build !linux

package platform

import (
	"errors"
	"fmt"
)

// Framebuffer is only available on Linux.
type Framebuffer struct{}

func OpenFramebuffer(path string) (*Framebuffer, error) {
	return nil, fmt.Errorf("open %s: %w", path, errors.ErrUnsupported)
}

func (f *Framebuffer) Info() Info { return Info{} }

func (f *Framebuffer) WriteAt(p []byte, off int64) (int, error) {
	return 0, errors.ErrUnsupported
}

func (f *Framebuffer) Close() error { return nil }
