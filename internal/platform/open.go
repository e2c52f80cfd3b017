package platform

import "fmt"

const (
	BackendFbdev  = "fbdev"
	BackendMemory = "memory"
	BackendX11    = "x11"
)

// DefaultFramebufferPath is the fbdev node opened when none is configured.
const DefaultFramebufferPath = "/dev/fb0"

// Options selects and sizes a device.
type Options struct {
	Backend string
	Path    string
	Width   int
	Height  int
}

// Open returns a fbdev or memory device. The x11 backend needs an X
// connection and is opened by the x11 package instead.
func Open(opts Options) (Device, error) {
	switch opts.Backend {
	case "", BackendFbdev:
		path := opts.Path
		if path == "" {
			path = DefaultFramebufferPath
		}
		fb, err := OpenFramebuffer(path)
		if err != nil {
			return nil, err
		}
		return fb, nil
	case BackendMemory:
		if opts.Width <= 0 || opts.Height <= 0 {
			return nil, fmt.Errorf("memory device needs a positive size, got %dx%d", opts.Width, opts.Height)
		}
		return NewMemory(opts.Width, opts.Height), nil
	default:
		return nil, fmt.Errorf("backend %q cannot be opened here", opts.Backend)
	}
}
