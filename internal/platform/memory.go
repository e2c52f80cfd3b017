package platform

import (
	"sync"

	"github.com/1broseidon/starry/internal/gfx"
)

// Memory is an in-process framebuffer used for headless runs and tests.
type Memory struct {
	mu       sync.Mutex
	info     Info
	buf      []byte
	writes   int
	presents int
	closed   bool
}

var (
	_ Device    = (*Memory)(nil)
	_ Presenter = (*Memory)(nil)
)

// NewMemory creates a width x height BGRA buffer with a tight stride.
func NewMemory(width, height int) *Memory {
	return NewMemoryWithStride(width, height, width*gfx.BytesPerPixel, OrderBGRA)
}

// NewMemoryWithStride creates a buffer with row padding, like real
// framebuffers whose line length exceeds the visible width.
func NewMemoryWithStride(width, height, stride int, order PixelOrder) *Memory {
	if stride < width*gfx.BytesPerPixel {
		stride = width * gfx.BytesPerPixel
	}
	info := Info{
		Name:          "memory",
		Width:         width,
		Height:        height,
		Stride:        stride,
		BytesPerPixel: gfx.BytesPerPixel,
		Order:         order,
	}
	return &Memory{info: info, buf: make([]byte, info.Size())}
}

func (m *Memory) Info() Info { return m.info }

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkBounds(m.info, len(p), off); err != nil {
		return 0, err
	}
	m.writes++
	return copy(m.buf[off:], p), nil
}

func (m *Memory) Present(rects []gfx.Rect) error {
	m.mu.Lock()
	m.presents++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Bytes returns a copy of device memory.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.buf))
	copy(out, m.buf)
	return out
}

// PixelAt decodes the pixel at x, y.
func (m *Memory) PixelAt(x, y int) gfx.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	off := y*m.info.Stride + x*m.info.BytesPerPixel
	return DecodePixel(m.buf[off:off+4], m.info.Order)
}

// Snapshot decodes the visible area into an image.
func (m *Memory) Snapshot() *gfx.Image {
	img := gfx.NewImage(m.info.Width, m.info.Height)
	for y := 0; y < m.info.Height; y++ {
		for x := 0; x < m.info.Width; x++ {
			img.Set(x, y, m.PixelAt(x, y))
		}
	}
	return img
}

// Writes returns the number of successful WriteAt calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Presents returns the number of Present calls.
func (m *Memory) Presents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presents
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
