package platform

import (
	"errors"
	"fmt"

	"github.com/1broseidon/starry/internal/gfx"
)

// PixelOrder is the byte order of one 32-bit pixel in device memory.
type PixelOrder int

const (
	// OrderBGRA is the usual little-endian XRGB8888 framebuffer layout.
	OrderBGRA PixelOrder = iota
	OrderRGBA
)

func (o PixelOrder) String() string {
	switch o {
	case OrderBGRA:
		return "bgra"
	case OrderRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ErrUnsupportedFormat is returned when a device is not 32 bits per pixel.
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// Info is the device geometry, queried once when the device is opened.
type Info struct {
	Name          string
	Width         int
	Height        int
	Stride        int
	BytesPerPixel int
	Order         PixelOrder
}

// Size returns the number of addressable bytes.
func (i Info) Size() int64 {
	return int64(i.Stride) * int64(i.Height)
}

// Device is a linear byte-addressed pixel sink.
type Device interface {
	Info() Info
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}

// Presenter is implemented by devices that buffer writes and need an
// explicit push after a repaint.
type Presenter interface {
	Present(rects []gfx.Rect) error
}

// EncodeRow writes src into dst in the given channel order. dst must hold
// 4 bytes per source pixel.
func EncodeRow(dst []byte, src []gfx.Color, order PixelOrder) {
	for i, c := range src {
		var px [4]byte
		if order == OrderRGBA {
			px = c.RGBA()
		} else {
			px = c.BGRA()
		}
		copy(dst[i*4:i*4+4], px[:])
	}
}

// DecodePixel is the inverse of EncodeRow for a single pixel.
func DecodePixel(p []byte, order PixelOrder) gfx.Color {
	if order == OrderRGBA {
		return gfx.RGBA(p[0], p[1], p[2], p[3])
	}
	return gfx.RGBA(p[2], p[1], p[0], p[3])
}

func checkBounds(info Info, n int, off int64) error {
	if off < 0 || off+int64(n) > info.Size() {
		return fmt.Errorf("write of %d bytes at offset %d outside device (%d bytes)", n, off, info.Size())
	}
	return nil
}
