package compositor

import (
	"testing"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/platform"
)

// boundsDevice fails the test on any write outside [0, stride*height).
type boundsDevice struct {
	t    *testing.T
	info platform.Info
	n    int
}

func (b *boundsDevice) Info() platform.Info { return b.info }
func (b *boundsDevice) Close() error        { return nil }

func (b *boundsDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > b.info.Size() {
		b.t.Fatalf("write of %d bytes at %d outside [0,%d)", len(p), off, b.info.Size())
	}
	b.n++
	return len(p), nil
}

func TestFlush_NeverWritesOutsideDevice(t *testing.T) {
	dev := &boundsDevice{t: t, info: platform.Info{Width: 50, Height: 40, Stride: 240, BytesPerPixel: 4}}
	// Master larger than the device, window hanging off every edge.
	d := NewDisplay(100, 100, bg, 0)
	d.Add(filledWindow(1, gfx.Rect{X: -20, Y: -20, W: 200, H: 200}, red, ZNormal))

	if _, err := d.Repaint(dev); err != nil {
		t.Fatalf("repaint: %v", err)
	}
	if dev.n != 40 {
		t.Fatalf("rows written = %d, want 40", dev.n)
	}

	for _, r := range []gfx.Rect{
		{X: -10, Y: -10, W: 5, H: 5},
		{X: 45, Y: 35, W: 100, H: 100},
		{X: 200, Y: 0, W: 10, H: 10},
	} {
		if err := Flush(dev, d.Master(), r); err != nil {
			t.Fatalf("flush %v: %v", r, err)
		}
	}
}

func TestFlush_UsesStrideAndOrder(t *testing.T) {
	dev := platform.NewMemoryWithStride(4, 3, 24, platform.OrderRGBA)
	master := gfx.NewImage(4, 3)
	master.Set(2, 1, gfx.RGBA(9, 8, 7, 6))

	if err := Flush(dev, master, master.Bounds()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	buf := dev.Bytes()
	off := 1*24 + 2*4
	if got := buf[off : off+4]; string(got) != string([]byte{9, 8, 7, 6}) {
		t.Fatalf("pixel bytes = %v", got)
	}
	// Padding bytes between rows stay untouched.
	for _, b := range buf[16:24] {
		if b != 0 {
			t.Fatalf("row padding written: %v", buf[16:24])
		}
	}
}

func TestFlush_RejectsOtherPixelSizes(t *testing.T) {
	dev := &boundsDevice{t: t, info: platform.Info{Width: 4, Height: 4, Stride: 8, BytesPerPixel: 2}}
	if err := Flush(dev, gfx.NewImage(4, 4), gfx.Rect{W: 4, H: 4}); err == nil {
		t.Fatalf("expected error for 16-bit device")
	}
}
