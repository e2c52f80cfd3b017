package compositor

import (
	"fmt"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/platform"
)

// Flush writes the master pixels inside r to the device, one row at a time,
// in the device's channel order. r is clipped against both the master image
// and the device geometry so no write lands outside [0, stride*height).
func Flush(dev platform.Device, master *gfx.Image, r gfx.Rect) error {
	info := dev.Info()
	if info.BytesPerPixel != gfx.BytesPerPixel {
		return fmt.Errorf("flush: unsupported pixel size %d bytes", info.BytesPerPixel)
	}
	stride := info.Stride
	if stride < info.Width*info.BytesPerPixel {
		stride = info.Width * info.BytesPerPixel
	}

	screen := gfx.NewRect(0, 0, min(info.Width, master.Width()), min(info.Height, master.Height()))
	clip := r.Intersection(screen)
	if clip.Empty() {
		return nil
	}

	row := make([]byte, clip.W*info.BytesPerPixel)
	pix := master.Pix()
	for sy := clip.Top(); sy < clip.Bottom(); sy++ {
		src := pix[sy*master.Width()+clip.X : sy*master.Width()+clip.Right()]
		platform.EncodeRow(row, src, info.Order)

		off := int64(sy*stride + clip.X*info.BytesPerPixel)
		if _, err := dev.WriteAt(row, off); err != nil {
			return fmt.Errorf("flush row %d of %v: %w", sy, clip, err)
		}
	}
	return nil
}
