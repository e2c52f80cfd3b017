package gfx

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// NRGBA copies the image into a standard library image. Colors are
// straight alpha, which is what NRGBA stores.
func (img *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.width, img.height))
	for y := 0; y < img.height; y++ {
		for x := 0; x < img.width; x++ {
			c := img.pix[y*img.width+x]
			out.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return out
}

// WritePNG encodes img as PNG, scaled by factor when it is not 1.
// Downscaling uses Catmull-Rom; upscaling keeps hard pixel edges.
func WritePNG(w io.Writer, img *Image, factor float64) error {
	src := img.NRGBA()
	if factor <= 0 {
		return fmt.Errorf("invalid scale %v", factor)
	}
	if factor == 1 {
		return png.Encode(w, src)
	}

	dw := max(1, int(float64(img.width)*factor))
	dh := max(1, int(float64(img.height)*factor))
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	var scaler draw.Scaler = draw.CatmullRom
	if factor > 1 {
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return png.Encode(w, dst)
}
