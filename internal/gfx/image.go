package gfx

import "fmt"

// BytesPerPixel is the size of one encoded pixel on the wire and on devices.
const BytesPerPixel = 4

// Image owns a row-major buffer of Width*Height colors.
type Image struct {
	width  int
	height int
	pix    []Color
}

// NewImage allocates a transparent image. Negative sizes are treated as zero.
func NewImage(width, height int) *Image {
	width = max(0, width)
	height = max(0, height)
	return &Image{
		width:  width,
		height: height,
		pix:    make([]Color, width*height),
	}
}

// NewImageFilled allocates an image where every pixel is c.
func NewImageFilled(width, height int, c Color) *Image {
	img := NewImage(width, height)
	img.Fill(c)
	return img
}

// ImageFrom wraps pix without copying. len(pix) must equal width*height.
func ImageFrom(width, height int, pix []Color) (*Image, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("pixel count %d does not match %dx%d", len(pix), width, height)
	}
	return &Image{width: width, height: height, pix: pix}, nil
}

// DecodeRGBA builds an image from packed R,G,B,A bytes.
func DecodeRGBA(width, height int, data []byte) (*Image, error) {
	if width < 0 || height < 0 || len(data) != width*height*BytesPerPixel {
		return nil, fmt.Errorf("payload of %d bytes does not match %dx%d", len(data), width, height)
	}
	img := NewImage(width, height)
	for i := range img.pix {
		o := i * BytesPerPixel
		img.pix[i] = Color{R: data[o], G: data[o+1], B: data[o+2], A: data[o+3]}
	}
	return img, nil
}

func (img *Image) Width() int  { return img.width }
func (img *Image) Height() int { return img.height }

// Bounds returns the image rect at the origin.
func (img *Image) Bounds() Rect {
	return Rect{W: img.width, H: img.height}
}

// Pix exposes the backing slice. Writes go straight into the image.
func (img *Image) Pix() []Color {
	return img.pix
}

// At returns the pixel at (x, y), or Transparent when out of bounds.
func (img *Image) At(x, y int) Color {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return Transparent
	}
	return img.pix[y*img.width+x]
}

// Set writes the pixel at (x, y). Out-of-bounds writes are ignored.
func (img *Image) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= img.width || y >= img.height {
		return
	}
	img.pix[y*img.width+x] = c
}

// Fill sets every pixel to c.
func (img *Image) Fill(c Color) {
	for i := range img.pix {
		img.pix[i] = c
	}
}

// ROI returns a view of r clipped to the image bounds.
func (img *Image) ROI(r Rect) ROI {
	return ROI{img: img, rect: r.Intersection(img.Bounds())}
}

// Resize returns a new image of the given size carrying over the overlapping
// top-left content. Newly exposed pixels are transparent.
func (img *Image) Resize(width, height int) *Image {
	out := NewImage(width, height)
	out.ROI(out.Bounds()).Cover(img.ROI(img.Bounds()))
	return out
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	out := &Image{width: img.width, height: img.height, pix: make([]Color, len(img.pix))}
	copy(out.pix, img.pix)
	return out
}

// EncodeRGBA packs the whole image as R,G,B,A bytes.
func (img *Image) EncodeRGBA() []byte {
	return img.ROI(img.Bounds()).EncodeRGBA()
}

// ROI is a borrowed rectangular view into an Image. The rect is always
// inside the parent's bounds; mutations write the parent in place.
type ROI struct {
	img  *Image
	rect Rect
}

// Rect returns the view's rect in parent coordinates.
func (r ROI) Rect() Rect  { return r.rect }
func (r ROI) Width() int  { return r.rect.W }
func (r ROI) Height() int { return r.rect.H }

// Empty reports whether the view covers no pixel.
func (r ROI) Empty() bool {
	return r.img == nil || r.rect.Empty()
}

// row returns the parent's pixels for row y of the view, limited to n.
func (r ROI) row(y, n int) []Color {
	start := (r.rect.Y+y)*r.img.width + r.rect.X
	return r.img.pix[start : start+n]
}

// At returns the pixel at view-local (x, y).
func (r ROI) At(x, y int) Color {
	if r.Empty() || x < 0 || y < 0 || x >= r.rect.W || y >= r.rect.H {
		return Transparent
	}
	return r.img.pix[(r.rect.Y+y)*r.img.width+r.rect.X+x]
}

// Set writes the pixel at view-local (x, y).
func (r ROI) Set(x, y int, c Color) {
	if r.Empty() || x < 0 || y < 0 || x >= r.rect.W || y >= r.rect.H {
		return
	}
	r.img.pix[(r.rect.Y+y)*r.img.width+r.rect.X+x] = c
}

// Sub returns a view of local rect lr within r, clipped to r.
func (r ROI) Sub(lr Rect) ROI {
	if r.img == nil {
		return r
	}
	clip := lr.Offset(r.rect.X, r.rect.Y).Intersection(r.rect)
	return ROI{img: r.img, rect: clip}
}

// Fill sets every pixel of the view to c.
func (r ROI) Fill(c Color) {
	if r.Empty() {
		return
	}
	for y := 0; y < r.rect.H; y++ {
		row := r.row(y, r.rect.W)
		for i := range row {
			row[i] = c
		}
	}
}

// backwards reports whether r and src share a parent with the destination
// at a higher offset, in which case pixels must be visited last to first
// so overlapping source pixels are read before they are overwritten.
func (r ROI) backwards(src ROI) bool {
	if r.img != src.img {
		return false
	}
	return r.rect.Y > src.rect.Y || (r.rect.Y == src.rect.Y && r.rect.X > src.rect.X)
}

// Cover overwrites the destination with src over their common top-left
// aligned extent. The views may overlap.
func (r ROI) Cover(src ROI) {
	if r.Empty() || src.Empty() {
		return
	}
	w := min(r.rect.W, src.rect.W)
	h := min(r.rect.H, src.rect.H)
	if r.backwards(src) {
		for y := h - 1; y >= 0; y-- {
			copy(r.row(y, w), src.row(y, w))
		}
		return
	}
	for y := 0; y < h; y++ {
		copy(r.row(y, w), src.row(y, w))
	}
}

// Blend alpha-composites src over the destination across their common
// top-left aligned extent. The views may overlap.
func (r ROI) Blend(src ROI) {
	if r.Empty() || src.Empty() {
		return
	}
	w := min(r.rect.W, src.rect.W)
	h := min(r.rect.H, src.rect.H)
	if r.backwards(src) {
		for y := h - 1; y >= 0; y-- {
			dst := r.row(y, w)
			s := src.row(y, w)
			for x := w - 1; x >= 0; x-- {
				dst[x] = s[x].Over(dst[x])
			}
		}
		return
	}
	for y := 0; y < h; y++ {
		dst := r.row(y, w)
		s := src.row(y, w)
		for x := range dst {
			dst[x] = s[x].Over(dst[x])
		}
	}
}

// Pixels copies the view out in row-major order.
func (r ROI) Pixels() []Color {
	if r.Empty() {
		return nil
	}
	out := make([]Color, 0, r.rect.W*r.rect.H)
	for y := 0; y < r.rect.H; y++ {
		out = append(out, r.row(y, r.rect.W)...)
	}
	return out
}

// EncodeRGBA packs the view as R,G,B,A bytes in row-major order.
func (r ROI) EncodeRGBA() []byte {
	if r.Empty() {
		return []byte{}
	}
	out := make([]byte, 0, r.rect.W*r.rect.H*BytesPerPixel)
	for y := 0; y < r.rect.H; y++ {
		for _, c := range r.row(y, r.rect.W) {
			out = append(out, c.R, c.G, c.B, c.A)
		}
	}
	return out
}
