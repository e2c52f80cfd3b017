package gfx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func patternImage(w, h int) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, RGBA(uint8(x), uint8(y), uint8(x+y), uint8(50+x)))
		}
	}
	return img
}

func TestROI_ClipsToBounds(t *testing.T) {
	img := NewImage(10, 10)
	got := img.ROI(Rect{X: -5, Y: 8, W: 20, H: 20}).Rect()
	want := Rect{X: 0, Y: 8, W: 10, H: 2}
	if got != want {
		t.Fatalf("ROI rect = %v, want %v", got, want)
	}
	if !img.ROI(Rect{X: 50, Y: 50, W: 5, H: 5}).Empty() {
		t.Fatalf("expected fully outside ROI to be empty")
	}
}

func TestCover_RoundTrip(t *testing.T) {
	src := patternImage(8, 6)
	dst := NewImageFilled(20, 20, White)

	view := dst.ROI(Rect{X: 3, Y: 4, W: 8, H: 6})
	view.Cover(src.ROI(src.Bounds()))

	if diff := cmp.Diff(src.Pix(), dst.ROI(Rect{X: 3, Y: 4, W: 8, H: 6}).Pixels()); diff != "" {
		t.Fatalf("cover round trip mismatch (-want +got):\n%s", diff)
	}
	if dst.At(2, 4) != White || dst.At(11, 4) != White || dst.At(3, 10) != White {
		t.Fatalf("cover wrote outside the view")
	}
}

func TestCover_UsesCommonTopLeftExtent(t *testing.T) {
	src := NewImageFilled(3, 3, Black)
	dst := NewImageFilled(5, 5, White)
	dst.ROI(Rect{X: 1, Y: 1, W: 2, H: 4}).Cover(src.ROI(src.Bounds()))

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			inside := x >= 1 && x < 3 && y >= 1 && y < 4
			want := White
			if inside {
				want = Black
			}
			if got := dst.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestBlend_OpaqueEqualsCover(t *testing.T) {
	src := NewImage(4, 4)
	for i := range src.Pix() {
		src.Pix()[i] = RGBA(uint8(i*10), uint8(i*7), uint8(i*3), 255)
	}
	a := patternImage(6, 6)
	b := a.Clone()

	a.ROI(Rect{X: 1, Y: 1, W: 4, H: 4}).Blend(src.ROI(src.Bounds()))
	b.ROI(Rect{X: 1, Y: 1, W: 4, H: 4}).Cover(src.ROI(src.Bounds()))

	if diff := cmp.Diff(b.Pix(), a.Pix()); diff != "" {
		t.Fatalf("blend(alpha=255) differs from cover (-cover +blend):\n%s", diff)
	}
}

func TestBlend_TransparentLeavesDestination(t *testing.T) {
	src := NewImageFilled(4, 4, RGBA(255, 255, 255, 0))
	dst := patternImage(6, 6)
	before := dst.Clone()

	dst.ROI(dst.Bounds()).Blend(src.ROI(src.Bounds()))

	if diff := cmp.Diff(before.Pix(), dst.Pix()); diff != "" {
		t.Fatalf("blend(alpha=0) changed destination:\n%s", diff)
	}
}

func TestResize_PreservesOverlap(t *testing.T) {
	img := patternImage(4, 4)
	grown := img.Resize(6, 3)
	if grown.Width() != 6 || grown.Height() != 3 {
		t.Fatalf("unexpected size %dx%d", grown.Width(), grown.Height())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if grown.At(x, y) != img.At(x, y) {
				t.Fatalf("pixel (%d,%d) not preserved", x, y)
			}
		}
		if grown.At(5, y) != Transparent {
			t.Fatalf("expected new pixels to be transparent")
		}
	}
}

func TestEncodeDecodeRGBA(t *testing.T) {
	img := patternImage(5, 3)
	data := img.ROI(Rect{X: 1, Y: 1, W: 3, H: 2}).EncodeRGBA()
	if len(data) != 3*2*BytesPerPixel {
		t.Fatalf("encoded %d bytes", len(data))
	}
	back, err := DecodeRGBA(3, 2, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(img.ROI(Rect{X: 1, Y: 1, W: 3, H: 2}).Pixels(), back.Pix()); diff != "" {
		t.Fatalf("decode mismatch:\n%s", diff)
	}

	if _, err := DecodeRGBA(3, 3, data); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func TestSub_ClipsToParentView(t *testing.T) {
	img := NewImage(10, 10)
	view := img.ROI(Rect{X: 2, Y: 2, W: 4, H: 4})
	sub := view.Sub(Rect{X: 2, Y: 2, W: 10, H: 10})
	if sub.Rect() != (Rect{X: 4, Y: 4, W: 2, H: 2}) {
		t.Fatalf("sub rect = %v", sub.Rect())
	}
}

func TestCoverAndBlend_OverlappingViews(t *testing.T) {
	tests := []struct {
		name     string
		src, dst Rect
	}{
		{"down right", Rect{X: 0, Y: 0, W: 6, H: 6}, Rect{X: 2, Y: 2, W: 6, H: 6}},
		{"up left", Rect{X: 2, Y: 2, W: 6, H: 6}, Rect{X: 0, Y: 0, W: 6, H: 6}},
		{"same rows right", Rect{X: 0, Y: 1, W: 5, H: 4}, Rect{X: 3, Y: 1, W: 5, H: 4}},
	}
	ops := map[string]func(dst, src ROI){
		"cover": ROI.Cover,
		"blend": ROI.Blend,
	}
	for _, tt := range tests {
		for opName, op := range ops {
			img := patternImage(8, 8)
			detached := NewImage(tt.src.W, tt.src.H)
			detached.ROI(detached.Bounds()).Cover(img.ROI(tt.src))

			want := img.Clone()
			op(want.ROI(tt.dst), detached.ROI(detached.Bounds()))
			op(img.ROI(tt.dst), img.ROI(tt.src))

			if diff := cmp.Diff(want.Pix(), img.Pix()); diff != "" {
				t.Fatalf("%s %s: overlapping copy mismatch (-want +got):\n%s", tt.name, opName, diff)
			}
		}
	}
}
