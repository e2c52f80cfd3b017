package gfx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a straight (non-premultiplied) RGBA pixel, 8 bits per channel.
// It is the only pixel format the compositor stores internally.
type Color struct {
	R, G, B, A uint8
}

// Common colors.
var (
	Transparent = Color{}
	Black       = Color{A: 255}
	White       = Color{R: 255, G: 255, B: 255, A: 255}
)

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// RGBA returns a color with explicit alpha.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// BGRA encodes the color in the byte order most linear framebuffers use.
func (c Color) BGRA() [4]byte {
	return [4]byte{c.B, c.G, c.R, c.A}
}

// RGBA encodes the color in memory order R, G, B, A.
func (c Color) RGBA() [4]byte {
	return [4]byte{c.R, c.G, c.B, c.A}
}

// Opaque reports whether the color has full alpha.
func (c Color) Opaque() bool {
	return c.A == 255
}

// Over composites c on top of dst:
//
//	out.rgb = c.rgb*c.a/255 + dst.rgb*(255-c.a)/255
//	out.a   = c.a + dst.a*(255-c.a)/255
func (c Color) Over(dst Color) Color {
	switch c.A {
	case 255:
		return c
	case 0:
		return dst
	}
	sa := uint32(c.A)
	ia := 255 - sa
	return Color{
		R: uint8((uint32(c.R)*sa + uint32(dst.R)*ia) / 255),
		G: uint8((uint32(c.G)*sa + uint32(dst.G)*ia) / 255),
		B: uint8((uint32(c.B)*sa + uint32(dst.B)*ia) / 255),
		A: uint8(sa + uint32(dst.A)*ia/255),
	}
}

// Hex formats the color as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string {
	return c.Hex()
}

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa". Colors without an alpha
// component are opaque.
func ParseHex(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	alpha := uint8(255)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = uint8(a)
		s = s[:7]
	}
	if len(s) == 4 {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}

	cf, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := cf.RGB255()
	return Color{R: r, G: g, B: b, A: alpha}, nil
}
