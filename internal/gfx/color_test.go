package gfx

import "testing"

func TestColorBGRA(t *testing.T) {
	got := RGBA(1, 2, 3, 4).BGRA()
	if got != [4]byte{3, 2, 1, 4} {
		t.Fatalf("BGRA() = %v", got)
	}
}

func TestOver_Boundaries(t *testing.T) {
	dst := RGBA(10, 20, 30, 200)
	src := RGBA(200, 100, 50, 255)
	if got := src.Over(dst); got != src {
		t.Fatalf("opaque over = %v, want %v", got, src)
	}
	if got := RGBA(200, 100, 50, 0).Over(dst); got != dst {
		t.Fatalf("transparent over = %v, want %v", got, dst)
	}
}

func TestOver_HalfAlpha(t *testing.T) {
	got := RGBA(255, 0, 0, 128).Over(RGB(0, 0, 255))
	// 255*128/255 = 128 ; 255*127/255 = 127
	if got.R != 128 || got.G != 0 || got.B != 127 || got.A != 255 {
		t.Fatalf("half alpha over = %v", got)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#1e2430", RGB(0x1e, 0x24, 0x30)},
		{"ff0000", RGB(255, 0, 0)},
		{"#fff", RGB(255, 255, 255)},
		{"#00ff0080", RGBA(0, 255, 0, 0x80)},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if err != nil {
			t.Fatalf("ParseHex(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseHex_Invalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#zzzzzz", "#112233zz"} {
		if _, err := ParseHex(in); err == nil {
			t.Fatalf("ParseHex(%q) expected error", in)
		}
	}
}
