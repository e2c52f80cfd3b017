package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/starry/internal/gfx"
)

func TestBandRows(t *testing.T) {
	tests := []struct {
		w, max int
		want   int
	}{
		{w: 100, max: 262140, want: 655},
		{w: 1, max: 28, want: 1},
		{w: 10, max: 24, want: 0},
		{w: 0, max: 1 << 20, want: 0},
	}
	for _, tt := range tests {
		if got := bandRows(tt.w, tt.max); got != tt.want {
			t.Fatalf("bandRows(%d, %d) = %d, want %d", tt.w, tt.max, got, tt.want)
		}
	}
}

func TestPackRect(t *testing.T) {
	// 3x2 buffer with a 16-byte stride (one pixel of padding per row).
	stride := 16
	buf := make([]byte, stride*2)
	for i := range buf {
		buf[i] = byte(i)
	}

	got := packRect(buf, stride, gfx.NewRect(1, 0, 2, 2))
	want := []byte{
		4, 5, 6, 7, 8, 9, 10, 11,
		20, 21, 22, 23, 24, 25, 26, 27,
	}
	if string(got) != string(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestButtonMask(t *testing.T) {
	if got := buttonMask(xproto.ButtonMask1 | xproto.ButtonMask3); got != 0b101 {
		t.Fatalf("got %b, want 101", got)
	}
	if got := buttonMask(xproto.ModMaskShift); got != 0 {
		t.Fatalf("got %b, want 0", got)
	}
}

func TestButtonEvent(t *testing.T) {
	ev := buttonEvent(2, xproto.ButtonMask2, 30, 40, true)
	if ev.Code != 2 || !ev.Pressed || ev.X != 30 || ev.Y != 40 || ev.Buttons != 0b10 {
		t.Fatalf("unexpected event %+v", ev)
	}
}
