//go:build linux

package platform

import "testing"

func TestVisibleBase_PannedPage(t *testing.T) {
	vinfo := fbVarScreenInfo{XRes: 640, YRes: 480, XResVirtual: 642, YResVirtual: 960, YOffset: 480, XOffset: 2}
	stride := 642 * 4
	finfo := fbFixScreenInfo{SmemLen: uint32(stride * 960)}

	base, err := visibleBase(&vinfo, &finfo, stride)
	if err != nil {
		t.Fatalf("visibleBase: %v", err)
	}
	if want := int64(480*stride + 2*4); base != want {
		t.Fatalf("base = %d, want %d", base, want)
	}

	vinfo.XOffset, vinfo.YOffset = 0, 0
	if base, err := visibleBase(&vinfo, &finfo, stride); err != nil || base != 0 {
		t.Fatalf("unpanned base = %d, %v; want 0", base, err)
	}
}

func TestVisibleBase_RejectsPageOutsideMemory(t *testing.T) {
	vinfo := fbVarScreenInfo{XRes: 640, YRes: 480, YOffset: 481}
	stride := 640 * 4
	finfo := fbFixScreenInfo{SmemLen: uint32(stride * 960)}
	if _, err := visibleBase(&vinfo, &finfo, stride); err == nil {
		t.Fatalf("page past the end of memory accepted")
	}
}
