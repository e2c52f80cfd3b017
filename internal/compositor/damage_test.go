package compositor

import (
	"testing"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/google/go-cmp/cmp"
)

func TestDamageTracker_ClipsAndMerges(t *testing.T) {
	d := NewDamageTracker(gfx.Rect{W: 100, H: 100}, 8)

	d.Add(gfx.Rect{X: -10, Y: -10, W: 20, H: 20})
	d.Add(gfx.Rect{X: 200, Y: 200, W: 5, H: 5})
	d.Add(gfx.Rect{X: 50, Y: 50, W: 10, H: 10})
	want := []gfx.Rect{{X: 0, Y: 0, W: 10, H: 10}, {X: 50, Y: 50, W: 10, H: 10}}
	if diff := cmp.Diff(want, d.Pending()); diff != "" {
		t.Fatalf("pending (-want +got):\n%s", diff)
	}

	// Bridges both existing rects.
	d.Add(gfx.Rect{X: 5, Y: 5, W: 50, H: 50})
	want = []gfx.Rect{{X: 0, Y: 0, W: 60, H: 60}}
	if diff := cmp.Diff(want, d.Pending()); diff != "" {
		t.Fatalf("after bridge (-want +got):\n%s", diff)
	}

	if got := d.Take(); len(got) != 1 || d.Dirty() {
		t.Fatalf("take = %v, dirty = %v", got, d.Dirty())
	}
}

func TestDamageTracker_CollapsesPastMax(t *testing.T) {
	d := NewDamageTracker(gfx.Rect{W: 100, H: 100}, 3)
	for i := 0; i < 4; i++ {
		d.Add(gfx.Rect{X: i * 20, Y: i * 20, W: 5, H: 5})
	}
	want := []gfx.Rect{{X: 0, Y: 0, W: 65, H: 65}}
	if diff := cmp.Diff(want, d.Pending()); diff != "" {
		t.Fatalf("collapsed (-want +got):\n%s", diff)
	}
}
