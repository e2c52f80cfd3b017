package compositor

import "github.com/1broseidon/starry/internal/gfx"

// DefaultMaxDamageRects is the pending-rect count after which all damage
// collapses into one bounding box.
const DefaultMaxDamageRects = 16

// DamageTracker accumulates screen regions that need recompositing.
//
// Overlapping rects merge into their bounding box, and once more than max
// disjoint rects are pending everything collapses into a single box. Both
// trade a few redundant pixels for a bounded number of flushes.
type DamageTracker struct {
	bounds gfx.Rect
	max    int
	rects  []gfx.Rect
}

// NewDamageTracker creates a tracker clipping to bounds.
func NewDamageTracker(bounds gfx.Rect, max int) *DamageTracker {
	if max <= 0 {
		max = DefaultMaxDamageRects
	}
	return &DamageTracker{bounds: bounds, max: max}
}

// Add records r, clipped to the tracker bounds. Empty rects are ignored.
func (d *DamageTracker) Add(r gfx.Rect) {
	r = r.Intersection(d.bounds)
	if r.Empty() {
		return
	}

	// Absorb every pending rect that overlaps r; growing r may create
	// new overlaps so repeat until stable.
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(d.rects); i++ {
			if d.rects[i].Overlaps(r) {
				r = r.Union(d.rects[i])
				d.rects = append(d.rects[:i], d.rects[i+1:]...)
				merged = true
				i--
			}
		}
	}
	d.rects = append(d.rects, r)

	if len(d.rects) > d.max {
		var all gfx.Rect
		for _, pending := range d.rects {
			all = all.Union(pending)
		}
		d.rects = append(d.rects[:0], all)
	}
}

// AddAll marks the whole bounds as damaged.
func (d *DamageTracker) AddAll() {
	d.rects = append(d.rects[:0], d.bounds)
}

// Pending returns a copy of the pending rects.
func (d *DamageTracker) Pending() []gfx.Rect {
	out := make([]gfx.Rect, len(d.rects))
	copy(out, d.rects)
	return out
}

// Dirty reports whether any damage is pending.
func (d *DamageTracker) Dirty() bool {
	return len(d.rects) > 0
}

// Take returns the pending rects and clears the tracker.
func (d *DamageTracker) Take() []gfx.Rect {
	out := d.rects
	d.rects = nil
	return out
}

// SetMax changes the collapse threshold for subsequent adds.
func (d *DamageTracker) SetMax(max int) {
	if max <= 0 {
		max = DefaultMaxDamageRects
	}
	d.max = max
}
