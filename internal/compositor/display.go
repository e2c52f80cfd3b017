package compositor

import (
	"errors"
	"sort"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/platform"
)

// Display owns the master image and the window stack. It is not safe for
// concurrent use; the compositor loop is its only caller.
type Display struct {
	master     *gfx.Image
	background gfx.Color
	windows    []*Window
	nextSeq    uint64
	damage     *DamageTracker
}

// NewDisplay creates a display whose whole screen is pending damage, so the
// first repaint paints the background.
func NewDisplay(width, height int, background gfx.Color, maxDamageRects int) *Display {
	master := gfx.NewImageFilled(width, height, background)
	d := &Display{
		master:     master,
		background: background,
		damage:     NewDamageTracker(master.Bounds(), maxDamageRects),
	}
	d.damage.AddAll()
	return d
}

func (d *Display) Width() int            { return d.master.Width() }
func (d *Display) Height() int           { return d.master.Height() }
func (d *Display) Bounds() gfx.Rect      { return d.master.Bounds() }
func (d *Display) Master() *gfx.Image    { return d.master }
func (d *Display) Background() gfx.Color { return d.background }

// SetBackground changes the fill colour and damages the whole screen.
func (d *Display) SetBackground(c gfx.Color) {
	if c == d.background {
		return
	}
	d.background = c
	d.damage.AddAll()
}

// SetMaxDamageRects changes the damage collapse threshold.
func (d *Display) SetMaxDamageRects(n int) {
	d.damage.SetMax(n)
}

func (d *Display) sortWindows() {
	sort.Slice(d.windows, func(i, j int) bool {
		a, b := d.windows[i], d.windows[j]
		if a.ZOrder != b.ZOrder {
			return a.ZOrder < b.ZOrder
		}
		return a.seq < b.seq
	})
}

func (d *Display) takeSeq() uint64 {
	d.nextSeq++
	return d.nextSeq
}

// Add inserts w above every window already in its tier and damages its rect.
func (d *Display) Add(w *Window) {
	w.seq = d.takeSeq()
	d.windows = append(d.windows, w)
	d.sortWindows()
	d.Damage(w.Rect())
}

// Remove detaches a window and damages the rect it occupied.
func (d *Display) Remove(id WindowID) (*Window, bool) {
	for i, w := range d.windows {
		if w.ID != id {
			continue
		}
		d.windows = append(d.windows[:i], d.windows[i+1:]...)
		d.Damage(w.Rect())
		return w, true
	}
	return nil, false
}

// Window returns the window with the given id.
func (d *Display) Window(id WindowID) (*Window, bool) {
	for _, w := range d.windows {
		if w.ID == id {
			return w, true
		}
	}
	return nil, false
}

// Windows returns the stack back-to-front.
func (d *Display) Windows() []*Window {
	out := make([]*Window, len(d.windows))
	copy(out, d.windows)
	return out
}

// Len returns the number of windows on the display.
func (d *Display) Len() int {
	return len(d.windows)
}

// Topmost returns the front-most window containing the screen point.
func (d *Display) Topmost(x, y int) (*Window, bool) {
	for i := len(d.windows) - 1; i >= 0; i-- {
		if d.windows[i].Rect().Contains(x, y) {
			return d.windows[i], true
		}
	}
	return nil, false
}

// damageStacking damages w plus every window overlapping it, which covers
// all pixels whose visible owner can change with a restack.
func (d *Display) damageStacking(w *Window) {
	self := w.Rect()
	d.Damage(self)
	for _, other := range d.windows {
		if other != w && other.Rect().Overlaps(self) {
			d.Damage(other.Rect())
		}
	}
}

// SetZOrder moves a window to another tier, placing it on top of that tier.
func (d *Display) SetZOrder(id WindowID, z ZOrder) bool {
	w, ok := d.Window(id)
	if !ok {
		return false
	}
	w.ZOrder = z
	w.seq = d.takeSeq()
	d.sortWindows()
	d.damageStacking(w)
	return true
}

// Raise puts a window on top of its tier.
func (d *Display) Raise(id WindowID) bool {
	w, ok := d.Window(id)
	if !ok {
		return false
	}
	w.seq = d.takeSeq()
	d.sortWindows()
	d.damageStacking(w)
	return true
}

// Move repositions a window, damaging the old and new rects.
func (d *Display) Move(id WindowID, x, y int) bool {
	w, ok := d.Window(id)
	if !ok {
		return false
	}
	if w.X == x && w.Y == y {
		return true
	}
	d.Damage(w.Rect())
	w.X, w.Y = x, y
	d.Damage(w.Rect())
	return true
}

// Resize changes a window's image size, damaging the old and new rects.
func (d *Display) Resize(id WindowID, width, height int) bool {
	w, ok := d.Window(id)
	if !ok {
		return false
	}
	d.Damage(w.Rect())
	w.Resize(width, height)
	d.Damage(w.Rect())
	return true
}

// UpdateWindow applies a pixel update to a window and damages what changed.
func (d *Display) UpdateWindow(id WindowID, local gfx.Rect, src *gfx.Image) (gfx.Rect, bool) {
	w, ok := d.Window(id)
	if !ok {
		return gfx.Rect{}, false
	}
	changed := w.Update(local, src)
	d.Damage(changed)
	return changed, true
}

// Damage enqueues a screen rect for the next repaint. Parts outside the
// screen are dropped.
func (d *Display) Damage(r gfx.Rect) {
	d.damage.Add(r)
}

// DamageAll marks the whole screen dirty.
func (d *Display) DamageAll() {
	d.damage.AddAll()
}

// PendingDamage returns the rects the next repaint will process.
func (d *Display) PendingDamage() []gfx.Rect {
	return d.damage.Pending()
}

// Dirty reports whether a repaint has anything to do.
func (d *Display) Dirty() bool {
	return d.damage.Dirty()
}

// Composite rebuilds the master image inside r: background first, then
// every window back-to-front.
func (d *Display) Composite(r gfx.Rect) {
	r = r.Intersection(d.master.Bounds())
	if r.Empty() {
		return
	}
	d.master.ROI(r).Fill(d.background)
	for _, w := range d.windows {
		w.Draw(d.master, r)
	}
}

// Repaint composites and flushes all pending damage. It returns the rects
// written and any device errors; compositing itself never fails.
func (d *Display) Repaint(dev platform.Device) ([]gfx.Rect, error) {
	rects := d.damage.Take()
	if len(rects) == 0 {
		return nil, nil
	}

	var errs []error
	for _, r := range rects {
		d.Composite(r)
		if dev == nil {
			continue
		}
		if err := Flush(dev, d.master, r); err != nil {
			errs = append(errs, err)
		}
	}
	if p, ok := dev.(platform.Presenter); ok {
		if err := p.Present(rects); err != nil {
			errs = append(errs, err)
		}
	}
	return rects, errors.Join(errs...)
}
