package compositor

import (
	"fmt"
	"strings"

	"github.com/1broseidon/starry/internal/gfx"
)

// WindowID identifies a server window for the lifetime of the compositor.
type WindowID uint32

// ZOrder is the coarse stacking tier of a window. Lower tiers paint first.
// The zero value is ZNormal.
type ZOrder int

const (
	ZBack ZOrder = iota - 1
	ZNormal
	ZFront
)

func (z ZOrder) String() string {
	switch z {
	case ZBack:
		return "back"
	case ZNormal:
		return "normal"
	case ZFront:
		return "front"
	default:
		return fmt.Sprintf("zorder(%d)", int(z))
	}
}

// ParseZOrder accepts back, normal or front (case-insensitive).
func ParseZOrder(s string) (ZOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "back":
		return ZBack, nil
	case "", "normal":
		return ZNormal, nil
	case "front":
		return ZFront, nil
	default:
		return ZNormal, fmt.Errorf("unknown zorder %q (want back, normal or front)", s)
	}
}

func (z ZOrder) MarshalText() ([]byte, error) {
	if z < ZBack || z > ZFront {
		return nil, fmt.Errorf("invalid zorder %d", int(z))
	}
	return []byte(z.String()), nil
}

func (z *ZOrder) UnmarshalText(text []byte) error {
	parsed, err := ParseZOrder(string(text))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}

// Flags are the per-window behaviour switches requested at connect time.
type Flags struct {
	Borderless  bool `json:"borderless,omitempty"`
	Resizable   bool `json:"resizable,omitempty"`
	Transparent bool `json:"transparent,omitempty"`
	Unclosable  bool `json:"unclosable,omitempty"`
}

// Window is the server half of a client window. It exclusively owns its
// Image; geometry is always position plus current image size.
type Window struct {
	ID     WindowID
	X      int
	Y      int
	Scale  int
	Title  string
	Flags  Flags
	ZOrder ZOrder
	Image  *gfx.Image

	events []Event
	seq    uint64
}

// NewWindow creates a Normal-tier window with a transparent image.
func NewWindow(id WindowID, x, y, width, height int) *Window {
	return &Window{
		ID:     id,
		X:      x,
		Y:      y,
		Scale:  1,
		ZOrder: ZNormal,
		Image:  gfx.NewImage(width, height),
	}
}

func (w *Window) Width() int  { return w.Image.Width() }
func (w *Window) Height() int { return w.Image.Height() }

// Rect returns the window's screen-space rect.
func (w *Window) Rect() gfx.Rect {
	return gfx.NewRect(w.X, w.Y, w.Width(), w.Height())
}

// Draw composites the part of the window inside damage (screen space) into
// target. Transparent windows blend; opaque ones cover.
func (w *Window) Draw(target *gfx.Image, damage gfx.Rect) {
	self := w.Rect()
	inter := self.Intersection(damage)
	if inter.Empty() {
		return
	}

	dst := target.ROI(inter)
	src := w.Image.ROI(inter.Offset(-self.Left(), -self.Top()))
	if w.Flags.Transparent {
		dst.Blend(src)
	} else {
		dst.Cover(src)
	}
}

// Update covers the local rect of the window image with src, whose top-left
// pixel maps to local.X, local.Y. Parts of local outside the image are
// dropped. It returns the screen-space rect that changed.
func (w *Window) Update(local gfx.Rect, src *gfx.Image) gfx.Rect {
	clip := local.Intersection(w.Image.Bounds())
	if clip.Empty() {
		return gfx.Rect{}
	}
	w.Image.ROI(clip).Cover(src.ROI(clip.Offset(-local.X, -local.Y)))
	return clip.Offset(w.X, w.Y)
}

// Resize swaps the image for one of the new size, keeping overlapping content.
func (w *Window) Resize(width, height int) {
	if width == w.Width() && height == w.Height() {
		return
	}
	w.Image = w.Image.Resize(width, height)
}

// PushEvent appends to the FIFO event queue.
func (w *Window) PushEvent(e Event) {
	w.events = append(w.events, e)
}

// DrainEvents removes and returns every queued event in arrival order.
func (w *Window) DrainEvents() []Event {
	if len(w.events) == 0 {
		return nil
	}
	out := w.events
	w.events = nil
	return out
}

// PendingEvents returns the queue length.
func (w *Window) PendingEvents() int {
	return len(w.events)
}
