package tiling

import (
	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/gfx"
)

// Candidate is a window the tiler may place, in tiling order.
type Candidate struct {
	ID        uint32
	W, H      int
	Resizable bool
}

// Placement is the target geometry for one candidate. Resize is false
// when only the position changes.
type Placement struct {
	ID     uint32
	Rect   gfx.Rect
	Resize bool
}

// Plan assigns layout slots to candidates in order. Windows that cannot be
// resized keep their size and are centred in their slot, pinned to the
// slot origin when larger than it. Candidates past the layout's capacity
// get no placement.
func Plan(candidates []Candidate, screen gfx.Rect, layout *config.Layout, gap int) ([]Placement, error) {
	region := ApplyRegion(screen, layout.TileRegion)
	slots, err := CalculatePositionsWithLayout(len(candidates), region, layout, gap)
	if err != nil {
		return nil, err
	}

	out := make([]Placement, 0, len(slots))
	for i, slot := range slots {
		c := candidates[i]
		if c.Resizable {
			out = append(out, Placement{ID: c.ID, Rect: slot, Resize: true})
			continue
		}
		x := slot.X + max(0, (slot.W-c.W)/2)
		y := slot.Y + max(0, (slot.H-c.H)/2)
		out = append(out, Placement{ID: c.ID, Rect: gfx.Rect{X: x, Y: y, W: c.W, H: c.H}})
	}
	return out, nil
}
