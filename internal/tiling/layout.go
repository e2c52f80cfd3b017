package tiling

import (
	"fmt"
	"math"

	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/gfx"
)

// CalculateGrid determines the near-square grid for n windows: columns are
// the ceiling of the square root, rows whatever is then needed.
func CalculateGrid(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = int(math.Ceil(float64(n) / float64(cols)))
	return rows, cols
}

// gridShape resolves the rows and columns a layout uses for n windows, and
// how many of them it can hold.
func gridShape(layout *config.Layout, n int) (rows, cols, count int, flexible bool, err error) {
	switch layout.Mode {
	case config.LayoutModeAuto:
		rows, cols = CalculateGrid(n)
		return rows, cols, n, layout.FlexibleLastRow, nil
	case config.LayoutModeFixed:
		rows, cols = layout.FixedGrid.Rows, layout.FixedGrid.Cols
		return rows, cols, min(n, rows*cols), false, nil
	case config.LayoutModeVertical:
		return n, 1, n, false, nil
	case config.LayoutModeHorizontal:
		return 1, n, n, false, nil
	default:
		return 0, 0, 0, false, fmt.Errorf("unsupported layout mode: %q", layout.Mode)
	}
}

// CalculatePositionsWithLayout computes n window rects inside screen. Fixed
// grids and master-stack may return fewer rects than n when they are full.
func CalculatePositionsWithLayout(n int, screen gfx.Rect, layout *config.Layout, gap int) ([]gfx.Rect, error) {
	if n <= 0 {
		return nil, nil
	}
	if layout.Mode == config.LayoutModeMasterStack {
		return masterStackPositions(n, screen, layout.MasterStack, gap)
	}

	rows, cols, n, flexible, err := gridShape(layout, n)
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: rows=%d cols=%d", rows, cols)
	}

	slotW := (screen.W - (cols+1)*gap) / cols
	slotH := (screen.H - (rows+1)*gap) / rows
	if slotW <= 0 || slotH <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for layout: screen=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			screen.W, screen.H, rows, cols, gap, slotW, slotH,
		)
	}
	winW := capDim(slotW, layout.MaxWindowWidth)
	winH := capDim(slotH, layout.MaxWindowHeight)

	lastRow := rows - 1
	inLastRow := n - lastRow*cols
	if inLastRow <= 0 {
		inLastRow = cols
	}
	stretchLast := flexible && inLastRow < cols

	positions := make([]gfx.Rect, n)
	for i := range positions {
		row, col := i/cols, i%cols
		sw, ww := slotW, winW
		if stretchLast && row == lastRow {
			// A short last row spreads its windows over the full width.
			sw = (screen.W - (inLastRow+1)*gap) / inLastRow
			ww = capDim(sw, layout.MaxWindowWidth)
		}

		x := screen.X + gap + col*(sw+gap) + (sw-ww)/2
		y := screen.Y + gap + row*(slotH+gap) + (slotH-winH)/2
		positions[i] = gfx.Rect{X: x, Y: y, W: ww, H: winH}
	}
	return positions, nil
}

func capDim(v, max int) int {
	if max > 0 && v > max {
		return max
	}
	return v
}

// masterStackPositions puts the first window in a left pane of fixed width
// and grids the rest on the right, capped at MaxStackRows x MaxStackCols.
func masterStackPositions(n int, screen gfx.Rect, ms config.MasterStack, gap int) ([]gfx.Rect, error) {
	masterW := screen.W*ms.MasterWidthPercent/100 - gap
	paneH := screen.H - 2*gap
	master := gfx.Rect{X: screen.X + gap, Y: screen.Y + gap, W: masterW, H: paneH}
	if n == 1 {
		if masterW <= 0 || paneH <= 0 {
			return nil, fmt.Errorf("insufficient space for master pane: screen=%dx%d gap=%d", screen.W, screen.H, gap)
		}
		return []gfx.Rect{master}, nil
	}

	stack := n - 1
	cols := min(max(int(math.Ceil(float64(stack)/float64(ms.MaxStackRows))), 1), ms.MaxStackCols)
	rows := min(int(math.Ceil(float64(stack)/float64(cols))), ms.MaxStackRows)
	stack = min(stack, rows*cols)

	stackX := screen.X + masterW + 2*gap
	stackW := screen.W - masterW - 3*gap
	cellW := (stackW - (cols-1)*gap) / cols
	cellH := (paneH - (rows-1)*gap) / rows
	if masterW <= 0 || cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for master-stack layout: screen=%dx%d masterWidth=%d cellWidth=%d cellHeight=%d gap=%d",
			screen.W, screen.H, masterW, cellW, cellH, gap,
		)
	}

	positions := make([]gfx.Rect, 0, stack+1)
	positions = append(positions, master)
	for i := 0; i < stack; i++ {
		row, col := i/cols, i%cols
		positions = append(positions, gfx.Rect{
			X: stackX + col*(cellW+gap),
			Y: screen.Y + gap + row*(cellH+gap),
			W: cellW,
			H: cellH,
		})
	}
	return positions, nil
}

// ApplyRegion narrows the screen to the layout's tile region.
func ApplyRegion(screen gfx.Rect, region config.TileRegion) gfx.Rect {
	r := screen
	switch region.Type {
	case config.RegionLeftHalf:
		r.W = screen.W / 2
	case config.RegionRightHalf:
		r.X = screen.X + screen.W/2
		r.W = screen.W / 2
	case config.RegionTopHalf:
		r.H = screen.H / 2
	case config.RegionBottomHalf:
		r.Y = screen.Y + screen.H/2
		r.H = screen.H / 2
	case config.RegionCustom:
		r.X = screen.X + screen.W*region.XPercent/100
		r.Y = screen.Y + screen.H*region.YPercent/100
		r.W = screen.W * region.WidthPercent / 100
		r.H = screen.H * region.HeightPercent / 100
	}
	r.W = max(r.W, 1)
	r.H = max(r.H, 1)
	return r
}
