package config

// DefaultBuiltinLayout is the layout TILE uses when none is named.
const DefaultBuiltinLayout = "auto"

// BuiltinLayouts returns the built-in layout library.
//
// These are always available without defining them in YAML. Users can
// override them or add custom layouts under tiling.layouts.
func BuiltinLayouts() map[string]Layout {
	return map[string]Layout{
		"auto": {
			Mode:            LayoutModeAuto,
			TileRegion:      TileRegion{Type: RegionFull},
			FlexibleLastRow: true,
		},
		"columns": {
			Mode:       LayoutModeHorizontal,
			TileRegion: TileRegion{Type: RegionFull},
		},
		"rows": {
			Mode:       LayoutModeVertical,
			TileRegion: TileRegion{Type: RegionFull},
		},
		"half-left": {
			Mode:            LayoutModeAuto,
			TileRegion:      TileRegion{Type: RegionLeftHalf},
			FlexibleLastRow: true,
		},
		"half-right": {
			Mode:            LayoutModeAuto,
			TileRegion:      TileRegion{Type: RegionRightHalf},
			FlexibleLastRow: true,
		},
		"master-stack": {
			Mode:       LayoutModeMasterStack,
			TileRegion: TileRegion{Type: RegionFull},
			MasterStack: MasterStack{
				MasterWidthPercent: 50,
				MaxStackRows:       3,
				MaxStackCols:       2,
			},
		},
	}
}
