package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/1broseidon/starry/internal/gfx"
	"gopkg.in/yaml.v3"
)

// LayoutMode defines how tiled windows are arranged.
type LayoutMode string

const (
	LayoutModeAuto        LayoutMode = "auto"         // Dynamic grid based on count.
	LayoutModeFixed       LayoutMode = "fixed"        // Specific rows × cols.
	LayoutModeVertical    LayoutMode = "vertical"     // Single column stack.
	LayoutModeHorizontal  LayoutMode = "horizontal"   // Single row side-by-side.
	LayoutModeMasterStack LayoutMode = "master-stack" // Master pane left, stack grid right.
)

// RegionType defines tile region presets.
type RegionType string

const (
	RegionFull       RegionType = "full"
	RegionLeftHalf   RegionType = "left-half"
	RegionRightHalf  RegionType = "right-half"
	RegionTopHalf    RegionType = "top-half"
	RegionBottomHalf RegionType = "bottom-half"
	RegionCustom     RegionType = "custom"
)

// TileRegion defines which part of the screen tiling fills.
type TileRegion struct {
	Type          RegionType `yaml:"type"`
	XPercent      int        `yaml:"x_percent,omitempty"`      // 0-100
	YPercent      int        `yaml:"y_percent,omitempty"`      // 0-100
	WidthPercent  int        `yaml:"width_percent,omitempty"`  // 0-100
	HeightPercent int        `yaml:"height_percent,omitempty"` // 0-100
}

// FixedGrid defines specific grid dimensions.
type FixedGrid struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// MasterStack defines the master-stack layout parameters.
type MasterStack struct {
	MasterWidthPercent int `yaml:"master_width_percent"` // 10-90
	MaxStackRows       int `yaml:"max_stack_rows"`
	MaxStackCols       int `yaml:"max_stack_cols"`
}

// Layout defines a tiling configuration.
type Layout struct {
	Mode            LayoutMode  `yaml:"mode"`
	TileRegion      TileRegion  `yaml:"tile_region"`
	FixedGrid       FixedGrid   `yaml:"fixed_grid,omitempty"`
	MasterStack     MasterStack `yaml:"master_stack,omitempty"`
	MaxWindowWidth  int         `yaml:"max_window_width,omitempty"`  // 0 = unlimited
	MaxWindowHeight int         `yaml:"max_window_height,omitempty"` // 0 = unlimited
	FlexibleLastRow bool        `yaml:"flexible_last_row,omitempty"` // auto mode only
}

const (
	BackendFbdev  = "fbdev"
	BackendX11    = "x11"
	BackendMemory = "memory"
)

// DeviceConfig selects the output device. Width and height size the x11
// and memory backends; fbdev reports its own geometry.
type DeviceConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Display string `yaml:"display,omitempty"`
}

// CompositorConfig holds the loop budgets and per-client limits.
type CompositorConfig struct {
	DrainBudget     int `yaml:"drain_budget"`
	InboxCapacity   int `yaml:"inbox_capacity"`
	OutboxCapacity  int `yaml:"outbox_capacity"`
	MaxDamageRects  int `yaml:"max_damage_rects"`
	MaxMessageBytes int `yaml:"max_message_bytes"`
	WriteTimeoutMs  int `yaml:"write_timeout_ms"`
	MaxWindowWidth  int `yaml:"max_window_width"`
	MaxWindowHeight int `yaml:"max_window_height"`
}

// TilingConfig configures the built-in tiling policy.
type TilingConfig struct {
	GapSize       int               `yaml:"gap_size"`
	DefaultLayout string            `yaml:"default_layout"`
	Layouts       map[string]Layout `yaml:"layouts"`
}

// HotkeyConfig maps policy actions to X11 key sequences (x11 backend only).
// An empty sequence disables the binding.
type HotkeyConfig struct {
	Tile         string `yaml:"tile"`
	CycleLayout  string `yaml:"cycle_layout"`
	CycleFocus   string `yaml:"cycle_focus"`
	CloseFocused string `yaml:"close_focused"`
	RaiseFront   string `yaml:"raise_front"`
}

// Config holds the application configuration.
type Config struct {
	Include    includeList      `yaml:"include,omitempty"`
	Device     DeviceConfig     `yaml:"device"`
	SocketPath string           `yaml:"socket_path,omitempty"`
	Background string           `yaml:"background"`
	LogLevel   string           `yaml:"log_level"`
	Compositor CompositorConfig `yaml:"compositor"`
	Tiling     TilingConfig     `yaml:"tiling"`
	Hotkeys    HotkeyConfig     `yaml:"hotkeys"`
}

// includeList accepts either a single path or a list of paths.
type includeList []string

func (l *includeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = includeList{value.Value}
		return nil
	case yaml.SequenceNode:
		var paths []string
		if err := value.Decode(&paths); err != nil {
			return err
		}
		*l = paths
		return nil
	default:
		return fmt.Errorf("include must be a path or a list of paths")
	}
}

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend: BackendFbdev,
			Path:    "/dev/fb0",
			Width:   1024,
			Height:  768,
		},
		Background: "#1e2430",
		LogLevel:   "info",
		Compositor: CompositorConfig{
			DrainBudget:     32,
			InboxCapacity:   64,
			OutboxCapacity:  64,
			MaxDamageRects:  16,
			MaxMessageBytes: 96 << 20,
			WriteTimeoutMs:  2000,
			MaxWindowWidth:  4096,
			MaxWindowHeight: 4096,
		},
		Tiling: TilingConfig{
			GapSize:       8,
			DefaultLayout: DefaultBuiltinLayout,
			Layouts:       BuiltinLayouts(),
		},
		Hotkeys: HotkeyConfig{
			Tile:         "Mod4-t",
			CycleLayout:  "Mod4-space",
			CycleFocus:   "Mod1-Tab",
			CloseFocused: "Mod4-q",
			RaiseFront:   "Mod4-Up",
		},
	}
}

// WriteTimeout returns the per-message write deadline for client connections.
func (c *Config) WriteTimeout() time.Duration {
	if c == nil || c.Compositor.WriteTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Compositor.WriteTimeoutMs) * time.Millisecond
}

// BackgroundColor parses Background, falling back to black.
func (c *Config) BackgroundColor() gfx.Color {
	if c == nil {
		return gfx.Black
	}
	col, err := gfx.ParseHex(c.Background)
	if err != nil {
		return gfx.Black
	}
	return col
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLayout retrieves a layout by name with validation.
func (c *Config) GetLayout(name string) (*Layout, error) {
	layout, ok := c.Tiling.Layouts[name]
	if !ok {
		return nil, fmt.Errorf("layout %q not found", name)
	}

	if err := validateLayout(&layout); err != nil {
		return nil, fmt.Errorf("invalid layout %q: %w", name, err)
	}

	return &layout, nil
}

// LayoutNames returns the configured layout names in sorted order.
func (c *Config) LayoutNames() []string {
	names := make([]string, 0, len(c.Tiling.Layouts))
	for name := range c.Tiling.Layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML, leaving out unchanged builtin layouts.
func (c *Config) Marshal() ([]byte, error) {
	save := *c
	save.Include = nil
	save.Tiling.Layouts = layoutsForSave(c.Tiling.Layouts)

	data, err := yaml.Marshal(&save)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func layoutsForSave(layouts map[string]Layout) map[string]Layout {
	builtin := BuiltinLayouts()
	out := make(map[string]Layout)
	for name, layout := range layouts {
		if base, ok := builtin[name]; ok && base == layout {
			continue
		}
		out[name] = layout
	}
	return out
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.Device.Backend {
	case BackendFbdev:
		if strings.TrimSpace(c.Device.Path) == "" {
			return &ValidationError{Path: "device.path", Err: fmt.Errorf("path is required for the fbdev backend")}
		}
	case BackendX11, BackendMemory:
		if c.Device.Width <= 0 || c.Device.Height <= 0 {
			return &ValidationError{Path: "device", Err: fmt.Errorf("width and height must be > 0 for the %s backend", c.Device.Backend)}
		}
	default:
		return &ValidationError{Path: "device.backend", Err: fmt.Errorf("backend must be one of: fbdev, x11, memory")}
	}

	if _, err := gfx.ParseHex(c.Background); err != nil {
		return &ValidationError{Path: "background", Err: err}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}

	comp := c.Compositor
	positive := []struct {
		path  string
		value int
	}{
		{"compositor.drain_budget", comp.DrainBudget},
		{"compositor.inbox_capacity", comp.InboxCapacity},
		{"compositor.outbox_capacity", comp.OutboxCapacity},
		{"compositor.max_damage_rects", comp.MaxDamageRects},
		{"compositor.max_message_bytes", comp.MaxMessageBytes},
		{"compositor.write_timeout_ms", comp.WriteTimeoutMs},
		{"compositor.max_window_width", comp.MaxWindowWidth},
		{"compositor.max_window_height", comp.MaxWindowHeight},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ValidationError{Path: p.path, Err: fmt.Errorf("must be > 0")}
		}
	}
	if need := MinMessageBytes(comp.MaxWindowWidth, comp.MaxWindowHeight); comp.MaxMessageBytes < need {
		return &ValidationError{
			Path: "compositor.max_message_bytes",
			Err:  fmt.Errorf("must be at least %d to carry a full %dx%d update", need, comp.MaxWindowWidth, comp.MaxWindowHeight),
		}
	}

	if c.Tiling.GapSize < 0 {
		return &ValidationError{Path: "tiling.gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}
	if len(c.Tiling.Layouts) == 0 {
		return &ValidationError{Path: "tiling.layouts", Err: fmt.Errorf("layouts must not be empty")}
	}
	if c.Tiling.DefaultLayout == "" {
		return &ValidationError{Path: "tiling.default_layout", Err: fmt.Errorf("default_layout is required")}
	}
	if _, ok := c.Tiling.Layouts[c.Tiling.DefaultLayout]; !ok {
		return &ValidationError{Path: "tiling.default_layout", Err: fmt.Errorf("default_layout %q not found in layouts", c.Tiling.DefaultLayout)}
	}
	for name, layout := range c.Tiling.Layouts {
		layout := layout
		if err := validateLayout(&layout); err != nil {
			return &ValidationError{Path: "tiling.layouts." + name, Err: err}
		}
	}

	return nil
}

// MinMessageBytes is the smallest line limit that fits an UPDATE covering a
// whole width x height window, plus room for the JSON envelope.
func MinMessageBytes(width, height int) int {
	return base64.StdEncoding.EncodedLen(width*height*gfx.BytesPerPixel) + 4096
}

// validateLayout checks if a layout configuration is valid.
func validateLayout(layout *Layout) error {
	switch layout.Mode {
	case LayoutModeAuto, LayoutModeFixed, LayoutModeVertical, LayoutModeHorizontal, LayoutModeMasterStack:
	default:
		return fmt.Errorf("invalid mode %q", layout.Mode)
	}

	if layout.Mode == LayoutModeFixed {
		if layout.FixedGrid.Rows <= 0 || layout.FixedGrid.Cols <= 0 {
			return fmt.Errorf("fixed mode requires rows and cols to be positive")
		}
	}

	if layout.Mode == LayoutModeMasterStack {
		if layout.MasterStack.MasterWidthPercent < 10 || layout.MasterStack.MasterWidthPercent > 90 {
			return fmt.Errorf("master_stack.master_width_percent must be between 10 and 90")
		}
		if layout.MasterStack.MaxStackRows < 1 {
			return fmt.Errorf("master_stack.max_stack_rows must be >= 1")
		}
		if layout.MasterStack.MaxStackCols < 1 {
			return fmt.Errorf("master_stack.max_stack_cols must be >= 1")
		}
	}

	if layout.MaxWindowWidth < 0 || layout.MaxWindowHeight < 0 {
		return fmt.Errorf("max_window_width/height must be >= 0")
	}

	switch layout.TileRegion.Type {
	case RegionFull, RegionLeftHalf, RegionRightHalf, RegionTopHalf, RegionBottomHalf:
	case RegionCustom:
		r := layout.TileRegion
		if r.XPercent < 0 || r.XPercent > 100 || r.YPercent < 0 || r.YPercent > 100 {
			return fmt.Errorf("x_percent and y_percent must be between 0 and 100")
		}
		if r.WidthPercent <= 0 || r.WidthPercent > 100 || r.HeightPercent <= 0 || r.HeightPercent > 100 {
			return fmt.Errorf("width_percent and height_percent must be between 1 and 100")
		}
		if r.XPercent+r.WidthPercent > 100 || r.YPercent+r.HeightPercent > 100 {
			return fmt.Errorf("custom region must stay inside the screen")
		}
	default:
		return fmt.Errorf("invalid region type %q", layout.TileRegion.Type)
	}

	return nil
}

// ValidationError ties a validation failure to its YAML path and, when
// loaded from a file, the line that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
