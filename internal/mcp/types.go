package mcp

import "github.com/1broseidon/starry/internal/ipc"

// StatusInput is the input for the get_status tool.
type StatusInput struct{}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}

// ListLayoutsInput is the input for the list_layouts tool.
type ListLayoutsInput struct{}

// WindowInput selects a single window.
type WindowInput struct {
	ID uint32 `json:"id" jsonschema:"required,Window id as reported by list_windows"`
}

// SetZOrderInput is the input for the set_zorder tool.
type SetZOrderInput struct {
	ID     uint32 `json:"id" jsonschema:"required,Window id"`
	ZOrder string `json:"zorder" jsonschema:"required,Stacking tier: back, normal or front"`
}

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	ID uint32 `json:"id" jsonschema:"required,Window id"`
	X  int    `json:"x" jsonschema:"required,New left edge in screen pixels"`
	Y  int    `json:"y" jsonschema:"required,New top edge in screen pixels"`
}

// ResizeWindowInput is the input for the resize_window tool.
type ResizeWindowInput struct {
	ID uint32 `json:"id" jsonschema:"required,Window id"`
	W  int    `json:"w" jsonschema:"required,New width in pixels"`
	H  int    `json:"h" jsonschema:"required,New height in pixels"`
}

// CloseWindowInput is the input for the close_window tool.
type CloseWindowInput struct {
	ID    uint32 `json:"id" jsonschema:"required,Window id"`
	Force bool   `json:"force,omitempty" jsonschema:"Close even when the window is flagged unclosable (default: false)"`
}

// TileInput is the input for the tile_windows tool.
type TileInput struct {
	Layout string `json:"layout,omitempty" jsonschema:"Layout name from list_layouts (default: the active layout)"`
}

// InjectEventInput is the input for the inject_event tool.
type InjectEventInput struct {
	ID      uint32 `json:"id,omitempty" jsonschema:"Target window id. When omitted the event is routed like device input"`
	Type    string `json:"type" jsonschema:"required,Event type: key, mouse, button or close"`
	Code    uint32 `json:"code,omitempty" jsonschema:"Keysym for key events, button number for button events"`
	Pressed bool   `json:"pressed,omitempty" jsonschema:"Press (true) or release (false)"`
	X       int    `json:"x,omitempty" jsonschema:"Pointer x in screen coordinates, or window coordinates when id is set"`
	Y       int    `json:"y,omitempty" jsonschema:"Pointer y"`
}

// InjectEventOutput is the output for the inject_event tool.
type InjectEventOutput struct {
	ID uint32 `json:"id"`
}

// SnapshotInput is the input for the snapshot tool.
type SnapshotInput struct {
	Scale float64 `json:"scale,omitempty" jsonschema:"Scale factor for the returned PNG (default: 1)"`
}

// ActionInput is the input for tools that take no arguments.
type ActionInput struct{}
