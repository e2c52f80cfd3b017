package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/ipc"
)

const (
	ServerName    = "starry"
	ServerVersion = "0.1.0"
)

// Control is the subset of the control protocol the tools use.
// *ipc.Client implements it.
type Control interface {
	Status() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowInfo, error)
	ListLayouts() (*ipc.LayoutsData, error)
	SetZOrder(id uint32, z compositor.ZOrder) error
	Raise(id uint32) error
	Focus(id uint32) error
	Move(id uint32, x, y int) error
	Resize(id uint32, w, h int) error
	CloseWindow(id uint32, force bool) error
	Tile(layout string) (*ipc.TileData, error)
	InjectEvent(id uint32, ev compositor.Event) (uint32, error)
	Snapshot() (*ipc.SnapshotData, error)
	Repaint() error
	Reload() error
}

// Server exposes a running compositor as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	control   Control
	logger    *slog.Logger
}

// NewServer creates an MCP server driving the compositor through control.
func NewServer(control Control, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{control: control, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves on stdio, blocking until the peer disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the compositor backend, screen size, window count, focused window, active layout and frame count.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every window bottom to top with its id, title, geometry, stacking tier, flags and focus state.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_layouts",
		Description: "List the tiling layouts available to tile_windows, plus the default and active layout.",
	}, s.handleListLayouts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "raise_window",
		Description: "Raise a window to the top of its stacking tier. A Normal window never rises above Front windows.",
	}, s.handleRaise)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Give a window keyboard focus and raise it within its tier.",
	}, s.handleFocus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_zorder",
		Description: "Move a window to the back, normal or front stacking tier.",
	}, s.handleSetZOrder)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move a window. The client is told its new position.",
	}, s.handleMove)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_window",
		Description: "Resize a window. The client receives a resize event and its buffer is resized, keeping existing content.",
	}, s.handleResize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a window. Unclosable windows only receive a close event unless force is set.",
	}, s.handleClose)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "tile_windows",
		Description: "Arrange all normal-tier windows with a tiling layout. Non-resizable windows are centred in their slot.",
	}, s.handleTile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "inject_event",
		Description: "Queue a synthetic input event. Without an id, pointer events go to the topmost window under the pointer and key events to the focused window.",
	}, s.handleInject)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "snapshot",
		Description: "Return the composited screen as a PNG image, optionally scaled.",
	}, s.handleSnapshot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "repaint",
		Description: "Recomposite and flush the whole screen.",
	}, s.handleRepaint)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Re-read the server config file and apply background, tiling and compositor budget changes.",
	}, s.handleReload)
}
