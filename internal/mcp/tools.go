package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
)

func textResult(format string, args ...any) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.control.Status()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *status, nil
}

// handleListWindows answers with JSON text; stacking tiers marshal as
// names, which an inferred output schema would reject.
func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, any, error) {
	windows, err := s.control.ListWindows()
	if err != nil {
		return nil, nil, err
	}
	if windows == nil {
		windows = []ipc.WindowInfo{}
	}
	data, err := json.MarshalIndent(ListWindowsOutput{Windows: windows}, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return textResult("%s", data), nil, nil
}

func (s *Server) handleListLayouts(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListLayoutsInput) (*mcpsdk.CallToolResult, ipc.LayoutsData, error) {
	layouts, err := s.control.ListLayouts()
	if err != nil {
		return nil, ipc.LayoutsData{}, err
	}
	return nil, *layouts, nil
}

func (s *Server) handleRaise(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.control.Raise(args.ID); err != nil {
		return nil, nil, err
	}
	s.logger.Info("mcp raised window", "window", args.ID)
	return textResult("Raised window %d", args.ID), nil, nil
}

func (s *Server) handleFocus(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.control.Focus(args.ID); err != nil {
		return nil, nil, err
	}
	s.logger.Info("mcp focused window", "window", args.ID)
	return textResult("Focused window %d", args.ID), nil, nil
}

func (s *Server) handleSetZOrder(_ context.Context, _ *mcpsdk.CallToolRequest, args SetZOrderInput) (*mcpsdk.CallToolResult, any, error) {
	z, err := compositor.ParseZOrder(args.ZOrder)
	if err != nil {
		return nil, nil, err
	}
	if err := s.control.SetZOrder(args.ID, z); err != nil {
		return nil, nil, err
	}
	s.logger.Info("mcp changed zorder", "window", args.ID, "zorder", z)
	return textResult("Window %d is now in the %s tier", args.ID, z), nil, nil
}

func (s *Server) handleMove(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.control.Move(args.ID, args.X, args.Y); err != nil {
		return nil, nil, err
	}
	return textResult("Moved window %d to %d,%d", args.ID, args.X, args.Y), nil, nil
}

func (s *Server) handleResize(_ context.Context, _ *mcpsdk.CallToolRequest, args ResizeWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if args.W <= 0 || args.H <= 0 {
		return nil, nil, fmt.Errorf("size must be positive, got %dx%d", args.W, args.H)
	}
	if err := s.control.Resize(args.ID, args.W, args.H); err != nil {
		return nil, nil, err
	}
	return textResult("Resized window %d to %dx%d", args.ID, args.W, args.H), nil, nil
}

func (s *Server) handleClose(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.control.CloseWindow(args.ID, args.Force); err != nil {
		return nil, nil, err
	}
	s.logger.Info("mcp closed window", "window", args.ID, "force", args.Force)
	return textResult("Closed window %d", args.ID), nil, nil
}

func (s *Server) handleTile(_ context.Context, _ *mcpsdk.CallToolRequest, args TileInput) (*mcpsdk.CallToolResult, ipc.TileData, error) {
	data, err := s.control.Tile(args.Layout)
	if err != nil {
		return nil, ipc.TileData{}, err
	}
	return nil, *data, nil
}

func (s *Server) handleInject(_ context.Context, _ *mcpsdk.CallToolRequest, args InjectEventInput) (*mcpsdk.CallToolResult, InjectEventOutput, error) {
	ev, err := eventFromInput(args)
	if err != nil {
		return nil, InjectEventOutput{}, err
	}
	id, err := s.control.InjectEvent(args.ID, ev)
	if err != nil {
		return nil, InjectEventOutput{}, err
	}
	return nil, InjectEventOutput{ID: id}, nil
}

func eventFromInput(args InjectEventInput) (compositor.Event, error) {
	ev := compositor.Event{
		Type:    compositor.EventType(args.Type),
		Code:    args.Code,
		Pressed: args.Pressed,
		X:       args.X,
		Y:       args.Y,
	}
	switch ev.Type {
	case compositor.EventKey, compositor.EventMouse, compositor.EventButton, compositor.EventClose:
		return ev, nil
	default:
		return compositor.Event{}, fmt.Errorf("unsupported event type %q (want key, mouse, button or close)", args.Type)
	}
}

func (s *Server) handleSnapshot(_ context.Context, _ *mcpsdk.CallToolRequest, args SnapshotInput) (*mcpsdk.CallToolResult, any, error) {
	scale := args.Scale
	if scale == 0 {
		scale = 1
	}
	snap, err := s.control.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	img, err := gfx.DecodeRGBA(snap.Width, snap.Height, snap.Pixels)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := gfx.WritePNG(&buf, img, scale); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.ImageContent{Data: buf.Bytes(), MIMEType: "image/png"},
		},
	}, nil, nil
}

func (s *Server) handleRepaint(_ context.Context, _ *mcpsdk.CallToolRequest, _ ActionInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.control.Repaint(); err != nil {
		return nil, nil, err
	}
	return textResult("Full repaint queued"), nil, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ActionInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.control.Reload(); err != nil {
		return nil, nil, err
	}
	s.logger.Info("mcp reloaded config")
	return textResult("Configuration reloaded"), nil, nil
}
