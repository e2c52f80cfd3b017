package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/runtimepath"
)

// Client sends one-shot control requests to the server.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a control client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.ResolveSocketPath("")
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a control client for an explicit socket.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SetTimeout bounds each request round trip.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(cmd CommandType, payload any) (*Response, error) {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %v (is the server running?): %w", err, ErrResourceUnavailable)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := WriteLine(conn, req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	resp, err := NewLineReader(conn, DefaultMaxMessageBytes).NextResponse()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return resp, nil
}

// call sends cmd and decodes the response data into out when non-nil.
func (c *Client) call(cmd CommandType, payload any, out any) error {
	resp, err := c.sendRequest(cmd, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Status retrieves server status
func (c *Client) Status() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows returns the windows from back to front.
func (c *Client) ListWindows() ([]WindowInfo, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// ListLayouts retrieves available layouts and current selection.
func (c *Client) ListLayouts() (*LayoutsData, error) {
	var data LayoutsData
	if err := c.call(CommandListLayouts, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) SetZOrder(id uint32, z compositor.ZOrder) error {
	return c.call(CommandSetZOrder, ZOrderPayload{ID: id, ZOrder: z}, nil)
}

// Raise puts a window on top of its tier.
func (c *Client) Raise(id uint32) error {
	return c.call(CommandRaise, WindowTarget{ID: id}, nil)
}

// Focus gives a window keyboard focus and raises it.
func (c *Client) Focus(id uint32) error {
	return c.call(CommandFocus, WindowTarget{ID: id}, nil)
}

func (c *Client) Move(id uint32, x, y int) error {
	return c.call(CommandMove, MovePayload{ID: id, X: x, Y: y}, nil)
}

func (c *Client) Resize(id uint32, w, h int) error {
	return c.call(CommandResize, ResizePayload{ID: id, W: w, H: h}, nil)
}

// CloseWindow asks the server to close a window. Unclosable windows only
// get a close event unless force is set.
func (c *Client) CloseWindow(id uint32, force bool) error {
	return c.call(CommandCloseWindow, CloseWindowPayload{ID: id, Force: force}, nil)
}

// Tile arranges all windows with the named layout, or the active one.
func (c *Client) Tile(layout string) (*TileData, error) {
	var data TileData
	if err := c.call(CommandTile, TilePayload{Layout: layout}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// InjectEvent queues an input event and reports which window got it.
func (c *Client) InjectEvent(id uint32, ev compositor.Event) (uint32, error) {
	var data InjectData
	if err := c.call(CommandInjectEvent, InjectPayload{ID: id, Event: ev}, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

// Snapshot fetches the composited master image.
func (c *Client) Snapshot() (*SnapshotData, error) {
	var data SnapshotData
	if err := c.call(CommandSnapshot, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Repaint damages the whole screen.
func (c *Client) Repaint() error {
	return c.call(CommandRepaint, nil, nil)
}

// Reload asks the server to re-read its configuration.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// Ping checks if the server is responding
func (c *Client) Ping() error {
	_, err := c.Status()
	return err
}
