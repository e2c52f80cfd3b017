package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
)

var (
	// ErrResourceUnavailable means the server or device could not be reached.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrChannelBroken means the session ended; the window is gone.
	ErrChannelBroken = errors.New("channel broken")
	// ErrMalformedMessage means a line could not be decoded or failed a
	// size check.
	ErrMalformedMessage = errors.New("malformed message")
)

// CommandType represents the request verbs. The first line on a
// connection decides its kind: CONNECT opens a window session, anything
// else is a single control request.
type CommandType string

// Window session commands.
const (
	CommandConnect    CommandType = "CONNECT"
	CommandUpdate     CommandType = "UPDATE"
	CommandConfigure  CommandType = "CONFIGURE"
	CommandSetTitle   CommandType = "SET_TITLE"
	CommandPollEvents CommandType = "POLL_EVENTS"
	CommandClose      CommandType = "CLOSE"
)

// Control commands.
const (
	CommandStatus      CommandType = "STATUS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandListLayouts CommandType = "LIST_LAYOUTS"
	CommandSetZOrder   CommandType = "SET_ZORDER"
	CommandRaise       CommandType = "RAISE"
	CommandFocus       CommandType = "FOCUS"
	CommandMove        CommandType = "MOVE"
	CommandResize      CommandType = "RESIZE"
	CommandCloseWindow CommandType = "CLOSE_WINDOW"
	CommandTile        CommandType = "TILE"
	CommandInjectEvent CommandType = "INJECT_EVENT"
	CommandSnapshot    CommandType = "SNAPSHOT"
	CommandRepaint     CommandType = "REPAINT"
	CommandReload      CommandType = "RELOAD"
)

// NoticeType names a server-to-window message.
type NoticeType string

const (
	NoticeConnected NoticeType = "CONNECTED"
	NoticeEvents    NoticeType = "EVENTS"
	NoticeGeometry  NoticeType = "GEOMETRY"
	NoticeClosed    NoticeType = "CLOSED"
	NoticeError     NoticeType = "ERROR"
)

// Request represents a line from client to server.
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers a control request.
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Notice is a line from server to a window session.
type Notice struct {
	Type    NoticeType      `json:"notice"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectPayload opens a window. Pixels start transparent black.
type ConnectPayload struct {
	X      int               `json:"x"`
	Y      int               `json:"y"`
	W      int               `json:"w"`
	H      int               `json:"h"`
	Title  string            `json:"title,omitempty"`
	Flags  compositor.Flags  `json:"flags,omitempty"`
	ZOrder compositor.ZOrder `json:"zorder,omitempty"`
	Scale  int               `json:"scale,omitempty"`
}

type ConnectedPayload struct {
	ID     uint32            `json:"id"`
	X      int               `json:"x"`
	Y      int               `json:"y"`
	W      int               `json:"w"`
	H      int               `json:"h"`
	ZOrder compositor.ZOrder `json:"zorder"`
}

// UpdatePayload carries window-local pixels, row-major RGBA, base64 in JSON.
type UpdatePayload struct {
	Rect   gfx.Rect `json:"rect"`
	Pixels []byte   `json:"pixels"`
}

// ConfigurePayload is a client move or resize. Seq numbers the client's
// CONFIGURE messages so it can recognise older GEOMETRY notices.
type ConfigurePayload struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	W   int    `json:"w"`
	H   int    `json:"h"`
	Seq uint64 `json:"seq,omitempty"`
}

type TitlePayload struct {
	Title string `json:"title"`
}

type PollPayload struct {
	Seq uint64 `json:"seq"`
}

type EventsPayload struct {
	Seq    uint64             `json:"seq"`
	Events []compositor.Event `json:"events,omitempty"`
}

// GeometryPayload tells a client the window manager moved or resized it.
// Configure is the Seq of the last CONFIGURE the server had applied.
type GeometryPayload struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	W         int    `json:"w"`
	H         int    `json:"h"`
	Serial    uint64 `json:"serial"`
	Configure uint64 `json:"configure,omitempty"`
}

type ClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// WindowInfo describes one server window for control clients.
type WindowInfo struct {
	ID            uint32            `json:"id"`
	Title         string            `json:"title"`
	X             int               `json:"x"`
	Y             int               `json:"y"`
	W             int               `json:"w"`
	H             int               `json:"h"`
	ZOrder        compositor.ZOrder `json:"zorder"`
	Flags         compositor.Flags  `json:"flags"`
	Scale         int               `json:"scale"`
	Focused       bool              `json:"focused"`
	PendingEvents int               `json:"pending_events"`
}

type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

// StatusData represents the data returned by STATUS.
type StatusData struct {
	Backend       string `json:"backend"`
	Device        string `json:"device"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Windows       int    `json:"windows"`
	Focused       uint32 `json:"focused,omitempty"`
	ActiveLayout  string `json:"active_layout"`
	Background    string `json:"background"`
	Frames        uint64 `json:"frames"`
	PendingDamage int    `json:"pending_damage"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type LayoutsData struct {
	Layouts       []string `json:"layouts"`
	DefaultLayout string   `json:"default_layout"`
	ActiveLayout  string   `json:"active_layout"`
}

type WindowTarget struct {
	ID uint32 `json:"id"`
}

type ZOrderPayload struct {
	ID     uint32            `json:"id"`
	ZOrder compositor.ZOrder `json:"zorder"`
}

type MovePayload struct {
	ID uint32 `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

type ResizePayload struct {
	ID uint32 `json:"id"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

type CloseWindowPayload struct {
	ID    uint32 `json:"id"`
	Force bool   `json:"force,omitempty"`
}

type TilePayload struct {
	Layout string `json:"layout,omitempty"`
}

type TileData struct {
	Layout string `json:"layout"`
	Placed int    `json:"placed"`
}

// InjectPayload queues an event. With ID zero the event is routed like
// device input: pointer events by position, key events to the focus.
type InjectPayload struct {
	ID    uint32           `json:"id,omitempty"`
	Event compositor.Event `json:"event"`
}

type InjectData struct {
	ID uint32 `json:"id"`
}

// SnapshotData is the master image as row-major RGBA.
type SnapshotData struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

// NewRequest builds a request, marshalling payload when non-nil.
func NewRequest(cmd CommandType, payload any) (*Request, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return req, nil
}

// Decode unmarshals the payload into v. Failures wrap ErrMalformedMessage.
func (r *Request) Decode(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s: missing payload: %w", r.Command, ErrMalformedMessage)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%s: %v: %w", r.Command, err, ErrMalformedMessage)
	}
	return nil
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %v: %w", err, ErrMalformedMessage)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("request has no command: %w", ErrMalformedMessage)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// NewNotice builds a notice, marshalling payload when non-nil.
func NewNotice(t NoticeType, payload any) (*Notice, error) {
	n := &Notice{Type: t}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s notice: %w", t, err)
		}
		n.Payload = data
	}
	return n, nil
}

// Decode unmarshals the notice payload into v.
func (n *Notice) Decode(v any) error {
	if err := json.Unmarshal(n.Payload, v); err != nil {
		return fmt.Errorf("%s notice: %v: %w", n.Type, err, ErrMalformedMessage)
	}
	return nil
}

// Image validates the payload size and decodes the pixels. A length that
// does not match rect.W*rect.H*4 is ErrMalformedMessage.
func (p *UpdatePayload) Image() (*gfx.Image, error) {
	if p.Rect.W < 0 || p.Rect.H < 0 {
		return nil, fmt.Errorf("update rect %v has negative size: %w", p.Rect, ErrMalformedMessage)
	}
	if p.Rect.W > 0 && p.Rect.H > math.MaxInt/gfx.BytesPerPixel/p.Rect.W {
		return nil, fmt.Errorf("update rect %v is too large: %w", p.Rect, ErrMalformedMessage)
	}
	want := p.Rect.W * p.Rect.H * gfx.BytesPerPixel
	if len(p.Pixels) != want {
		return nil, fmt.Errorf("update rect %v needs %d bytes, got %d: %w", p.Rect, want, len(p.Pixels), ErrMalformedMessage)
	}
	return gfx.DecodeRGBA(p.Rect.W, p.Rect.H, p.Pixels)
}

// NewUpdatePayload encodes the pixels of view, placed at local.
func NewUpdatePayload(local gfx.Rect, view gfx.ROI) UpdatePayload {
	return UpdatePayload{Rect: gfx.NewRect(local.X, local.Y, view.Width(), view.Height()), Pixels: view.EncodeRGBA()}
}
