// Package client is the toolkit-facing side of starry. A Window owns a
// pixel buffer, tracks which part of it changed and hands that part to the
// server on Sync.
//
//	w, err := client.New(ctx, client.Options{X: 10, Y: 10, W: 320, H: 200, Title: "demo"})
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	w.Fill(client.RGB(30, 60, 90))
//	for w.Sync() {
//		for _, ev := range w.PollEvents() {
//			...
//		}
//	}
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/platform"
	"github.com/1broseidon/starry/internal/runtimepath"
)

const defaultTimeout = time.Second

// Options describes the window to open.
type Options struct {
	X, Y  int
	W, H  int
	Title string
	Flags Flags
	// ZOrder picks the stacking tier; the zero value is Normal.
	ZOrder ZOrder
	// Scale is passed to the server as metadata.
	Scale int
	// Background is the initial buffer colour. The zero value leaves the
	// buffer transparent black, as the server starts it.
	Background Color

	// SocketPath overrides STARRY_SOCKET and the runtime default.
	SocketPath string
	// Fallback opens DevicePath directly when no server is reachable.
	Fallback   bool
	DevicePath string

	// Timeout bounds the handshake, each send and each event poll.
	Timeout time.Duration
}

// openDevice is replaced in tests.
var openDevice = func(path string) (platform.Device, error) {
	return platform.Open(platform.Options{Backend: platform.BackendFbdev, Path: path})
}

// Window is a client window. Its methods are safe for concurrent use.
type Window struct {
	t       transport
	id      uint32
	timeout time.Duration
	direct  bool

	mu    sync.Mutex
	x, y  int
	title string
	buf   *gfx.Image
	dirty gfx.Rect
}

// New opens a window on the server. When the server cannot be reached and
// opts.Fallback is set, the device is driven directly instead. Failure to
// reach either wraps ErrResourceUnavailable.
func New(ctx context.Context, opts Options) (*Window, error) {
	if opts.W <= 0 || opts.H <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", opts.W, opts.H)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	req := ipc.ConnectPayload{
		X:      opts.X,
		Y:      opts.Y,
		W:      opts.W,
		H:      opts.H,
		Title:  opts.Title,
		Flags:  opts.Flags,
		ZOrder: opts.ZOrder,
		Scale:  opts.Scale,
	}

	w := &Window{
		timeout: opts.Timeout,
		id:      1,
		x:       opts.X,
		y:       opts.Y,
		title:   opts.Title,
		buf:     gfx.NewImage(opts.W, opts.H),
	}

	socketPath, err := runtimepath.ResolveSocketPath(opts.SocketPath)
	if err != nil {
		err = fmt.Errorf("no socket path: %v: %w", err, ErrResourceUnavailable)
	} else {
		var r *remote
		var connected *ipc.ConnectedPayload
		r, connected, err = dialRemote(ctx, socketPath, req, opts.Timeout)
		if err == nil {
			w.t = r
			w.id = connected.ID
			w.x, w.y = connected.X, connected.Y
			if connected.W != opts.W || connected.H != opts.H {
				w.buf = gfx.NewImage(connected.W, connected.H)
			}
			Logger().Info("window connected", "window", w.id, "socket", socketPath)
		}
	}
	if err != nil {
		if !opts.Fallback || !errors.Is(err, ErrResourceUnavailable) {
			return nil, err
		}
		Logger().Info("server unavailable, drawing directly", "error", err, "device", opts.DevicePath)
		dev, derr := openDevice(opts.DevicePath)
		if derr != nil {
			return nil, fmt.Errorf("%v; fallback device: %v: %w", err, derr, ErrResourceUnavailable)
		}
		s, serr := openStandalone(dev, req, gfx.Black)
		if serr != nil {
			return nil, serr
		}
		w.t = s
		w.direct = true
	}

	if opts.Background != (Color{}) {
		w.buf.Fill(opts.Background)
		w.dirty = w.buf.Bounds()
	}
	return w, nil
}

// ID is the server-assigned window id.
func (w *Window) ID() uint32 { return w.id }

// Standalone reports whether the window drives the device without a server.
func (w *Window) Standalone() bool { return w.direct }

func (w *Window) X() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.x
}

func (w *Window) Y() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.y
}

func (w *Window) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Width()
}

func (w *Window) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Height()
}

func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// SetPos moves the window.
func (w *Window) SetPos(x, y int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.x, w.y = x, y
	w.report("configure", w.t.configure(x, y, w.buf.Width(), w.buf.Height()))
}

// SetSize resizes the buffer, keeping the overlapping content. Sizes that
// are not positive are ignored.
func (w *Window) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resize(width, height)
	w.report("configure", w.t.configure(w.x, w.y, width, height))
}

func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
	w.report("set title", w.t.setTitle(title))
}

// report logs a send failure. A closed window is not an error here; it
// surfaces through Sync and Closed.
func (w *Window) report(op string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrChannelBroken) {
		Logger().Debug("send on closed window", "window", w.id, "op", op)
		return
	}
	Logger().Warn("send failed", "window", w.id, "op", op, "error", err)
}

func (w *Window) resize(width, height int) {
	if width == w.buf.Width() && height == w.buf.Height() {
		return
	}
	w.buf = w.buf.Resize(width, height)
	w.dirty = w.dirty.Intersection(w.buf.Bounds())
}

// Image returns the buffer for direct drawing and marks all of it dirty.
// The buffer is replaced on resize, so do not keep it across Sync.
func (w *Window) Image() *Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = w.buf.Bounds()
	return w.buf
}

func (w *Window) SetPixel(x, y int, c Color) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Set(x, y, c)
	w.invalidate(gfx.NewRect(x, y, 1, 1))
}

func (w *Window) Fill(c Color) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Fill(c)
	w.dirty = w.buf.Bounds()
}

// FillRect fills r, in window coordinates, clipped to the buffer.
func (w *Window) FillRect(r Rect, c Color) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.ROI(r).Fill(c)
	w.invalidate(r)
}

// Invalidate marks r as changed after drawing through Image.
func (w *Window) Invalidate(r Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.invalidate(r)
}

func (w *Window) invalidate(r Rect) {
	w.dirty = w.dirty.Union(r.Intersection(w.buf.Bounds()))
}

// Dirty returns the region the next Sync will send.
func (w *Window) Dirty() Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Sync applies geometry pushed by the window manager, then sends the
// dirty region as one update. It returns false once the window is closed.
func (w *Window) Sync() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed() {
		return false
	}

	if g, ok := w.t.takeGeometry(); ok {
		Logger().Debug("applying geometry", "window", w.id, "x", g.x, "y", g.y, "w", g.w, "h", g.h)
		w.x, w.y = g.x, g.y
		w.resize(g.w, g.h)
	}

	if !w.dirty.Empty() {
		r := w.dirty
		if err := w.t.update(r, w.buf.ROI(r)); err != nil {
			w.report("update", err)
			return !w.closed()
		}
		Logger().Debug("update sent", "window", w.id, "rect", r)
		w.dirty = gfx.Rect{}
	}
	return !w.closed()
}

func (w *Window) closed() bool {
	select {
	case <-w.t.done():
		return true
	default:
		return false
	}
}

// PollEvents returns the events queued since the last call, waiting at
// most the configured timeout for the server to answer.
func (w *Window) PollEvents() []Event {
	events, err := w.t.poll(w.timeout)
	if err != nil {
		w.report("poll", err)
	}
	return events
}

// Closed is closed when the window ends for any reason.
func (w *Window) Closed() <-chan struct{} {
	return w.t.done()
}

// Err reports why the window closed; nil while it is open.
func (w *Window) Err() error {
	return w.t.err()
}

// Close ends the session and releases the window.
func (w *Window) Close() error {
	err := w.t.close()
	Logger().Info("window closed", "window", w.id)
	return err
}
