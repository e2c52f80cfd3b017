package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/platform"
)

// ErrStopped is returned to callers that reach a compositor after shutdown.
var ErrStopped = fmt.Errorf("compositor stopped: %w", ipc.ErrResourceUnavailable)

// Options configures a Compositor.
type Options struct {
	Config *config.Config
	// ConfigPath is re-read on RELOAD. Empty disables reloading.
	ConfigPath string
	Device     platform.Device
	Backend    string
	Logger     *slog.Logger
}

type client struct {
	win  *compositor.Window
	sess *ipc.Session
	// configured is the Seq of the last CONFIGURE applied.
	configured uint64
}

type attachRequest struct {
	sess  *ipc.Session
	req   ipc.ConnectPayload
	reply chan error
}

type controlRequest struct {
	req   *ipc.Request
	reply chan *ipc.Response
}

// Compositor owns the display, every server window and the device. All of
// its state is touched only by the Serve goroutine; other goroutines reach
// it through channels.
type Compositor struct {
	cfg     *config.Config
	cfgPath string
	dev     platform.Device
	backend string
	logger  *slog.Logger

	display      *compositor.Display
	clients      map[compositor.WindowID]*client
	nextID       compositor.WindowID
	focused      compositor.WindowID
	activeLayout string
	serial       uint64
	frames       uint64
	started      time.Time

	wake      chan struct{}
	attachCh  chan attachRequest
	controlCh chan controlRequest
	inputCh   chan compositor.Event
	actionCh  chan func()

	done     chan struct{}
	doneOnce sync.Once
}

// NewCompositor sizes the display from the device geometry.
func NewCompositor(opts Options) (*Compositor, error) {
	if opts.Device == nil {
		return nil, errors.New("compositor needs a device")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info := opts.Device.Info()
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("device %s reports an empty screen (%dx%d)", info.Name, info.Width, info.Height)
	}

	return &Compositor{
		cfg:          cfg,
		cfgPath:      opts.ConfigPath,
		dev:          opts.Device,
		backend:      opts.Backend,
		logger:       logger,
		display:      compositor.NewDisplay(info.Width, info.Height, cfg.BackgroundColor(), cfg.Compositor.MaxDamageRects),
		clients:      make(map[compositor.WindowID]*client),
		activeLayout: cfg.Tiling.DefaultLayout,
		started:      time.Now(),
		wake:         make(chan struct{}, 1),
		attachCh:     make(chan attachRequest),
		controlCh:    make(chan controlRequest),
		inputCh:      make(chan compositor.Event, 256),
		actionCh:     make(chan func(), 16),
		done:         make(chan struct{}),
	}, nil
}

// Serve runs the compositor loop until ctx is done. Each cycle handles one
// external request, drains at most drain_budget messages per window and
// then repaints pending damage.
func (c *Compositor) Serve(ctx context.Context) error {
	info := c.dev.Info()
	c.logger.Info("compositor started",
		"backend", c.backend,
		"device", info.Name,
		"width", info.Width,
		"height", info.Height,
		"order", info.Order)
	c.repaint()

	for {
		select {
		case <-ctx.Done():
			c.shutdown("server shutting down")
			return ctx.Err()
		case a := <-c.attachCh:
			a.reply <- c.attach(a.sess, a.req)
		case r := <-c.controlCh:
			r.reply <- c.control(r.req)
		case ev := <-c.inputCh:
			c.routeInput(ev)
		case fn := <-c.actionCh:
			fn()
		case <-c.wake:
		}
		c.drain()
		c.repaint()
	}
}

// Attach implements ipc.Handler.
func (c *Compositor) Attach(ctx context.Context, sess *ipc.Session, req ipc.ConnectPayload) error {
	reply := make(chan error, 1)
	select {
	case c.attachCh <- attachRequest{sess: sess, req: req, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	}
}

// Control implements ipc.Handler.
func (c *Compositor) Control(ctx context.Context, req *ipc.Request) *ipc.Response {
	reply := make(chan *ipc.Response, 1)
	select {
	case c.controlCh <- controlRequest{req: req, reply: reply}:
	case <-ctx.Done():
		return ipc.NewErrorResponse(ctx.Err().Error())
	case <-c.done:
		return ipc.NewErrorResponse(ErrStopped.Error())
	}
	select {
	case resp := <-reply:
		return resp
	case <-c.done:
		return ipc.NewErrorResponse(ErrStopped.Error())
	}
}

// Input queues a device event in screen coordinates. Events are dropped
// when the loop is behind.
func (c *Compositor) Input(ev compositor.Event) {
	select {
	case c.inputCh <- ev:
	default:
		c.logger.Debug("input queue full, dropping event", "type", ev.Type)
	}
}

// post runs fn on the compositor goroutine without waiting for it.
func (c *Compositor) post(fn func()) error {
	select {
	case c.actionCh <- fn:
		return nil
	case <-c.done:
		return ErrStopped
	default:
		return errors.New("compositor busy")
	}
}

func (c *Compositor) rearm() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Compositor) attach(sess *ipc.Session, req ipc.ConnectPayload) error {
	if err := c.checkSize(req.W, req.H); err != nil {
		return err
	}

	c.nextID++
	id := c.nextID
	win := compositor.NewWindow(id, req.X, req.Y, req.W, req.H)
	win.Title = req.Title
	win.Flags = req.Flags
	win.ZOrder = req.ZOrder
	if req.Scale > 0 {
		win.Scale = req.Scale
	}

	connected := ipc.ConnectedPayload{ID: uint32(id), X: win.X, Y: win.Y, W: win.Width(), H: win.Height(), ZOrder: win.ZOrder}
	if !sess.Send(ipc.NoticeConnected, connected) {
		return errors.New("failed to queue CONNECTED")
	}

	c.display.Add(win)
	c.clients[id] = &client{win: win, sess: sess}
	sess.Bind(c.wake)
	c.setFocus(id)

	c.logger.Info("window connected",
		"window", id,
		"title", win.Title,
		"rect", win.Rect(),
		"zorder", win.ZOrder,
		"peer", sess.RemoteAddr())
	return nil
}

func (c *Compositor) checkSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid window size %dx%d", w, h)
	}
	maxW, maxH := c.cfg.Compositor.MaxWindowWidth, c.cfg.Compositor.MaxWindowHeight
	if (maxW > 0 && w > maxW) || (maxH > 0 && h > maxH) {
		return fmt.Errorf("window size %dx%d exceeds limit %dx%d", w, h, maxW, maxH)
	}
	return nil
}

// drain services every window in id order, re-arming the wake signal when
// a window still has queued messages after its budget.
func (c *Compositor) drain() {
	budget := max(1, c.cfg.Compositor.DrainBudget)
	more := false
	for _, id := range c.clientIDs() {
		cl, ok := c.clients[id]
		if !ok {
			continue
		}
		if c.drainClient(cl, budget) {
			more = true
		}
	}
	if more {
		c.rearm()
	}
}

// drainClient reports whether the budget ran out with the session still open.
func (c *Compositor) drainClient(cl *client, budget int) bool {
	for n := 0; n < budget; n++ {
		select {
		case req, ok := <-cl.sess.Inbox():
			if !ok {
				c.endSession(cl)
				return false
			}
			if err := c.handle(cl, req); err != nil {
				c.rejectSession(cl, err)
				return false
			}
			if !c.alive(cl) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (c *Compositor) alive(cl *client) bool {
	cur, ok := c.clients[cl.win.ID]
	return ok && cur == cl
}

func (c *Compositor) clientIDs() []compositor.WindowID {
	ids := make([]compositor.WindowID, 0, len(c.clients))
	for id := range c.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// handle applies one session message. An error ends the session.
func (c *Compositor) handle(cl *client, req *ipc.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("session handler panic recovered", "window", cl.win.ID, "command", req.Command, "error", r)
			err = fmt.Errorf("internal error handling %s", req.Command)
		}
	}()

	switch req.Command {
	case ipc.CommandUpdate:
		var p ipc.UpdatePayload
		if err := req.Decode(&p); err != nil {
			return err
		}
		img, err := p.Image()
		if err != nil {
			return err
		}
		c.display.UpdateWindow(cl.win.ID, p.Rect, img)

	case ipc.CommandConfigure:
		var p ipc.ConfigurePayload
		if err := req.Decode(&p); err != nil {
			return err
		}
		if err := c.checkSize(p.W, p.H); err != nil {
			return fmt.Errorf("%v: %w", err, ipc.ErrMalformedMessage)
		}
		c.display.Move(cl.win.ID, p.X, p.Y)
		c.display.Resize(cl.win.ID, p.W, p.H)
		cl.configured = max(cl.configured, p.Seq)

	case ipc.CommandSetTitle:
		var p ipc.TitlePayload
		if err := req.Decode(&p); err != nil {
			return err
		}
		cl.win.Title = p.Title

	case ipc.CommandPollEvents:
		var p ipc.PollPayload
		if err := req.Decode(&p); err != nil {
			return err
		}
		c.send(cl, ipc.NoticeEvents, ipc.EventsPayload{Seq: p.Seq, Events: cl.win.DrainEvents()})

	case ipc.CommandClose:
		c.closeWindow(cl, "closed by client", false)

	default:
		return fmt.Errorf("unexpected %s on a window session: %w", req.Command, ipc.ErrMalformedMessage)
	}
	return nil
}

// send queues a notice; a full outbox disconnects the window.
func (c *Compositor) send(cl *client, t ipc.NoticeType, payload any) bool {
	if cl.sess.Send(t, payload) {
		return true
	}
	c.logger.Warn("client unresponsive, disconnecting", "window", cl.win.ID, "notice", t)
	c.closeWindow(cl, "unresponsive", false)
	return false
}

// endSession runs once the peer has stopped sending and every queued
// message has been applied.
func (c *Compositor) endSession(cl *client) {
	if err := cl.sess.Err(); err != nil {
		c.rejectSession(cl, err)
		return
	}
	c.closeWindow(cl, "disconnected", false)
}

func (c *Compositor) rejectSession(cl *client, err error) {
	c.logger.Warn("closing window after protocol error", "window", cl.win.ID, "error", err)
	cl.sess.Send(ipc.NoticeError, ipc.ErrorPayload{Message: err.Error()})
	c.closeWindow(cl, err.Error(), false)
}

// closeWindow removes a window and damages the rect it covered. With
// notify the client is sent CLOSED first.
func (c *Compositor) closeWindow(cl *client, reason string, notify bool) {
	if !c.alive(cl) {
		return
	}
	if notify {
		cl.sess.Send(ipc.NoticeClosed, ipc.ClosedPayload{Reason: reason})
	}
	id := cl.win.ID
	delete(c.clients, id)
	c.display.Remove(id)
	cl.sess.Close()

	c.logger.Info("window closed", "window", id, "reason", reason)

	if c.focused == id {
		c.focused = 0
		windows := c.display.Windows()
		if len(windows) > 0 {
			c.setFocus(windows[len(windows)-1].ID)
		}
	}
}

// setFocus moves keyboard focus, queueing focus events on both windows.
func (c *Compositor) setFocus(id compositor.WindowID) {
	if id == c.focused {
		return
	}
	if old, ok := c.display.Window(c.focused); ok {
		old.PushEvent(compositor.Event{Type: compositor.EventFocus, Focused: false})
	}
	c.focused = 0
	if w, ok := c.display.Window(id); ok {
		w.PushEvent(compositor.Event{Type: compositor.EventFocus, Focused: true})
		c.focused = id
	}
}

// focus gives a window focus and raises it within its tier.
func (c *Compositor) focus(id compositor.WindowID) bool {
	if _, ok := c.display.Window(id); !ok {
		return false
	}
	c.setFocus(id)
	c.display.Raise(id)
	return true
}

// routeInput delivers a screen-space event: pointer events to the topmost
// window under the pointer in its local coordinates, everything else to
// the focused window. A button press focuses the window it lands on. It
// returns the receiving window, or zero.
func (c *Compositor) routeInput(ev compositor.Event) compositor.WindowID {
	if ev.IsPointer() {
		w, ok := c.display.Topmost(ev.X, ev.Y)
		if !ok {
			return 0
		}
		if ev.Type == compositor.EventButton && ev.Pressed && w.ID != c.focused {
			c.focus(w.ID)
		}
		local := ev
		local.X -= w.X
		local.Y -= w.Y
		w.PushEvent(local)
		return w.ID
	}

	w, ok := c.display.Window(c.focused)
	if !ok {
		return 0
	}
	w.PushEvent(ev)
	return w.ID
}

// place applies a window manager move or resize and tells the client.
func (c *Compositor) place(cl *client, x, y, w, h int) {
	win := cl.win
	resized := w != win.Width() || h != win.Height()
	if x == win.X && y == win.Y && !resized {
		return
	}
	c.display.Move(win.ID, x, y)
	if resized {
		c.display.Resize(win.ID, w, h)
		win.PushEvent(compositor.Event{Type: compositor.EventResize, W: w, H: h})
	}
	c.serial++
	c.send(cl, ipc.NoticeGeometry, ipc.GeometryPayload{X: x, Y: y, W: w, H: h, Serial: c.serial, Configure: cl.configured})
}

// repaint composites and flushes pending damage. Device errors are logged.
func (c *Compositor) repaint() {
	if !c.display.Dirty() {
		return
	}
	rects, err := c.display.Repaint(c.dev)
	if err != nil {
		c.logger.Warn("flush failed", "error", err)
	}
	if len(rects) > 0 {
		c.frames++
		c.logger.Debug("repainted", "rects", len(rects), "frame", c.frames)
	}
}

// shutdown tells every client the server is going away.
func (c *Compositor) shutdown(reason string) {
	for _, id := range c.clientIDs() {
		c.closeWindow(c.clients[id], reason, true)
	}
	c.repaint()
	c.doneOnce.Do(func() { close(c.done) })
	c.logger.Info("compositor stopped", "frames", c.frames)
}

// Done is closed after the compositor has shut down.
func (c *Compositor) Done() <-chan struct{} {
	return c.done
}
