package daemon

import (
	"fmt"
	"slices"
	"time"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/tiling"
)

// control answers a one-shot control request on the compositor goroutine.
func (c *Compositor) control(req *ipc.Request) *ipc.Response {
	data, err := c.dispatch(req)
	if err != nil {
		c.logger.Debug("control request failed", "command", req.Command, "error", err)
		return ipc.NewErrorResponse(err.Error())
	}
	resp, err := ipc.NewOKResponse(data)
	if err != nil {
		return ipc.NewErrorResponse(err.Error())
	}
	return resp
}

func (c *Compositor) dispatch(req *ipc.Request) (any, error) {
	switch req.Command {
	case ipc.CommandStatus:
		return c.status(), nil

	case ipc.CommandListWindows:
		return c.listWindows(), nil

	case ipc.CommandListLayouts:
		return ipc.LayoutsData{
			Layouts:       c.cfg.LayoutNames(),
			DefaultLayout: c.cfg.Tiling.DefaultLayout,
			ActiveLayout:  c.activeLayout,
		}, nil

	case ipc.CommandSetZOrder:
		var p ipc.ZOrderPayload
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		if !c.display.SetZOrder(compositor.WindowID(p.ID), p.ZOrder) {
			return nil, unknownWindow(p.ID)
		}
		return nil, nil

	case ipc.CommandRaise:
		var p ipc.WindowTarget
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		if !c.display.Raise(compositor.WindowID(p.ID)) {
			return nil, unknownWindow(p.ID)
		}
		return nil, nil

	case ipc.CommandFocus:
		var p ipc.WindowTarget
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		if !c.focus(compositor.WindowID(p.ID)) {
			return nil, unknownWindow(p.ID)
		}
		return nil, nil

	case ipc.CommandMove:
		var p ipc.MovePayload
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		cl, err := c.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		c.place(cl, p.X, p.Y, cl.win.Width(), cl.win.Height())
		return nil, nil

	case ipc.CommandResize:
		var p ipc.ResizePayload
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		cl, err := c.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		if err := c.checkSize(p.W, p.H); err != nil {
			return nil, err
		}
		c.place(cl, cl.win.X, cl.win.Y, p.W, p.H)
		return nil, nil

	case ipc.CommandCloseWindow:
		var p ipc.CloseWindowPayload
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		return nil, c.requestClose(compositor.WindowID(p.ID), p.Force)

	case ipc.CommandTile:
		var p ipc.TilePayload
		if len(req.Payload) > 0 {
			if err := req.Decode(&p); err != nil {
				return nil, err
			}
		}
		return c.tile(p.Layout)

	case ipc.CommandInjectEvent:
		var p ipc.InjectPayload
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		return c.inject(p)

	case ipc.CommandSnapshot:
		c.repaint()
		master := c.display.Master()
		return ipc.SnapshotData{Width: master.Width(), Height: master.Height(), Pixels: master.EncodeRGBA()}, nil

	case ipc.CommandRepaint:
		c.display.DamageAll()
		return nil, nil

	case ipc.CommandReload:
		return nil, c.reload()

	case ipc.CommandUpdate, ipc.CommandConfigure, ipc.CommandSetTitle, ipc.CommandPollEvents, ipc.CommandClose:
		return nil, fmt.Errorf("%s is only valid on a window session", req.Command)

	default:
		return nil, fmt.Errorf("unknown command: %s", req.Command)
	}
}

func unknownWindow(id uint32) error {
	return fmt.Errorf("window %d not found", id)
}

func (c *Compositor) lookup(id uint32) (*client, error) {
	cl, ok := c.clients[compositor.WindowID(id)]
	if !ok {
		return nil, unknownWindow(id)
	}
	return cl, nil
}

func (c *Compositor) status() ipc.StatusData {
	info := c.dev.Info()
	return ipc.StatusData{
		Backend:       c.backend,
		Device:        info.Name,
		Width:         c.display.Width(),
		Height:        c.display.Height(),
		Windows:       c.display.Len(),
		Focused:       uint32(c.focused),
		ActiveLayout:  c.activeLayout,
		Background:    c.display.Background().Hex(),
		Frames:        c.frames,
		PendingDamage: len(c.display.PendingDamage()),
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
	}
}

func (c *Compositor) listWindows() ipc.WindowsData {
	windows := c.display.Windows()
	out := make([]ipc.WindowInfo, 0, len(windows))
	for _, w := range windows {
		out = append(out, ipc.WindowInfo{
			ID:            uint32(w.ID),
			Title:         w.Title,
			X:             w.X,
			Y:             w.Y,
			W:             w.Width(),
			H:             w.Height(),
			ZOrder:        w.ZOrder,
			Flags:         w.Flags,
			Scale:         w.Scale,
			Focused:       w.ID == c.focused,
			PendingEvents: w.PendingEvents(),
		})
	}
	return ipc.WindowsData{Windows: out}
}

// requestClose closes a window on behalf of the window manager. Unclosable
// windows only get a close event unless force is set.
func (c *Compositor) requestClose(id compositor.WindowID, force bool) error {
	cl, ok := c.clients[id]
	if !ok {
		return unknownWindow(uint32(id))
	}
	if cl.win.Flags.Unclosable && !force {
		cl.win.PushEvent(compositor.Event{Type: compositor.EventClose})
		return fmt.Errorf("window %d is unclosable; close event delivered", id)
	}
	c.closeWindow(cl, "closed by window manager", true)
	return nil
}

// tile arranges Normal-tier windows, in id order, with the named layout or
// the active one.
func (c *Compositor) tile(name string) (ipc.TileData, error) {
	if name == "" {
		name = c.activeLayout
	}
	layout, err := c.cfg.GetLayout(name)
	if err != nil {
		return ipc.TileData{}, err
	}

	var candidates []tiling.Candidate
	for _, id := range c.clientIDs() {
		w := c.clients[id].win
		if w.ZOrder != compositor.ZNormal {
			continue
		}
		candidates = append(candidates, tiling.Candidate{
			ID:        uint32(w.ID),
			W:         w.Width(),
			H:         w.Height(),
			Resizable: w.Flags.Resizable,
		})
	}

	c.activeLayout = name
	if len(candidates) == 0 {
		return ipc.TileData{Layout: name}, nil
	}

	placements, err := tiling.Plan(candidates, c.display.Bounds(), layout, c.cfg.Tiling.GapSize)
	if err != nil {
		return ipc.TileData{}, err
	}
	for _, p := range placements {
		cl, ok := c.clients[compositor.WindowID(p.ID)]
		if !ok {
			continue
		}
		c.place(cl, p.Rect.X, p.Rect.Y, p.Rect.W, p.Rect.H)
	}

	c.logger.Info("tiled windows", "layout", name, "placed", len(placements), "candidates", len(candidates))
	return ipc.TileData{Layout: name, Placed: len(placements)}, nil
}

func (c *Compositor) inject(p ipc.InjectPayload) (ipc.InjectData, error) {
	if p.ID != 0 {
		w, ok := c.display.Window(compositor.WindowID(p.ID))
		if !ok {
			return ipc.InjectData{}, unknownWindow(p.ID)
		}
		w.PushEvent(p.Event)
		return ipc.InjectData{ID: p.ID}, nil
	}

	id := c.routeInput(p.Event)
	if id == 0 {
		if p.Event.IsPointer() {
			return ipc.InjectData{}, fmt.Errorf("no window at %d,%d", p.Event.X, p.Event.Y)
		}
		return ipc.InjectData{}, fmt.Errorf("no focused window")
	}
	return ipc.InjectData{ID: uint32(id)}, nil
}

// reload re-reads the config file and applies what can change at runtime.
func (c *Compositor) reload() error {
	if c.cfgPath == "" {
		return fmt.Errorf("server was started without a config file")
	}
	res, err := config.LoadFromPath(c.cfgPath)
	if err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	c.applyConfig(res.Config)
	return nil
}

func (c *Compositor) applyConfig(cfg *config.Config) {
	if cfg.Device != c.cfg.Device || cfg.SocketPath != c.cfg.SocketPath {
		c.logger.Warn("device and socket changes need a restart")
	}
	c.cfg = cfg
	c.display.SetBackground(cfg.BackgroundColor())
	c.display.SetMaxDamageRects(cfg.Compositor.MaxDamageRects)
	if _, ok := cfg.Tiling.Layouts[c.activeLayout]; !ok {
		c.activeLayout = cfg.Tiling.DefaultLayout
	}
	c.logger.Info("configuration reloaded", "background", cfg.Background, "layout", c.activeLayout)
}

// cycleLayout tiles with the layout after the active one.
func (c *Compositor) cycleLayout() error {
	names := c.cfg.LayoutNames()
	if len(names) == 0 {
		return fmt.Errorf("no layouts configured")
	}
	next := names[0]
	if i := slices.Index(names, c.activeLayout); i >= 0 {
		next = names[(i+1)%len(names)]
	}
	_, err := c.tile(next)
	return err
}

// cycleFocus focuses the window after the focused one, in id order.
func (c *Compositor) cycleFocus() error {
	ids := c.clientIDs()
	if len(ids) == 0 {
		return fmt.Errorf("no windows")
	}
	next := ids[0]
	if i := slices.Index(ids, c.focused); i >= 0 {
		next = ids[(i+1)%len(ids)]
	}
	c.focus(next)
	return nil
}

func (c *Compositor) closeFocused() error {
	if c.focused == 0 {
		return fmt.Errorf("no focused window")
	}
	return c.requestClose(c.focused, false)
}

// raiseFront toggles the focused window between the Normal and Front tiers.
func (c *Compositor) raiseFront() error {
	w, ok := c.display.Window(c.focused)
	if !ok {
		return fmt.Errorf("no focused window")
	}
	z := compositor.ZFront
	if w.ZOrder == compositor.ZFront {
		z = compositor.ZNormal
	}
	c.display.SetZOrder(w.ID, z)
	return nil
}

// Actions adapts the policy operations to the hotkey handler. Each call
// is queued onto the compositor goroutine; failures are logged there.
type Actions struct {
	c *Compositor
}

func (c *Compositor) Actions() Actions {
	return Actions{c: c}
}

func (a Actions) run(name string, fn func() error) error {
	return a.c.post(func() {
		if err := fn(); err != nil {
			a.c.logger.Info("action failed", "action", name, "error", err)
		}
	})
}

func (a Actions) Tile() error {
	return a.run("tile", func() error {
		_, err := a.c.tile("")
		return err
	})
}

func (a Actions) CycleLayout() error  { return a.run("cycle_layout", a.c.cycleLayout) }
func (a Actions) CycleFocus() error   { return a.run("cycle_focus", a.c.cycleFocus) }
func (a Actions) CloseFocused() error { return a.run("close_focused", a.c.closeFocused) }
func (a Actions) RaiseFront() error   { return a.run("raise_front", a.c.raiseFront) }

// Reload queues a config reload, as RELOAD does.
func (a Actions) Reload() error { return a.run("reload", a.c.reload) }
