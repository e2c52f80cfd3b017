package x11

import (
	"context"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
)

// KeyFilter reports whether a key press was consumed elsewhere (a hotkey)
// and must not reach a window.
type KeyFilter func(state uint16, code xproto.Keycode) bool

// PumpOptions wires the X event loop to the compositor.
type PumpOptions struct {
	// Input receives translated device events in screen coordinates.
	Input func(compositor.Event)
	// Filter drops key events bound to hotkeys. Optional.
	Filter KeyFilter
	// OnClose runs when the output window is closed by the host WM.
	OnClose func()
	Logger  *slog.Logger
}

// Pump runs the X event loop for an Output.
type Pump struct {
	out    *Output
	opts   PumpOptions
	logger *slog.Logger
}

func NewPump(out *Output, opts PumpOptions) *Pump {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Input == nil {
		opts.Input = func(compositor.Event) {}
	}
	p := &Pump{out: out, opts: opts, logger: logger}
	p.connect()
	return p
}

func (p *Pump) connect() {
	xu := p.out.XUtil()
	win := p.out.Window()

	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		p.out.Expose(gfx.NewRect(int(ev.X), int(ev.Y), int(ev.Width), int(ev.Height)))
	}).Connect(xu, win)

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		if p.opts.Filter != nil && p.opts.Filter(ev.State, ev.Detail) {
			return
		}
		p.opts.Input(keyEvent(xu, ev.Detail, ev.State, true))
	}).Connect(xu, win)

	xevent.KeyReleaseFun(func(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
		p.opts.Input(keyEvent(xu, ev.Detail, ev.State, false))
	}).Connect(xu, win)

	xevent.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		p.opts.Input(buttonEvent(ev.Detail, ev.State, ev.EventX, ev.EventY, true))
	}).Connect(xu, win)

	xevent.ButtonReleaseFun(func(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		p.opts.Input(buttonEvent(ev.Detail, ev.State, ev.EventX, ev.EventY, false))
	}).Connect(xu, win)

	xevent.MotionNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		p.opts.Input(compositor.Event{
			Type:    compositor.EventMouse,
			X:       int(ev.EventX),
			Y:       int(ev.EventY),
			Buttons: buttonMask(ev.State),
		})
	}).Connect(xu, win)

	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if icccm.IsDeleteProtocol(xu, ev) {
			p.logger.Info("output window closed by host")
			if p.opts.OnClose != nil {
				p.opts.OnClose()
			}
		}
	}).Connect(xu, win)
}

// Serve runs the event loop until ctx is done.
func (p *Pump) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			p.out.conn.Quit()
			p.wake()
		case <-stop:
		}
	}()

	p.logger.Info("x11 event loop started", "window", p.out.Window())
	p.out.conn.EventLoop()
	p.logger.Info("x11 event loop stopped")
	return ctx.Err()
}

// wake sends the output window an empty expose so a blocked loop notices
// Quit.
func (p *Pump) wake() {
	ev := xproto.ExposeEvent{Window: p.out.Window()}
	xproto.SendEvent(p.out.XUtil().Conn(), false, p.out.Window(), xproto.EventMaskExposure, string(ev.Bytes()))
}

func keyEvent(xu *xgbutil.XUtil, code xproto.Keycode, state uint16, pressed bool) compositor.Event {
	column := byte(0)
	if state&xproto.ModMaskShift != 0 {
		column = 1
	}
	sym := keybind.KeysymGet(xu, code, column)
	if sym == 0 {
		sym = keybind.KeysymGet(xu, code, 0)
	}
	return compositor.Event{Type: compositor.EventKey, Code: uint32(sym), Pressed: pressed}
}

func buttonEvent(button xproto.Button, state uint16, x, y int16, pressed bool) compositor.Event {
	return compositor.Event{
		Type:    compositor.EventButton,
		Code:    uint32(button),
		Pressed: pressed,
		X:       int(x),
		Y:       int(y),
		Buttons: buttonMask(state),
	}
}

// buttonMask maps the X core button state bits to a 1-based bit set:
// bit 0 is button 1.
func buttonMask(state uint16) uint8 {
	var mask uint8
	for i, bit := range []uint16{
		xproto.ButtonMask1, xproto.ButtonMask2, xproto.ButtonMask3,
		xproto.ButtonMask4, xproto.ButtonMask5,
	} {
		if state&bit != 0 {
			mask |= 1 << i
		}
	}
	return mask
}
