package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/platform"
)

// standalone drives a device directly through a private one-window
// display. It is used only when no server is reachable and the caller
// asked for the fallback. There is no input source, so it never has events.
type standalone struct {
	mu      sync.Mutex
	dev     platform.Device
	display *compositor.Display
	win     *compositor.Window

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func openStandalone(dev platform.Device, req ipc.ConnectPayload, bg gfx.Color) (*standalone, error) {
	info := dev.Info()
	if info.Width <= 0 || info.Height <= 0 {
		dev.Close()
		return nil, fmt.Errorf("device %s reports an empty screen: %w", info.Name, ErrResourceUnavailable)
	}

	win := compositor.NewWindow(1, req.X, req.Y, req.W, req.H)
	win.Title = req.Title
	win.Flags = req.Flags

	display := compositor.NewDisplay(info.Width, info.Height, bg, 0)
	display.Add(win)

	s := &standalone{dev: dev, display: display, win: win, closed: make(chan struct{})}
	if err := s.flush(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("initial flush failed: %v: %w", err, ErrResourceUnavailable)
	}
	return s, nil
}

func (s *standalone) flush() error {
	_, err := s.display.Repaint(s.dev)
	return err
}

func (s *standalone) check() error {
	select {
	case <-s.closed:
		return s.err()
	default:
		return nil
	}
}

func (s *standalone) update(local gfx.Rect, view gfx.ROI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	src, err := gfx.ImageFrom(view.Width(), view.Height(), view.Pixels())
	if err != nil {
		return err
	}
	s.display.UpdateWindow(s.win.ID, gfx.NewRect(local.X, local.Y, view.Width(), view.Height()), src)
	return s.flush()
}

func (s *standalone) configure(x, y, w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.display.Move(s.win.ID, x, y)
	s.display.Resize(s.win.ID, w, h)
	return s.flush()
}

func (s *standalone) setTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.win.Title = title
	return nil
}

func (s *standalone) poll(time.Duration) ([]Event, error) {
	return nil, s.check()
}

func (s *standalone) takeGeometry() (geometry, bool) {
	return geometry{}, false
}

func (s *standalone) done() <-chan struct{} { return s.closed }

func (s *standalone) err() error {
	select {
	case <-s.closed:
		return fmt.Errorf("standalone window closed: %w", ErrChannelBroken)
	default:
		return nil
	}
}

// close restores the background under the window and releases the device.
func (s *standalone) close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.display.Remove(s.win.ID)
		if err := s.flush(); err != nil {
			Logger().Warn("final flush failed", "error", err)
		}
		s.closeErr = s.dev.Close()
		close(s.closed)
	})
	return s.closeErr
}
