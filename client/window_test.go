package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/starry/internal/daemon"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/platform"
)

func startServer(t *testing.T) (string, *platform.Memory, *ipc.Client) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dev := platform.NewMemory(160, 120)
	comp, err := daemon.NewCompositor(daemon.Options{Device: dev, Backend: platform.BackendMemory, Logger: logger})
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		comp.Serve(ctx)
	}()

	socket := filepath.Join(t.TempDir(), "starry.sock")
	srv, err := ipc.NewServer(comp, ipc.ServerOptions{SocketPath: socket, Logger: logger})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
		cancel()
		<-served
	})
	return socket, dev, ipc.NewClientWithSocket(socket)
}

func open(t *testing.T, opts Options) *Window {
	t.Helper()
	w, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSyncSendsDirtyRegion(t *testing.T) {
	socket, dev, _ := startServer(t)
	w := open(t, Options{X: 20, Y: 10, W: 60, H: 50, SocketPath: socket})
	red := RGB(255, 0, 0)

	w.FillRect(NewRect(10, 10, 20, 20), red)
	w.SetPixel(40, 40, red)
	if got, want := w.Dirty(), NewRect(10, 10, 31, 31); got != want {
		t.Fatalf("dirty %v, want %v", got, want)
	}
	if !w.Sync() {
		t.Fatalf("Sync reported a closed window")
	}
	if got := w.Dirty(); !got.Empty() {
		t.Fatalf("dirty %v after Sync, want empty", got)
	}

	waitFor(t, "update on device", func() bool { return dev.PixelAt(60, 60) == red })
	if got := dev.PixelAt(30, 20); got != red {
		t.Fatalf("pixel (30,20) = %v, want %v", got, red)
	}
	if got := dev.PixelAt(50, 40); got == red {
		t.Fatalf("pixel (50,40) painted outside the filled rect")
	}
}

func TestBackgroundPaintsOnFirstSync(t *testing.T) {
	socket, dev, _ := startServer(t)
	blue := RGB(0, 0, 200)
	w := open(t, Options{W: 8, H: 8, Background: blue, SocketPath: socket})

	if got, want := w.Dirty(), NewRect(0, 0, 8, 8); got != want {
		t.Fatalf("dirty %v, want %v", got, want)
	}
	w.Sync()
	waitFor(t, "background on device", func() bool { return dev.PixelAt(7, 7) == blue })
}

func TestSyncAppliesServerGeometry(t *testing.T) {
	socket, _, ctl := startServer(t)
	w := open(t, Options{X: 0, Y: 0, W: 30, H: 30, SocketPath: socket})
	w.Fill(RGB(1, 2, 3))
	w.Sync()

	if err := ctl.Resize(w.ID(), 50, 40); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := ctl.Move(w.ID(), 5, 6); err != nil {
		t.Fatalf("Move: %v", err)
	}
	waitFor(t, "geometry applied", func() bool {
		w.Sync()
		return w.Width() == 50 && w.Height() == 40 && w.X() == 5 && w.Y() == 6
	})
	if got := w.Image().At(29, 29); got != RGB(1, 2, 3) {
		t.Fatalf("content lost on resize: %v", got)
	}

	events := w.PollEvents()
	var resized bool
	for _, ev := range events {
		if ev.Type == EventResize && ev.W == 50 && ev.H == 40 {
			resized = true
		}
	}
	if !resized {
		t.Fatalf("got events %+v, want a resize to 50x40", events)
	}
}

func TestSetSizeKeepsContent(t *testing.T) {
	socket, _, ctl := startServer(t)
	w := open(t, Options{W: 10, H: 10, Title: "before", SocketPath: socket})
	w.SetPixel(2, 2, RGB(9, 9, 9))
	w.SetSize(20, 5)
	w.SetTitle("after")

	if w.Width() != 20 || w.Height() != 5 {
		t.Fatalf("size %dx%d, want 20x5", w.Width(), w.Height())
	}
	if got := w.Image().At(2, 2); got != RGB(9, 9, 9) {
		t.Fatalf("pixel lost on SetSize: %v", got)
	}
	waitFor(t, "server sees new size and title", func() bool {
		windows, err := ctl.ListWindows()
		return err == nil && len(windows) == 1 && windows[0].W == 20 && windows[0].H == 5 && windows[0].Title == "after"
	})
}

func TestSetSizeOverridesEarlierServerGeometry(t *testing.T) {
	socket, _, ctl := startServer(t)
	w := open(t, Options{X: 0, Y: 0, W: 30, H: 30, SocketPath: socket})

	if err := ctl.Resize(w.ID(), 50, 40); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	// Give the GEOMETRY notice time to reach the client unapplied.
	time.Sleep(200 * time.Millisecond)
	w.SetSize(20, 20)
	w.SetPos(7, 8)
	w.Sync()

	if w.Width() != 20 || w.Height() != 20 || w.X() != 7 || w.Y() != 8 {
		t.Fatalf("client geometry %dx%d+%d+%d, want 20x20+7+8", w.Width(), w.Height(), w.X(), w.Y())
	}
	waitFor(t, "server sees the client geometry", func() bool {
		windows, err := ctl.ListWindows()
		return err == nil && len(windows) == 1 && windows[0].W == 20 && windows[0].H == 20 && windows[0].X == 7 && windows[0].Y == 8
	})
	w.Sync()
	if w.Width() != 20 || w.Height() != 20 {
		t.Fatalf("client size %dx%d after a later Sync, want 20x20", w.Width(), w.Height())
	}

	// Window manager changes made after the client's request still apply.
	if err := ctl.Resize(w.ID(), 44, 33); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	waitFor(t, "later geometry applied", func() bool {
		w.Sync()
		return w.Width() == 44 && w.Height() == 33
	})
}

func TestSyncFalseAfterServerClose(t *testing.T) {
	socket, _, ctl := startServer(t)
	w := open(t, Options{W: 10, H: 10, SocketPath: socket})

	if err := ctl.CloseWindow(w.ID(), false); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	select {
	case <-w.Closed():
	case <-time.After(3 * time.Second):
		t.Fatalf("window not closed")
	}
	w.Fill(RGB(1, 1, 1))
	if w.Sync() {
		t.Fatalf("Sync succeeded on a closed window")
	}
	if err := w.Err(); !errors.Is(err, ErrChannelBroken) {
		t.Fatalf("got %v, want ErrChannelBroken", err)
	}
}

func TestNewWithoutServer(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	_, err := New(context.Background(), Options{W: 10, H: 10, SocketPath: socket, Timeout: 200 * time.Millisecond})
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("got %v, want ErrResourceUnavailable", err)
	}
}

func TestFallbackDrawsDirectly(t *testing.T) {
	mem := platform.NewMemory(64, 48)
	restore := openDevice
	openDevice = func(string) (platform.Device, error) { return mem, nil }
	t.Cleanup(func() { openDevice = restore })

	socket := filepath.Join(t.TempDir(), "missing.sock")
	w, err := New(context.Background(), Options{X: 4, Y: 4, W: 10, H: 10, SocketPath: socket, Fallback: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !w.Standalone() {
		t.Fatalf("window is not standalone")
	}

	green := RGB(0, 255, 0)
	w.Fill(green)
	if !w.Sync() {
		t.Fatalf("Sync failed")
	}
	if got := mem.PixelAt(8, 8); got != green {
		t.Fatalf("pixel (8,8) = %v, want %v", got, green)
	}
	if got := mem.PixelAt(3, 3); got != RGB(0, 0, 0) {
		t.Fatalf("pixel (3,3) = %v, want black background", got)
	}
	if events := w.PollEvents(); len(events) != 0 {
		t.Fatalf("standalone window reported events %+v", events)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := mem.PixelAt(8, 8); got != RGB(0, 0, 0) {
		t.Fatalf("pixel (8,8) = %v after close, want background", got)
	}
	if !mem.Closed() {
		t.Fatalf("device left open")
	}
	if w.Sync() {
		t.Fatalf("Sync succeeded after Close")
	}
}

func TestPollEventsIncludesFocus(t *testing.T) {
	socket, _, _ := startServer(t)
	w := open(t, Options{W: 10, H: 10, SocketPath: socket})

	events := w.PollEvents()
	if len(events) == 0 || events[0].Type != EventFocus || !events[0].Focused {
		t.Fatalf("got %+v, want an initial focus event", events)
	}
}
