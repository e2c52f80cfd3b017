package mcp

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
)

type fakeControl struct {
	calls    []string
	zorder   compositor.ZOrder
	injects  []compositor.Event
	closeErr error
}

func (f *fakeControl) record(s string) { f.calls = append(f.calls, s) }

func (f *fakeControl) Status() (*ipc.StatusData, error) {
	return &ipc.StatusData{Backend: "memory", Width: 4, Height: 2, Windows: 1}, nil
}

func (f *fakeControl) ListWindows() ([]ipc.WindowInfo, error) {
	return nil, nil
}

func (f *fakeControl) ListLayouts() (*ipc.LayoutsData, error) {
	return &ipc.LayoutsData{Layouts: []string{"auto", "columns"}, DefaultLayout: "auto", ActiveLayout: "auto"}, nil
}

func (f *fakeControl) SetZOrder(id uint32, z compositor.ZOrder) error {
	f.record("zorder")
	f.zorder = z
	return nil
}

func (f *fakeControl) Raise(id uint32) error { f.record("raise"); return nil }
func (f *fakeControl) Focus(id uint32) error { f.record("focus"); return nil }

func (f *fakeControl) Move(id uint32, x, y int) error   { f.record("move"); return nil }
func (f *fakeControl) Resize(id uint32, w, h int) error { f.record("resize"); return nil }

func (f *fakeControl) CloseWindow(id uint32, force bool) error {
	f.record("close")
	return f.closeErr
}

func (f *fakeControl) Tile(layout string) (*ipc.TileData, error) {
	return &ipc.TileData{Layout: layout, Placed: 1}, nil
}

func (f *fakeControl) InjectEvent(id uint32, ev compositor.Event) (uint32, error) {
	f.injects = append(f.injects, ev)
	return 3, nil
}

func (f *fakeControl) Snapshot() (*ipc.SnapshotData, error) {
	img := gfx.NewImageFilled(4, 2, gfx.RGB(1, 2, 3))
	return &ipc.SnapshotData{Width: 4, Height: 2, Pixels: img.EncodeRGBA()}, nil
}

func (f *fakeControl) Repaint() error { f.record("repaint"); return nil }
func (f *fakeControl) Reload() error  { f.record("reload"); return nil }

func newTestServer(t *testing.T) (*Server, *fakeControl) {
	t.Helper()
	fake := &fakeControl{}
	return NewServer(fake, slog.New(slog.NewTextHandler(io.Discard, nil))), fake
}

func TestSetZOrderParsesTier(t *testing.T) {
	s, fake := newTestServer(t)
	if _, _, err := s.handleSetZOrder(context.Background(), nil, SetZOrderInput{ID: 1, ZOrder: "front"}); err != nil {
		t.Fatalf("handleSetZOrder: %v", err)
	}
	if fake.zorder != compositor.ZFront {
		t.Fatalf("zorder %v, want front", fake.zorder)
	}
	if _, _, err := s.handleSetZOrder(context.Background(), nil, SetZOrderInput{ID: 1, ZOrder: "sideways"}); err == nil {
		t.Fatalf("invalid tier accepted")
	}
}

func TestInjectEventValidatesType(t *testing.T) {
	s, fake := newTestServer(t)
	_, out, err := s.handleInject(context.Background(), nil, InjectEventInput{Type: "button", Code: 1, Pressed: true, X: 5, Y: 6})
	if err != nil {
		t.Fatalf("handleInject: %v", err)
	}
	if out.ID != 3 {
		t.Fatalf("routed to %d, want 3", out.ID)
	}
	want := []compositor.Event{{Type: compositor.EventButton, Code: 1, Pressed: true, X: 5, Y: 6}}
	if diff := cmp.Diff(want, fake.injects); diff != "" {
		t.Fatalf("injected events mismatch (-want +got):\n%s", diff)
	}

	for _, typ := range []string{"focus", "resize", ""} {
		if _, _, err := s.handleInject(context.Background(), nil, InjectEventInput{Type: typ}); err == nil {
			t.Fatalf("event type %q accepted", typ)
		}
	}
}

func TestResizeRejectsEmptySize(t *testing.T) {
	s, fake := newTestServer(t)
	if _, _, err := s.handleResize(context.Background(), nil, ResizeWindowInput{ID: 1, W: 0, H: 10}); err == nil {
		t.Fatalf("zero width accepted")
	}
	if len(fake.calls) != 0 {
		t.Fatalf("control called for an invalid size: %v", fake.calls)
	}
}

func TestCloseWindowPropagatesError(t *testing.T) {
	s, fake := newTestServer(t)
	fake.closeErr = errors.New("window 1 is unclosable; close event delivered")
	if _, _, err := s.handleClose(context.Background(), nil, CloseWindowInput{ID: 1}); err == nil {
		t.Fatalf("close error swallowed")
	}
}

func TestSnapshotReturnsPNG(t *testing.T) {
	s, _ := newTestServer(t)
	res, _, err := s.handleSnapshot(context.Background(), nil, SnapshotInput{Scale: 2})
	if err != nil {
		t.Fatalf("handleSnapshot: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(res.Content))
	}
	img, ok := res.Content[0].(*mcpsdk.ImageContent)
	if !ok {
		t.Fatalf("content is %T, want *ImageContent", res.Content[0])
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 4 {
		t.Fatalf("snapshot %dx%d, want 8x4", cfg.Width, cfg.Height)
	}
}

func TestListWindowsNeverNull(t *testing.T) {
	s, _ := newTestServer(t)
	res, _, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *TextContent", res.Content[0])
	}
	if !strings.Contains(text.Text, `"windows": []`) {
		t.Fatalf("got %q, want an empty windows array", text.Text)
	}
}

func TestActionToolsCallControl(t *testing.T) {
	s, fake := newTestServer(t)
	ctx := context.Background()
	s.handleRaise(ctx, nil, WindowInput{ID: 1})
	s.handleFocus(ctx, nil, WindowInput{ID: 1})
	s.handleMove(ctx, nil, MoveWindowInput{ID: 1, X: 2, Y: 3})
	s.handleResize(ctx, nil, ResizeWindowInput{ID: 1, W: 2, H: 3})
	s.handleRepaint(ctx, nil, ActionInput{})
	s.handleReload(ctx, nil, ActionInput{})

	want := []string{"raise", "focus", "move", "resize", "repaint", "reload"}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Fatalf("control calls mismatch (-want +got):\n%s", diff)
	}
}
