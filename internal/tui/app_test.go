package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/ipc"
)

type fakeControl struct {
	windows []ipc.WindowInfo
	calls   []string
	fail    error
}

func (f *fakeControl) Status() (*ipc.StatusData, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &ipc.StatusData{Backend: "memory", Width: 320, Height: 200, Windows: len(f.windows), ActiveLayout: "auto"}, nil
}

func (f *fakeControl) ListWindows() ([]ipc.WindowInfo, error) { return f.windows, nil }

func (f *fakeControl) Raise(id uint32) error {
	f.calls = append(f.calls, "raise")
	return nil
}

func (f *fakeControl) Focus(id uint32) error {
	f.calls = append(f.calls, "focus")
	return nil
}

func (f *fakeControl) SetZOrder(id uint32, z compositor.ZOrder) error {
	f.calls = append(f.calls, "zorder:"+z.String())
	return nil
}

func (f *fakeControl) CloseWindow(id uint32, force bool) error {
	if force {
		f.calls = append(f.calls, "force-close")
	} else {
		f.calls = append(f.calls, "close")
	}
	return nil
}

func (f *fakeControl) Tile(layout string) (*ipc.TileData, error) {
	f.calls = append(f.calls, "tile")
	return &ipc.TileData{Layout: "auto"}, nil
}

func (f *fakeControl) Reload() error {
	f.calls = append(f.calls, "reload")
	return errors.New("server was started without a config file")
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, fake *fakeControl) model {
	t.Helper()
	m := newModel(fake, time.Hour)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ = next.Update(m.refresh()())
	return next.(model)
}

func TestRefreshListsTopmostFirst(t *testing.T) {
	fake := &fakeControl{windows: []ipc.WindowInfo{
		{ID: 1, Title: "bottom"},
		{ID: 2, Title: "top", Focused: true},
	}}
	m := loaded(t, fake)

	if !m.connected {
		t.Fatalf("model not connected after refresh")
	}
	var ids []uint32
	for _, item := range m.list.Items() {
		ids = append(ids, item.(windowItem).info.ID)
	}
	if diff := cmp.Diff([]uint32{2, 1}, ids); diff != "" {
		t.Fatalf("list order mismatch (-want +got):\n%s", diff)
	}
	if view := m.View(); !strings.Contains(view, "server connected") || !strings.Contains(view, "top") {
		t.Fatalf("view missing status or window title:\n%s", view)
	}
}

func TestKeysDriveControl(t *testing.T) {
	fake := &fakeControl{windows: []ipc.WindowInfo{{ID: 4, Title: "only"}}}
	m := loaded(t, fake)

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyEnter},
		runes("r"),
		runes("F"),
		runes("b"),
		runes("x"),
		runes("X"),
		runes("t"),
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("key %q produced no command", key.String())
		}
		if _, ok := cmd().(actionMsg); !ok {
			t.Fatalf("key %q did not run an action", key.String())
		}
	}

	want := []string{"focus", "raise", "zorder:front", "zorder:back", "close", "force-close", "tile"}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Fatalf("control calls mismatch (-want +got):\n%s", diff)
	}
}

func TestActionErrorShownInHelpBar(t *testing.T) {
	fake := &fakeControl{}
	m := loaded(t, fake)

	_, cmd := m.Update(runes("R"))
	next, _ := m.Update(cmd())
	view := next.(model).View()
	if !strings.Contains(view, "without a config file") {
		t.Fatalf("reload error not shown:\n%s", view)
	}
}

func TestRefreshFailureMarksDisconnected(t *testing.T) {
	fake := &fakeControl{fail: errors.New("resource unavailable")}
	m := loaded(t, fake)
	if m.connected {
		t.Fatalf("model connected after a failed refresh")
	}
	if view := m.View(); !strings.Contains(view, "server not running") {
		t.Fatalf("view does not report the missing server:\n%s", view)
	}
}
