package hotkeys

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/starry/internal/config"
)

// Actions are the window manager operations hotkeys can trigger. They are
// called from the X event loop and must not block on it.
type Actions interface {
	Tile() error
	CycleLayout() error
	CycleFocus() error
	CloseFocused() error
	RaiseFront() error
}

type binding struct {
	seq   string
	mods  uint16
	codes []xproto.Keycode
}

// Handler binds key sequences on the output window to Actions.
type Handler struct {
	xu      *xgbutil.XUtil
	win     xproto.Window
	actions Actions

	mu       sync.Mutex
	bindings []binding
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler for keys pressed on win.
func NewHandler(xu *xgbutil.XUtil, win xproto.Window, actions Actions) *Handler {
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:      xu,
		win:     win,
		actions: actions,
	}
}

// Register binds every non-empty sequence in cfg.
func (h *Handler) Register(cfg config.HotkeyConfig) error {
	for _, b := range []struct {
		name string
		seq  string
		run  func() error
	}{
		{"tile", cfg.Tile, h.actions.Tile},
		{"cycle_layout", cfg.CycleLayout, h.actions.CycleLayout},
		{"cycle_focus", cfg.CycleFocus, h.actions.CycleFocus},
		{"close_focused", cfg.CloseFocused, h.actions.CloseFocused},
		{"raise_front", cfg.RaiseFront, h.actions.RaiseFront},
	} {
		if b.seq == "" {
			continue
		}
		name, run := b.name, b.run
		if err := h.RegisterFunc(b.seq, func() {
			log.Printf("Hotkey %s triggered", name)
			if err := run(); err != nil {
				log.Printf("Hotkey %s failed: %v", name, err)
			}
		}); err != nil {
			return fmt.Errorf("failed to register %s hotkey %q: %w", name, b.seq, err)
		}
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	mods, codes, err := keybind.ParseString(h.xu, keySequence)
	if err != nil {
		return err
	}
	if err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.win, keySequence, false); err != nil {
		return err
	}

	h.mu.Lock()
	h.bindings = append(h.bindings, binding{seq: keySequence, mods: mods, codes: codes})
	h.mu.Unlock()
	return nil
}

// Matches reports whether a key press is bound to a hotkey, ignoring
// lock modifiers.
func (h *Handler) Matches(state uint16, code xproto.Keycode) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return matchBinding(h.bindings, state, code)
}

func matchBinding(bindings []binding, state uint16, code xproto.Keycode) bool {
	state &= relevantMods
	for _, b := range bindings {
		if b.mods == state && slices.Contains(b.codes, code) {
			return true
		}
	}
	return false
}

// relevantMods drops lock and button bits from a key event state.
const relevantMods = xproto.ModMaskShift | xproto.ModMaskControl |
	xproto.ModMask1 | xproto.ModMask3 | xproto.ModMask4 | xproto.ModMask5

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
