package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/starry/internal/gfx"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_ValidAndHasBuiltinLayouts(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	for _, name := range []string{"auto", "columns", "rows", "master-stack"} {
		if _, ok := cfg.Tiling.Layouts[name]; !ok {
			t.Fatalf("expected builtin %q to exist in layouts", name)
		}
	}
	if cfg.BackgroundColor() != gfx.RGB(0x1e, 0x24, 0x30) {
		t.Fatalf("unexpected background %v", cfg.BackgroundColor())
	}
	if cfg.WriteTimeout() != 2*time.Second {
		t.Fatalf("unexpected write timeout %v", cfg.WriteTimeout())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Tiling.DefaultLayout != DefaultBuiltinLayout {
		t.Fatalf("expected default_layout %q, got %q", DefaultBuiltinLayout, res.Config.Tiling.DefaultLayout)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Compositor.DrainBudget != DefaultConfig().Compositor.DrainBudget {
		t.Fatalf("expected default drain budget, got %d", res.Config.Compositor.DrainBudget)
	}
}

func TestLoadFromPath_OverridesNestedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"device:",
		"  backend: memory",
		"  width: 640",
		"  height: 480",
		"background: \"#ff0000\"",
		"log_level: debug",
		"compositor:",
		"  drain_budget: 4",
		"tiling:",
		"  layouts:",
		"    wide:",
		"      mode: fixed",
		"      tile_region: {type: full}",
		"      fixed_grid: {rows: 1, cols: 3}",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Device.Backend != BackendMemory || cfg.Device.Width != 640 || cfg.Device.Height != 480 {
		t.Fatalf("unexpected device %+v", cfg.Device)
	}
	// Untouched siblings keep their defaults.
	if cfg.Device.Path != "/dev/fb0" {
		t.Fatalf("expected default device path, got %q", cfg.Device.Path)
	}
	if cfg.Compositor.DrainBudget != 4 || cfg.Compositor.InboxCapacity != 64 {
		t.Fatalf("unexpected compositor %+v", cfg.Compositor)
	}
	if cfg.BackgroundColor() != gfx.RGB(255, 0, 0) {
		t.Fatalf("unexpected background %v", cfg.BackgroundColor())
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected level %v", cfg.SlogLevel())
	}
	if _, err := cfg.GetLayout("wide"); err != nil {
		t.Fatalf("custom layout: %v", err)
	}
	if _, err := cfg.GetLayout("auto"); err != nil {
		t.Fatalf("builtin layouts should survive a custom layout map: %v", err)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "compositor:\n  drain_budgets: 3\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
	if !strings.Contains(err.Error(), "drain_budgets") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\ncompositor:\n  inbox_capacity: 0\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "compositor.inbox_capacity" {
		t.Fatalf("unexpected path %q", verr.Path)
	}
	if verr.Source.Line != 3 {
		t.Fatalf("expected line 3, got %d (%v)", verr.Source.Line, err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conf.d", "10-a.yaml"), "background: \"#000001\"\nlog_level: error\n")
	writeFile(t, filepath.Join(dir, "conf.d", "20-b.yaml"), "background: \"#000002\"\n")
	main := filepath.Join(dir, "config.yaml")
	writeFile(t, main, "include: conf.d\nlog_level: warning\n")

	res, err := LoadFromPath(main)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Background != "#000002" {
		t.Fatalf("expected later include to win, got %q", res.Config.Background)
	}
	if res.Config.LogLevel != "warning" {
		t.Fatalf("expected main file to win, got %q", res.Config.LogLevel)
	}
	if len(res.Files) != 3 || filepath.Base(res.Files[2]) != "config.yaml" {
		t.Fatalf("unexpected load order %v", res.Files)
	}
	if res.Config.Include != nil {
		t.Fatalf("include list should not leak into the effective config")
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: b.yaml\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"backend", func(c *Config) { c.Device.Backend = "vga" }, "device.backend"},
		{"memory size", func(c *Config) { c.Device.Backend = BackendMemory; c.Device.Width = 0 }, "device"},
		{"background", func(c *Config) { c.Background = "blue" }, "background"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"message bytes", func(c *Config) { c.Compositor.MaxMessageBytes = 1024 }, "compositor.max_message_bytes"},
		{"default layout", func(c *Config) { c.Tiling.DefaultLayout = "missing" }, "tiling.default_layout"},
		{"layout mode", func(c *Config) {
			c.Tiling.Layouts["bad"] = Layout{Mode: "spiral", TileRegion: TileRegion{Type: RegionFull}}
		}, "tiling.layouts.bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			var verr *ValidationError
			if err := cfg.Validate(); !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestSave_RoundTripsAndOmitsBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starry", "config.yaml")
	cfg := DefaultConfig()
	cfg.Tiling.GapSize = 3
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "master-stack") {
		t.Fatalf("expected builtin layouts to be omitted:\n%s", data)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if res.Config.Tiling.GapSize != 3 {
		t.Fatalf("gap size = %d, want 3", res.Config.Tiling.GapSize)
	}
}

func TestDefaultConfigPath_UsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := filepath.Join(home, ".config", "starry", "config.yaml"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}
