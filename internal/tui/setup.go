package tui

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/gfx"
)

// ErrSetupAborted is returned when the user leaves the setup form.
var ErrSetupAborted = errors.New("setup aborted")

// setupForm holds the form-bound values as strings, converted on submit.
type setupForm struct {
	cfg *config.Config

	fBackend       string
	fPath          string
	fWidth         string
	fHeight        string
	fBackground    string
	fGapSize       string
	fDefaultLayout string
	fLogLevel      string
}

func newSetupForm(cfg *config.Config) *setupForm {
	return &setupForm{
		cfg:            cfg,
		fBackend:       cfg.Device.Backend,
		fPath:          cfg.Device.Path,
		fWidth:         strconv.Itoa(cfg.Device.Width),
		fHeight:        strconv.Itoa(cfg.Device.Height),
		fBackground:    cfg.Background,
		fGapSize:       strconv.Itoa(cfg.Tiling.GapSize),
		fDefaultLayout: cfg.Tiling.DefaultLayout,
		fLogLevel:      cfg.LogLevel,
	}
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter zero or a positive number")
	}
	return nil
}

func hexColor(s string) error {
	_, err := gfx.ParseHex(s)
	return err
}

func (f *setupForm) build() *huh.Form {
	layoutOpts := make([]huh.Option[string], 0, len(f.cfg.Tiling.Layouts))
	for _, name := range f.cfg.LayoutNames() {
		layoutOpts = append(layoutOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("backend").
				Title("Backend").
				Description("Where the compositor draws").
				Options(huh.NewOptions(config.BackendFbdev, config.BackendX11, config.BackendMemory)...).
				Value(&f.fBackend),

			huh.NewInput().
				Key("path").
				Title("Framebuffer").
				Description("Device path for the fbdev backend").
				Value(&f.fPath),

			huh.NewInput().
				Key("width").
				Title("Width").
				Description("Screen width for the x11 and memory backends").
				Validate(positiveInt).
				Value(&f.fWidth),

			huh.NewInput().
				Key("height").
				Title("Height").
				Validate(positiveInt).
				Value(&f.fHeight),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("background").
				Title("Background").
				Description("Hex colour shown where no window is").
				Validate(hexColor).
				Value(&f.fBackground),

			huh.NewInput().
				Key("gap_size").
				Title("Gap Size").
				Description("Pixels between tiled windows").
				Validate(nonNegativeInt).
				Value(&f.fGapSize),

			huh.NewSelect[string]().
				Key("default_layout").
				Title("Default Layout").
				Options(layoutOpts...).
				Value(&f.fDefaultLayout),

			huh.NewSelect[string]().
				Key("log_level").
				Title("Log Level").
				Options(huh.NewOptions("debug", "info", "warning", "error")...).
				Value(&f.fLogLevel),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

// apply copies the form values into a copy of the config and validates it.
func (f *setupForm) apply() (*config.Config, error) {
	out := *f.cfg
	out.Device.Backend = f.fBackend
	out.Device.Path = strings.TrimSpace(f.fPath)
	out.Background = strings.TrimSpace(f.fBackground)
	out.Tiling.DefaultLayout = f.fDefaultLayout
	out.LogLevel = f.fLogLevel

	var err error
	if out.Device.Width, err = strconv.Atoi(strings.TrimSpace(f.fWidth)); err != nil {
		return nil, fmt.Errorf("invalid width %q", f.fWidth)
	}
	if out.Device.Height, err = strconv.Atoi(strings.TrimSpace(f.fHeight)); err != nil {
		return nil, fmt.Errorf("invalid height %q", f.fHeight)
	}
	if out.Tiling.GapSize, err = strconv.Atoi(strings.TrimSpace(f.fGapSize)); err != nil {
		return nil, fmt.Errorf("invalid gap size %q", f.fGapSize)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunSetup asks for the main settings, starting from cfg, and returns the
// edited config. cfg is not modified.
func RunSetup(cfg *config.Config) (*config.Config, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, fmt.Errorf("setup requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	f := newSetupForm(cfg)
	if err := f.build().Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrSetupAborted
		}
		return nil, err
	}
	return f.apply()
}
