package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/1broseidon/starry/client"
)

const keysymQ = 0x71

func runDemo(args []string) int {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: starry demo [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window painted with a gradient and a bouncing square.")
		fmt.Fprintln(os.Stderr, "Press q in the window or close it to exit.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	socket := fs.String("socket", "", "Socket path (default: $STARRY_SOCKET or the runtime dir)")
	x := fs.Int("x", 40, "Window x")
	y := fs.Int("y", 40, "Window y")
	width := fs.Int("w", 320, "Window width")
	height := fs.Int("h", 200, "Window height")
	title := fs.String("title", "starry demo", "Window title")
	front := fs.Bool("front", false, "Open in the front tier")
	fps := fs.Int("fps", 30, "Frames per second")
	frames := fs.Int("frames", 0, "Exit after this many frames (0 runs until closed)")
	from := fs.String("from", "#1e3c72", "Gradient start colour")
	to := fs.String("to", "#8e44ad", "Gradient end colour")
	fallback := fs.Bool("fallback", false, "Draw on the framebuffer directly when no server is running")
	device := fs.String("device", "/dev/fb0", "Framebuffer used with --fallback")
	verbose := fs.Bool("v", false, "Log client activity to stderr")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "demo takes no arguments")
		fs.Usage()
		return 2
	}
	if *fps <= 0 {
		fmt.Fprintf(os.Stderr, "fps must be positive, got %d\n", *fps)
		return 2
	}

	scene, err := newDemoScene(*from, *to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *verbose {
		client.SetLogger(newStderrLogger())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := client.Options{
		X:          *x,
		Y:          *y,
		W:          *width,
		H:          *height,
		Title:      *title,
		Flags:      client.Flags{Resizable: true},
		SocketPath: *socket,
		Fallback:   *fallback,
		DevicePath: *device,
	}
	if *front {
		opts.ZOrder = client.ZFront
	}
	w, err := client.New(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer w.Close()
	if w.Standalone() {
		fmt.Fprintf(os.Stderr, "no server running; drawing on %s\n", *device)
	}

	ticker := time.NewTicker(time.Second / time.Duration(*fps))
	defer ticker.Stop()

	scene.paintBackground(w)
	for frame := 0; *frames == 0 || frame < *frames; frame++ {
		scene.step(w, frame)
		if !w.Sync() {
			return reportClosed(w.Err())
		}
		for _, ev := range w.PollEvents() {
			switch {
			case ev.Type == client.EventResize:
				scene.paintBackground(w)
			case ev.Type == client.EventClose:
				return 0
			case ev.Type == client.EventKey && ev.Pressed && ev.Code == keysymQ:
				return 0
			}
		}

		select {
		case <-ctx.Done():
			return 0
		case <-w.Closed():
			return reportClosed(w.Err())
		case <-ticker.C:
		}
	}
	return 0
}

func newStderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func reportClosed(err error) int {
	if err == nil || errors.Is(err, client.ErrChannelBroken) {
		fmt.Fprintf(os.Stderr, "window closed: %v\n", err)
		return 0
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

// demoScene paints a horizontal gradient with a square bouncing over it.
type demoScene struct {
	from, to colorful.Color
	square   client.Rect
}

const (
	squareSize = 24
	speedX     = 3
	speedY     = 2
)

func newDemoScene(from, to string) (*demoScene, error) {
	a, err := colorful.Hex(from)
	if err != nil {
		return nil, fmt.Errorf("invalid gradient start %q: %w", from, err)
	}
	b, err := colorful.Hex(to)
	if err != nil {
		return nil, fmt.Errorf("invalid gradient end %q: %w", to, err)
	}
	return &demoScene{from: a, to: b}, nil
}

// gradientAt returns the background colour of column x in a window width
// columns wide.
func (s *demoScene) gradientAt(x, width int) client.Color {
	t := 0.0
	if width > 1 {
		t = float64(x) / float64(width-1)
	}
	r, g, b := s.from.BlendLab(s.to, t).Clamped().RGB255()
	return client.RGB(r, g, b)
}

// paintColumns repaints the background for the columns r covers.
func (s *demoScene) paintColumns(w *client.Window, r client.Rect) {
	width := w.Width()
	for x := max(r.X, 0); x < min(r.X+r.W, width); x++ {
		w.FillRect(client.NewRect(x, r.Y, 1, r.H), s.gradientAt(x, width))
	}
}

func (s *demoScene) paintBackground(w *client.Window) {
	s.paintColumns(w, client.NewRect(0, 0, w.Width(), w.Height()))
	s.square = client.Rect{}
}

// step erases the square and draws it at its position for frame.
func (s *demoScene) step(w *client.Window, frame int) {
	if !s.square.Empty() {
		s.paintColumns(w, s.square)
	}
	s.square = squareAt(frame, w.Width(), w.Height(), squareSize)
	hue := float64((frame * 3) % 360)
	r, g, b := colorful.Hsv(hue, 0.7, 0.95).RGB255()
	w.FillRect(s.square, client.RGB(r, g, b))
}

// squareAt bounces a size x size square inside a width x height window.
func squareAt(frame, width, height, size int) client.Rect {
	size = min(size, width, height)
	return client.NewRect(
		bounce(frame*speedX, width-size),
		bounce(frame*speedY, height-size),
		size, size,
	)
}

// bounce folds p into [0, span] as a triangle wave.
func bounce(p, span int) int {
	if span <= 0 {
		return 0
	}
	p %= 2 * span
	if p > span {
		return 2*span - p
	}
	return p
}
