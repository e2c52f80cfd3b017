package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/gfx"
	"github.com/1broseidon/starry/internal/ipc"
)

// titleWidth is the column width titles are truncated to in list output.
const titleWidth = 32

// controlFlagSet returns a flag set with the shared --socket flag.
func controlFlagSet(name, usage, desc string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "Socket path (default: $STARRY_SOCKET or the runtime dir)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: starry "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, desc)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	return fs, socket
}

// parseControl parses args and checks the positional count. It returns a
// client and -1 on success, or the exit code to return.
func parseControl(fs *flag.FlagSet, socket *string, args []string, nargs int) (*ipc.Client, int) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, 0
		}
		return nil, 2
	}
	if fs.NArg() != nargs {
		if nargs == 0 {
			fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		} else {
			fmt.Fprintf(os.Stderr, "%s requires %d arguments\n", fs.Name(), nargs)
		}
		fs.Usage()
		return nil, 2
	}
	client, err := newClient(*socket)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, 1
	}
	return client, -1
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return uint32(id), nil
}

// parseInts parses every argument as an int, naming the first bad one.
func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = n
	}
	return out, nil
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runStatus(args []string) int {
	fs, socket := controlFlagSet("status", "status [--socket PATH]", "Show compositor status via IPC.")
	client, code := parseControl(fs, socket, args, 0)
	if code >= 0 {
		return code
	}

	status, err := client.Status()
	if err != nil {
		return fail(err)
	}
	fmt.Printf("backend:        %s\n", status.Backend)
	if status.Device != "" {
		fmt.Printf("device:         %s\n", status.Device)
	}
	fmt.Printf("size:           %dx%d\n", status.Width, status.Height)
	fmt.Printf("windows:        %d\n", status.Windows)
	fmt.Printf("focused:        %d\n", status.Focused)
	fmt.Printf("active_layout:  %s\n", status.ActiveLayout)
	fmt.Printf("background:     %s\n", status.Background)
	fmt.Printf("frames:         %d\n", status.Frames)
	fmt.Printf("pending_damage: %d\n", status.PendingDamage)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runList(args []string) int {
	fs, socket := controlFlagSet("list", "list [--socket PATH]", "List windows, bottom of the stack first. * marks the focused window.")
	client, code := parseControl(fs, socket, args, 0)
	if code >= 0 {
		return code
	}

	windows, err := client.ListWindows()
	if err != nil {
		return fail(err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tGEOMETRY\tFLAGS\tTITLE")
	for _, w := range windows {
		id := strconv.FormatUint(uint64(w.ID), 10)
		if w.Focused {
			id += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d+%d+%d\t%s\t%s\n",
			id, w.ZOrder, w.W, w.H, w.X, w.Y, formatFlags(w.Flags), truncateTitle(w.Title, titleWidth))
	}
	if err := tw.Flush(); err != nil {
		return fail(err)
	}
	return 0
}

func formatFlags(f compositor.Flags) string {
	var parts []string
	if f.Borderless {
		parts = append(parts, "borderless")
	}
	if f.Resizable {
		parts = append(parts, "resizable")
	}
	if f.Transparent {
		parts = append(parts, "transparent")
	}
	if f.Unclosable {
		parts = append(parts, "unclosable")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// truncateTitle fits title into width terminal cells.
func truncateTitle(title string, width int) string {
	if title == "" {
		return "(untitled)"
	}
	return runewidth.Truncate(title, width, "…")
}

func runLayouts(args []string) int {
	fs, socket := controlFlagSet("layouts", "layouts [--socket PATH]", "List the server's tiling layouts.")
	client, code := parseControl(fs, socket, args, 0)
	if code >= 0 {
		return code
	}

	data, err := client.ListLayouts()
	if err != nil {
		return fail(err)
	}
	fmt.Printf("default_layout: %s\n", data.DefaultLayout)
	fmt.Printf("active_layout:  %s\n", data.ActiveLayout)
	for _, name := range data.Layouts {
		fmt.Printf("- %s\n", name)
	}
	return 0
}

// runWindowAction handles the commands whose only argument is a window id.
func runWindowAction(name, desc string, args []string, action func(*ipc.Client, uint32) error) int {
	fs, socket := controlFlagSet(name, name+" [--socket PATH] <id>", desc)
	client, code := parseControl(fs, socket, args, 1)
	if code >= 0 {
		return code
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := action(client, id); err != nil {
		return fail(err)
	}
	return 0
}

func runRaise(args []string) int {
	return runWindowAction("raise", "Raise a window to the top of its tier.", args, (*ipc.Client).Raise)
}

func runFocus(args []string) int {
	return runWindowAction("focus", "Give a window the keyboard focus.", args, (*ipc.Client).Focus)
}

func runZOrder(args []string) int {
	fs, socket := controlFlagSet("zorder", "zorder [--socket PATH] <id> <back|normal|front>", "Move a window to another stacking tier.")
	client, code := parseControl(fs, socket, args, 2)
	if code >= 0 {
		return code
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	z, err := compositor.ParseZOrder(fs.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := client.SetZOrder(id, z); err != nil {
		return fail(err)
	}
	return 0
}

func runMove(args []string) int {
	fs, socket := controlFlagSet("move", "move [--socket PATH] <id> <x> <y>", "Move a window to screen position x,y.")
	client, code := parseControl(fs, socket, args, 3)
	if code >= 0 {
		return code
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	pos, err := parseInts(fs.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := client.Move(id, pos[0], pos[1]); err != nil {
		return fail(err)
	}
	return 0
}

func runResize(args []string) int {
	fs, socket := controlFlagSet("resize", "resize [--socket PATH] <id> <w> <h>", "Resize a window. The client is told with a resize event.")
	client, code := parseControl(fs, socket, args, 3)
	if code >= 0 {
		return code
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	size, err := parseInts(fs.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if size[0] <= 0 || size[1] <= 0 {
		fmt.Fprintf(os.Stderr, "size must be positive, got %dx%d\n", size[0], size[1])
		return 2
	}
	if err := client.Resize(id, size[0], size[1]); err != nil {
		return fail(err)
	}
	return 0
}

func runClose(args []string) int {
	fs, socket := controlFlagSet("close", "close [--socket PATH] [--force] <id>",
		"Send a window a close event and end its session. Unclosable windows need --force.")
	force := fs.Bool("force", false, "Close even if the window is unclosable")
	client, code := parseControl(fs, socket, args, 1)
	if code >= 0 {
		return code
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := client.CloseWindow(id, *force); err != nil {
		return fail(err)
	}
	return 0
}

func runTile(args []string) int {
	fs, socket := controlFlagSet("tile", "tile [--socket PATH] [layout]",
		"Tile normal-tier windows with layout, or the active layout when omitted.")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "tile takes at most one layout")
		fs.Usage()
		return 2
	}
	client, err := newClient(*socket)
	if err != nil {
		return fail(err)
	}

	data, err := client.Tile(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("layout: %s\n", data.Layout)
	fmt.Printf("placed: %d\n", data.Placed)
	return 0
}

func runInject(args []string) int {
	fs, socket := controlFlagSet("inject", "inject [--socket PATH] [--window ID] [--code N] [--pressed] [--x X --y Y] <key|mouse|button|close>",
		"Queue a synthetic event. Without --window it is routed like device input.")
	window := fs.Uint("window", 0, "Target window id (0 routes by pointer position or focus)")
	codeFlag := fs.Uint("code", 0, "Keysym for key events, button number for button events")
	pressed := fs.Bool("pressed", false, "Key or button is down")
	x := fs.Int("x", 0, "Pointer x")
	y := fs.Int("y", 0, "Pointer y")
	client, code := parseControl(fs, socket, args, 1)
	if code >= 0 {
		return code
	}

	ev, err := parseEvent(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	ev.Code = uint32(*codeFlag)
	ev.Pressed = *pressed
	ev.X, ev.Y = *x, *y

	id, err := client.InjectEvent(uint32(*window), ev)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("delivered_to: %d\n", id)
	return 0
}

// parseEvent accepts the event types a user may synthesize; focus and
// resize belong to the window manager.
func parseEvent(s string) (compositor.Event, error) {
	t := compositor.EventType(strings.ToLower(s))
	switch t {
	case compositor.EventKey, compositor.EventMouse, compositor.EventButton, compositor.EventClose:
		return compositor.Event{Type: t}, nil
	default:
		return compositor.Event{}, fmt.Errorf("unsupported event type %q (want key, mouse, button or close)", s)
	}
}

func runSnapshot(args []string) int {
	fs, socket := controlFlagSet("snapshot", "snapshot [--socket PATH] [-o FILE] [--scale F]",
		"Write the composited screen as PNG. -o - writes to stdout.")
	out := fs.String("o", "starry.png", "Output file")
	scale := fs.Float64("scale", 1, "Scale factor")
	client, code := parseControl(fs, socket, args, 0)
	if code >= 0 {
		return code
	}
	if *scale <= 0 {
		fmt.Fprintf(os.Stderr, "scale must be positive, got %g\n", *scale)
		return 2
	}

	// A full-screen snapshot is one large response.
	client.SetTimeout(30 * time.Second)
	snap, err := client.Snapshot()
	if err != nil {
		return fail(err)
	}
	img, err := gfx.DecodeRGBA(snap.Width, snap.Height, snap.Pixels)
	if err != nil {
		return fail(err)
	}

	if *out == "-" {
		if err := gfx.WritePNG(os.Stdout, img, *scale); err != nil {
			return fail(err)
		}
		return 0
	}
	f, err := os.Create(*out)
	if err != nil {
		return fail(err)
	}
	if err := gfx.WritePNG(f, img, *scale); err != nil {
		f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}
	fmt.Printf("wrote %s (%dx%d, scale %g)\n", *out, snap.Width, snap.Height, *scale)
	return 0
}

func runRepaint(args []string) int {
	fs, socket := controlFlagSet("repaint", "repaint [--socket PATH]", "Damage the whole screen and flush it.")
	client, code := parseControl(fs, socket, args, 0)
	if code >= 0 {
		return code
	}
	if err := client.Repaint(); err != nil {
		return fail(err)
	}
	return 0
}

func runReload(args []string) int {
	fs, socket := controlFlagSet("reload", "reload [--socket PATH]",
		"Reload the server's config file. The device and socket are not changed.")
	client, code := parseControl(fs, socket, args, 0)
	if code >= 0 {
		return code
	}
	if err := client.Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config: reloaded")
	return 0
}
