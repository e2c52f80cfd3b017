package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/daemon"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/runtimepath"
	"github.com/1broseidon/starry/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "server":
		os.Exit(runServer(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "layouts":
		os.Exit(runLayouts(os.Args[2:]))
	case "raise":
		os.Exit(runRaise(os.Args[2:]))
	case "focus":
		os.Exit(runFocus(os.Args[2:]))
	case "zorder":
		os.Exit(runZOrder(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "resize":
		os.Exit(runResize(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "tile":
		os.Exit(runTile(os.Args[2:]))
	case "inject":
		os.Exit(runInject(os.Args[2:]))
	case "snapshot":
		os.Exit(runSnapshot(os.Args[2:]))
	case "repaint":
		os.Exit(runRepaint(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "demo":
		os.Exit(runDemo(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: starry <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  server              Start the compositor (foreground)")
	fmt.Fprintln(w, "  status              Show compositor status")
	fmt.Fprintln(w, "  list                List windows, bottom to top")
	fmt.Fprintln(w, "  layouts             List tiling layouts")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  raise <id>          Raise a window within its tier")
	fmt.Fprintln(w, "  focus <id>          Focus a window")
	fmt.Fprintln(w, "  zorder <id> <tier>  Move a window to the back, normal or front tier")
	fmt.Fprintln(w, "  move <id> <x> <y>   Move a window")
	fmt.Fprintln(w, "  resize <id> <w> <h> Resize a window")
	fmt.Fprintln(w, "  close <id>          Ask a window to close")
	fmt.Fprintln(w, "  tile [layout]       Tile normal windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  inject <type>       Queue a synthetic input event")
	fmt.Fprintln(w, "  snapshot            Write the screen to a PNG file")
	fmt.Fprintln(w, "  repaint             Force a full repaint")
	fmt.Fprintln(w, "  reload              Reload the server configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config path         Print the default configuration path")
	fmt.Fprintln(w, "  config init         Write a configuration interactively")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open the interactive window inspector")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "  demo                Open a demo client window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'starry <command> --help' for command-specific options.")
}

// loadConfig reads path, or the default location when path is empty, and
// returns the config together with the file it came from.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		def, err := config.DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = def
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	return res.Config, path, nil
}

func runServer(args []string) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: starry server [--config PATH] [--socket PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open the configured device and serve client windows until interrupted.")
		fmt.Fprintln(os.Stderr, "SIGHUP reloads the configuration file.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/starry/config.yaml)")
	socket := fs.String("socket", "", "Socket path (default: $STARRY_SOCKET or the runtime dir)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "server takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, path, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := daemon.NewLogger(cfg)
	logger.Info("configuration loaded", "path", path, "backend", cfg.Device.Backend, "layout", cfg.Tiling.DefaultLayout)

	err = daemon.Run(context.Background(), daemon.RunOptions{
		Config:     cfg,
		ConfigPath: path,
		SocketPath: *socket,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  starry config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  starry config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  starry config path")
		fmt.Fprintln(os.Stderr, "  starry config init [--path PATH] [--force]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/starry/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if *path == "" {
			def, err := config.DefaultConfigPath()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			*path = def
		}
		res, err := config.LoadFromPath(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if len(res.Files) == 0 {
			fmt.Printf("config: ok (no file at %s, using defaults)\n", *path)
			return 0
		}
		fmt.Println("config: ok")
		for _, f := range res.Files {
			fmt.Printf("- %s\n", f)
		}
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/starry/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			var err error
			cfg, _, err = loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "path":
		path, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(path)
		return 0

	case "init":
		fs := flag.NewFlagSet("init", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/starry/config.yaml)")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return runConfigInit(*path, *force)

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

// runConfigInit walks through the main settings and writes them to path.
func runConfigInit(path string, force bool) int {
	if path == "" {
		def, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		path = def
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", path)
		return 1
	}

	cfg, err := tui.RunSetup(config.DefaultConfig())
	if err != nil {
		if errors.Is(err, tui.ErrSetupAborted) {
			fmt.Fprintln(os.Stderr, "config: not written")
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cfg.Save(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("config: wrote %s\n", path)
	return 0
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "Socket path (default: $STARRY_SOCKET or the runtime dir)")

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: starry tui [--socket PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive window inspector for a running server.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Navigate windows")
		fmt.Fprintln(os.Stderr, "  Enter, f  Focus selected window")
		fmt.Fprintln(os.Stderr, "  r         Raise selected window")
		fmt.Fprintln(os.Stderr, "  b/n/F     Move to back, normal or front tier")
		fmt.Fprintln(os.Stderr, "  x/X       Close / force close")
		fmt.Fprintln(os.Stderr, "  t         Tile with the active layout")
		fmt.Fprintln(os.Stderr, "  R         Reload server config")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	client, err := newClient(*socket)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tui.Run(client); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// newClient builds a control client for an explicit socket, falling back
// to STARRY_SOCKET and the runtime default.
func newClient(socket string) (*ipc.Client, error) {
	path, err := runtimepath.ResolveSocketPath(socket)
	if err != nil {
		return nil, err
	}
	return ipc.NewClientWithSocket(path), nil
}
