package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/1broseidon/starry/internal/config"
	"github.com/1broseidon/starry/internal/hotkeys"
	"github.com/1broseidon/starry/internal/ipc"
	"github.com/1broseidon/starry/internal/platform"
	"github.com/1broseidon/starry/internal/runtimepath"
	"github.com/1broseidon/starry/internal/x11"
)

// RunOptions configures a server run.
type RunOptions struct {
	Config     *config.Config
	ConfigPath string
	// SocketPath overrides the config and environment.
	SocketPath string
	Logger     *slog.Logger
}

// NewLogger builds the server's text logger on stderr.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

// Run opens the device and serves until ctx is done, SIGINT or SIGTERM
// arrives, or the x11 output window is closed. SIGHUP reloads the config.
func Run(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dev, out, err := openDevice(cfg.Device)
	if err != nil {
		return fmt.Errorf("failed to open %s device: %w", cfg.Device.Backend, err)
	}
	defer dev.Close()

	comp, err := NewCompositor(Options{
		Config:     cfg,
		ConfigPath: opts.ConfigPath,
		Device:     dev,
		Backend:    cfg.Device.Backend,
		Logger:     logger.With("component", "compositor"),
	})
	if err != nil {
		return err
	}

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.SocketPath
	}
	socketPath, err = runtimepath.ResolveSocketPath(socketPath)
	if err != nil {
		return err
	}
	server, err := ipc.NewServer(comp, ipc.ServerOptions{
		SocketPath: socketPath,
		Session: ipc.SessionOptions{
			InboxCapacity:   cfg.Compositor.InboxCapacity,
			OutboxCapacity:  cfg.Compositor.OutboxCapacity,
			WriteTimeout:    cfg.WriteTimeout(),
			MaxMessageBytes: cfg.Compositor.MaxMessageBytes,
		},
		Logger: logger.With("component", "ipc"),
	})
	if err != nil {
		return err
	}
	// Bind before the supervisor starts so a busy socket fails the run.
	if err := server.Start(); err != nil {
		return err
	}

	sup := suture.New("starry", suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warn("supervisor event", "event", e.String())
		},
		Timeout: 5 * time.Second,
	})
	sup.Add(comp)
	sup.Add(server)

	if out != nil {
		handler := hotkeys.NewHandler(out.XUtil(), out.Window(), comp.Actions())
		if err := handler.Register(cfg.Hotkeys); err != nil {
			logger.Warn("failed to register hotkeys", "error", err)
		}
		sup.Add(x11.NewPump(out, x11.PumpOptions{
			Input:   comp.Input,
			Filter:  handler.Matches,
			OnClose: cancel,
			Logger:  logger.With("component", "x11"),
		}))
	}

	go reloadOnHangup(ctx, comp.Actions(), logger)

	logger.Info("starry server running", "socket", socketPath, "backend", cfg.Device.Backend)
	err = sup.Serve(ctx)
	select {
	case <-comp.Done():
	case <-time.After(5 * time.Second):
		logger.Warn("compositor did not stop in time")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func reloadOnHangup(ctx context.Context, actions Actions, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("received SIGHUP, reloading config")
			if err := actions.Reload(); err != nil {
				logger.Warn("config reload failed", "error", err)
			}
		}
	}
}

// openDevice returns the configured device and, for the x11 backend, the
// output whose event loop must also run.
func openDevice(dc config.DeviceConfig) (platform.Device, *x11.Output, error) {
	if dc.Backend == config.BackendX11 {
		out, err := x11.OpenOutput(x11.OutputOptions{
			Display: dc.Display,
			Width:   dc.Width,
			Height:  dc.Height,
			Title:   "starry",
		})
		if err != nil {
			return nil, nil, err
		}
		return out, out, nil
	}

	dev, err := platform.Open(platform.Options{
		Backend: dc.Backend,
		Path:    dc.Path,
		Width:   dc.Width,
		Height:  dc.Height,
	})
	if err != nil {
		return nil, nil, err
	}
	return dev, nil, nil
}
