// Package tui is an interactive window inspector for a running starry
// server.
package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/ipc"
)

// Control is the part of the control protocol the inspector drives.
// *ipc.Client implements it.
type Control interface {
	Status() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowInfo, error)
	Raise(id uint32) error
	Focus(id uint32) error
	SetZOrder(id uint32, z compositor.ZOrder) error
	CloseWindow(id uint32, force bool) error
	Tile(layout string) (*ipc.TileData, error)
	Reload() error
}

// RefreshInterval is how often the window list is re-read.
const RefreshInterval = time.Second

// Run starts the inspector on the terminal, blocking until the user quits.
func Run(control Control) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(control, RefreshInterval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
