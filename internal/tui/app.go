package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/starry/internal/compositor"
	"github.com/1broseidon/starry/internal/ipc"
)

// windowItem is a list row for one server window.
type windowItem struct {
	info ipc.WindowInfo
}

func (i windowItem) Title() string {
	marker := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("·")
	if i.info.Focused {
		marker = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
	}
	title := i.info.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s %d %s", marker, i.info.ID, title)
}

func (i windowItem) Description() string {
	return fmt.Sprintf("%dx%d at %d,%d  %s", i.info.W, i.info.H, i.info.X, i.info.Y, i.info.ZOrder)
}

func (i windowItem) FilterValue() string { return i.info.Title }

// refreshMsg carries a fresh read of the server state.
type refreshMsg struct {
	status  *ipc.StatusData
	windows []ipc.WindowInfo
	err     error
}

type tickMsg time.Time

// actionMsg reports the result of a control request.
type actionMsg struct {
	what string
	err  error
}

// model is the root bubbletea model.
type model struct {
	control  Control
	interval time.Duration

	list      list.Model
	status    *ipc.StatusData
	connected bool
	lastErr   string
	notice    string

	width  int
	height int
}

func newModel(control Control, interval time.Duration) model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Windows (top first)"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	return model{control: control, interval: interval, list: l}
}

func (m model) refresh() tea.Cmd {
	control := m.control
	return func() tea.Msg {
		status, err := control.Status()
		if err != nil {
			return refreshMsg{err: err}
		}
		windows, err := control.ListWindows()
		return refreshMsg{status: status, windows: windows, err: err}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) act(what string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{what: what, err: fn()}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m model) selected() (ipc.WindowInfo, bool) {
	item, ok := m.list.SelectedItem().(windowItem)
	return item.info, ok
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width*2/5, m.contentHeight())
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case refreshMsg:
		if msg.err != nil {
			m.connected = false
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.connected = true
		m.lastErr = ""
		m.status = msg.status
		m.list.SetItems(windowItems(msg.windows))
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.lastErr = msg.what + " failed: " + msg.err.Error()
			m.notice = ""
		} else {
			m.lastErr = ""
			m.notice = "done: " + msg.what
		}
		return m, m.refresh()

	case tea.KeyMsg:
		if cmd, ok := m.handleKey(msg.String()); ok {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) handleKey(key string) (tea.Cmd, bool) {
	switch key {
	case "ctrl+c", "q":
		return tea.Quit, true
	case "t":
		return m.act("tile", func() error {
			_, err := m.control.Tile("")
			return err
		}), true
	case "R":
		return m.act("reload config", m.control.Reload), true
	}

	w, ok := m.selected()
	if !ok {
		return nil, false
	}
	switch key {
	case "enter", "f":
		return m.act(fmt.Sprintf("focus %d", w.ID), func() error { return m.control.Focus(w.ID) }), true
	case "r":
		return m.act(fmt.Sprintf("raise %d", w.ID), func() error { return m.control.Raise(w.ID) }), true
	case "b", "n", "F":
		z := map[string]compositor.ZOrder{"b": compositor.ZBack, "n": compositor.ZNormal, "F": compositor.ZFront}[key]
		return m.act(fmt.Sprintf("move %d to %s", w.ID, z), func() error { return m.control.SetZOrder(w.ID, z) }), true
	case "x", "X":
		force := key == "X"
		return m.act(fmt.Sprintf("close %d", w.ID), func() error { return m.control.CloseWindow(w.ID, force) }), true
	}
	return nil, false
}

// windowItems lists the topmost window first.
func windowItems(windows []ipc.WindowInfo) []list.Item {
	items := make([]list.Item, 0, len(windows))
	for i := len(windows) - 1; i >= 0; i-- {
		items = append(items, windowItem{info: windows[i]})
	}
	return items
}

func (m model) contentHeight() int {
	// status bar and help bar
	return max(1, m.height-2)
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.status, m.width)
	helpBar := renderHelpBar(m.lastErr, m.notice, m.width)

	leftWidth := m.width * 2 / 5
	if leftWidth < 20 {
		leftWidth = 20
	}
	rightWidth := max(10, m.width-leftWidth)
	height := m.contentHeight()

	left := lipgloss.NewStyle().Width(leftWidth).Height(height).Render(m.list.View())
	var right string
	if w, ok := m.selected(); ok {
		right = renderWindowDetail(w, rightWidth, height)
	} else {
		right = lipgloss.NewStyle().
			Width(rightWidth).
			Height(height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No windows")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		helpBar,
	)
}

func renderWindowDetail(w ipc.WindowInfo, width, height int) string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	var flags []string
	if w.Flags.Borderless {
		flags = append(flags, "borderless")
	}
	if w.Flags.Resizable {
		flags = append(flags, "resizable")
	}
	if w.Flags.Transparent {
		flags = append(flags, "transparent")
	}
	if w.Flags.Unclosable {
		flags = append(flags, "unclosable")
	}
	if len(flags) == 0 {
		flags = []string{"none"}
	}

	rows := []struct{ k, v string }{
		{"id", fmt.Sprint(w.ID)},
		{"title", w.Title},
		{"position", fmt.Sprintf("%d,%d", w.X, w.Y)},
		{"size", fmt.Sprintf("%dx%d", w.W, w.H)},
		{"tier", w.ZOrder.String()},
		{"scale", fmt.Sprint(w.Scale)},
		{"flags", strings.Join(flags, ", ")},
		{"focused", fmt.Sprint(w.Focused)},
		{"events", fmt.Sprintf("%d queued", w.PendingEvents)},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(label.Render(r.k) + r.v + "\n")
	}
	return lipgloss.NewStyle().Width(width).Height(height).Padding(1, 2).Render(b.String())
}

func renderStatusBar(connected bool, status *ipc.StatusData, width int) string {
	var text string
	if connected && status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " server connected",
			fmt.Sprintf("%s %dx%d", status.Backend, status.Width, status.Height),
			fmt.Sprintf("windows:%d", status.Windows),
		}
		if status.ActiveLayout != "" {
			parts = append(parts, "layout:"+status.ActiveLayout)
		}
		parts = append(parts, fmt.Sprintf("frames:%d", status.Frames))
		text = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " server not running"
	}

	return lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1).
		Render(text)
}

func renderHelpBar(lastErr, notice string, width int) string {
	style := lipgloss.NewStyle().Width(width).Padding(0, 1)
	switch {
	case lastErr != "":
		return style.Foreground(lipgloss.Color("196")).Render(lastErr)
	case notice != "":
		return style.Foreground(lipgloss.Color("42")).Render(notice)
	}
	help := "enter/f: focus  r: raise  b/n/F: back/normal/front  x/X: close/force  t: tile  R: reload  q: quit"
	return style.Foreground(lipgloss.Color("241")).Render(help)
}
