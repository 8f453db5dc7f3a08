package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Widget is a self-contained panel the model renders below its header.
type Widget interface {
	// ID returns a stable identifier.
	ID() string

	// Title returns the display name.
	Title() string

	// Update handles events routed to the widget.
	Update(msg tea.Msg) tea.Cmd

	// View renders the widget into exactly width x height cells.
	View(width, height int) string

	// MinSize returns the smallest usable width and height.
	MinSize() (minW, minH int)
}

// Config controls the model.
type Config struct {
	// Title is shown in the header.
	Title string

	// TickInterval is how often relative timestamps are refreshed.
	TickInterval time.Duration

	// RefreshTimeout bounds a user-requested refresh.
	RefreshTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Title:          "wifi-pulse",
		TickInterval:   time.Second,
		RefreshTimeout: 5 * time.Second,
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	tooSmall    = "Terminal too small"
)

// Model is the root bubbletea model.
type Model struct {
	cfg     Config
	widget  Widget
	refresh RefreshFunc

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	checking   bool
	refreshing bool
	lastErr    error
}

// NewModel creates the root model around widget. refresh may be nil, in
// which case the refresh key does nothing.
func NewModel(cfg Config, widget Widget, refresh RefreshFunc) Model {
	def := DefaultConfig()
	if cfg.Title == "" {
		cfg.Title = def.Title
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = def.RefreshTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))

	return Model{
		cfg:      cfg,
		widget:   widget,
		refresh:  refresh,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		checking: true,
	}
}

// Init starts the spinner and the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, TickCmd(m.cfg.TickInterval))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			if m.refresh == nil || m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, tea.Batch(m.spinner.Tick, RefreshCmd(m.refresh, m.cfg.RefreshTimeout))
		}
		return m, nil

	case ObservationEvent:
		m.checking = false
		return m, m.forward(msg)

	case NotificationEvent:
		return m, m.forward(msg)

	case RefreshDoneEvent:
		m.refreshing = false
		m.lastErr = msg.Err
		return m, nil

	case TickEvent:
		return m, tea.Batch(m.forward(msg), TickCmd(m.cfg.TickInterval))

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	minW, minH := 0, 0
	if m.widget != nil {
		minW, minH = m.widget.MinSize()
	}
	if m.width < minW || m.height < minH+2 {
		return tooSmall
	}

	header := headerStyle.Render(m.cfg.Title)
	if m.busy() {
		header += " " + m.spinner.View()
	}
	if m.lastErr != nil {
		header += "  " + errorStyle.Render("refresh failed: "+m.lastErr.Error())
	}

	footer := m.help.View(m.keys)
	bodyHeight := m.height - 1 - lipgloss.Height(footer)

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	if m.widget != nil && bodyHeight > 0 {
		b.WriteString(m.widget.View(m.width, bodyHeight))
		b.WriteByte('\n')
	}
	b.WriteString(footer)
	return b.String()
}

// Checking reports whether no observation has arrived yet.
func (m Model) Checking() bool { return m.checking }

// Refreshing reports whether a refresh is in flight.
func (m Model) Refreshing() bool { return m.refreshing }

// Width returns the current terminal width.
func (m Model) Width() int { return m.width }

// Height returns the current terminal height.
func (m Model) Height() int { return m.height }

func (m Model) busy() bool { return m.checking || m.refreshing }

func (m Model) forward(msg tea.Msg) tea.Cmd {
	if m.widget == nil {
		return nil
	}
	return m.widget.Update(msg)
}
