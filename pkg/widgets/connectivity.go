package widgets

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/app"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/components"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
)

// ConnectivityWidget shows the current connectivity state and the last
// Wi-Fi notification.
type ConnectivityWidget struct {
	obs       *netstate.Observation
	updatedAt time.Time
	note      *app.NotificationEvent
	alerts    int
	// nowFunc allows tests to override time.Now for deterministic output.
	nowFunc func() time.Time
}

// NewConnectivityWidget creates a widget in the checking state.
func NewConnectivityWidget() *ConnectivityWidget {
	return &ConnectivityWidget{nowFunc: time.Now}
}

// ID returns the unique identifier for this widget.
func (w *ConnectivityWidget) ID() string { return "connectivity" }

// Title returns the human-readable display name.
func (w *ConnectivityWidget) Title() string { return "Network" }

// MinSize returns the minimum width and height this widget requires.
func (w *ConnectivityWidget) MinSize() (int, int) { return 30, 5 }

// Update stores observations and notification results.
func (w *ConnectivityWidget) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case app.ObservationEvent:
		obs := msg.Observation
		w.obs = &obs
		w.updatedAt = obs.At
		if w.updatedAt.IsZero() {
			w.updatedAt = w.nowFunc()
		}
	case app.NotificationEvent:
		note := msg
		w.note = &note
		w.alerts++
	}
	return nil
}

// View renders the panel into width x height cells.
func (w *ConnectivityWidget) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	status := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(StatusColor(w.obs))).
		Render(StatusText(w.obs))

	lines := []string{status, ""}
	if w.obs != nil {
		lines = append(lines, w.row("Interface", orDash(w.obs.Interface)))
		if w.obs.Tunnel != "" {
			lines = append(lines, w.row("Tunnel", w.obs.Tunnel))
		}
		lines = append(lines, w.row("Updated", w.relativeTime(w.updatedAt)))
	}
	lines = append(lines, w.row("Last alert", w.alertText()))

	box := components.RenderBox(strings.Join(lines, "\n"), width, height, components.BoxStyle{
		Title:       w.Title(),
		TitleColor:  lipgloss.Color(ColorAccent),
		BorderColor: lipgloss.Color(ColorBorder),
	})
	if box == "" {
		return components.FitLine(StatusText(w.obs), width)
	}
	return box
}

func (w *ConnectivityWidget) row(label, value string) string {
	key := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)).Render(fmt.Sprintf("%-11s", label))
	return key + value
}

func (w *ConnectivityWidget) alertText() string {
	if w.note == nil {
		return "none"
	}
	s := fmt.Sprintf("%s (%s)", w.note.Notification.Title, w.relativeTime(w.note.At))
	if w.note.Err != nil {
		s += " failed: " + w.note.Err.Error()
	}
	return s
}

// relativeTime formats t relative to now.
func (w *ConnectivityWidget) relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := w.nowFunc().Sub(t)
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Format("Jan 02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
