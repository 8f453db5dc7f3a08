package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/components"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/widgets"
)

// Printer writes one line per observation or notification. It is safe for
// concurrent use.
type Printer struct {
	mu    sync.Mutex
	out   *termenv.Output
	width func() int
	now   func() time.Time
}

// PrinterOption configures a Printer.
type PrinterOption func(*printerConfig)

type printerConfig struct {
	termOpts []termenv.OutputOption
	width    func() int
	now      func() time.Time
}

// WithProfile forces a color profile instead of detecting one.
func WithProfile(p termenv.Profile) PrinterOption {
	return func(c *printerConfig) { c.termOpts = append(c.termOpts, termenv.WithProfile(p)) }
}

// WithWidth sets the function that reports the line width. Zero or less
// disables truncation.
func WithWidth(fn func() int) PrinterOption {
	return func(c *printerConfig) { c.width = fn }
}

// withNow overrides time.Now. Tests only.
func withNow(fn func() time.Time) PrinterOption {
	return func(c *printerConfig) { c.now = fn }
}

// NewPrinter creates a printer on w. The color profile is detected from w
// unless WithProfile is given.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	cfg := printerConfig{
		width: func() int { return 0 },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Printer{
		out:   termenv.NewOutput(w, cfg.termOpts...),
		width: cfg.width,
		now:   cfg.now,
	}
}

// Observation prints the status line for obs.
func (p *Printer) Observation(obs netstate.Observation) {
	status := p.out.String(widgets.StatusText(&obs)).
		Foreground(p.out.Color(widgets.StatusColor(&obs))).
		Bold()

	parts := []string{status.String()}
	if obs.Interface != "" {
		parts = append(parts, p.dim(obs.Interface))
	}
	if obs.Tunnel != "" {
		parts = append(parts, p.dim("via "+obs.Tunnel))
	}
	p.line(strings.Join(parts, "  "))
}

// Notification prints a transition notification.
func (p *Printer) Notification(n notify.Notification) {
	title := p.out.String(n.Title).Foreground(p.out.Color(widgets.ColorAccent)).Bold()
	p.line(fmt.Sprintf("%s %s", title, n.Body))
}

func (p *Printer) dim(s string) string {
	return p.out.String(s).Foreground(p.out.Color(widgets.ColorDim)).String()
}

func (p *Printer) line(s string) {
	s = p.now().Format("15:04:05") + "  " + s
	if w := p.width(); w > 0 {
		s = components.Truncate(s, w)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}
