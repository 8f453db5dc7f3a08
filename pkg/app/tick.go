package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RefreshFunc re-queries the network state.
type RefreshFunc func(ctx context.Context) error

// TickCmd returns a Cmd that sends a TickEvent after d.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickEvent{Time: t}
	})
}

// RefreshCmd runs fn in the Cmd goroutine with the given timeout and reports
// the outcome as a RefreshDoneEvent. A nil fn completes immediately.
func RefreshCmd(fn RefreshFunc, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		if fn == nil {
			return RefreshDoneEvent{At: time.Now()}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := fn(ctx)
		return RefreshDoneEvent{Err: err, At: time.Now()}
	}
}
