// Package watcher turns a stream of network observations into Wi-Fi
// transition notifications. A Watcher owns the previous Wi-Fi flag, decides
// when the flag flips, hands the matching notification to a Notifier, and
// publishes every observation for display.
//
// The watcher assumes its source delivers observations one at a time and in
// order. It does not depend on that for safety: every observation, whether
// pushed by the source or pulled by Refresh, goes through one mutex, so
// decisions and publications are strictly serialised.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("watcher: already started")

	// ErrNotStarted is returned by Refresh before Start.
	ErrNotStarted = errors.New("watcher: not started")

	// ErrStopped is returned by Start and Refresh after Stop.
	ErrStopped = errors.New("watcher: stopped")
)

// Notifier fires a notification without waiting for delivery.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Notify(n notify.Notification) bool
}

// Update is what the watcher publishes for every observation.
type Update struct {
	Observation netstate.Observation

	// Notification is set when this observation caused one.
	Notification *notify.Notification

	// Initial marks the observation from the startup query.
	Initial bool
}

// Note records a fired notification.
type Note struct {
	notify.Notification
	At time.Time `json:"at"`
}

// Status is a point-in-time copy of the watcher's state.
type Status struct {
	Running          bool                  `json:"running"`
	Wifi             WifiState             `json:"wifi"`
	Observation      *netstate.Observation `json:"observation,omitempty"`
	Transitions      int64                 `json:"transitions"`
	LastNotification *Note                 `json:"last_notification,omitempty"`
}

// Watcher is the connectivity transition watcher.
type Watcher struct {
	source   netstate.Source
	notifier Notifier
	publish  func(Update)
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       WifiState
	last        *netstate.Observation
	transitions int64
	lastNote    *Note
	unsub       netstate.Unsubscribe
	started     bool
	stopped     bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPublisher sets the function that receives every Update. It is called
// with the watcher's lock held and must not call back into the Watcher.
func WithPublisher(fn func(Update)) Option {
	return func(w *Watcher) { w.publish = fn }
}

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// withClock overrides time.Now. Tests only.
func withClock(fn func() time.Time) Option {
	return func(w *Watcher) { w.now = fn }
}

// New creates a watcher. The previous Wi-Fi flag starts unknown.
func New(source netstate.Source, notifier Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		source:   source,
		notifier: notifier,
		publish:  func(Update) {},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start queries the current state once, records it without notifying, and
// subscribes to changes. A failed initial query is logged and the flag
// stays unknown; the first pushed observation then seeds it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.stopped:
		w.mu.Unlock()
		return ErrStopped
	case w.started:
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	obs, err := w.source.Current(ctx)
	if err != nil {
		w.logger.Warn("initial network query failed", "error", err)
	} else {
		w.seed(obs)
	}

	unsub, err := w.source.Subscribe(w.handle)
	if err != nil {
		return fmt.Errorf("subscribe to network changes: %w", err)
	}

	w.mu.Lock()
	if w.stopped {
		// Stop ran while we were subscribing.
		w.mu.Unlock()
		unsub()
		return ErrStopped
	}
	w.unsub = unsub
	w.mu.Unlock()

	w.logger.Debug("watcher started")
	return nil
}

// Stop releases the subscription. Only the first call has any effect; no
// observation is processed once Stop has begun.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	unsub := w.unsub
	w.unsub = nil
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	w.logger.Debug("watcher stopped")
}

// Refresh queries the source and feeds the result through the normal
// transition path.
func (w *Watcher) Refresh(ctx context.Context) error {
	w.mu.Lock()
	started, stopped := w.started, w.stopped
	w.mu.Unlock()
	switch {
	case stopped:
		return ErrStopped
	case !started:
		return ErrNotStarted
	}

	obs, err := w.source.Current(ctx)
	if err != nil {
		return fmt.Errorf("query network state: %w", err)
	}
	w.handle(obs)
	return nil
}

// Snapshot returns a copy of the watcher's state.
func (w *Watcher) Snapshot() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := Status{
		Running:     w.started && !w.stopped,
		Wifi:        w.state,
		Transitions: w.transitions,
	}
	if w.last != nil {
		obs := *w.last
		st.Observation = &obs
	}
	if w.lastNote != nil {
		note := *w.lastNote
		st.LastNotification = &note
	}
	return st
}

// seed records the startup observation. It never notifies. If a pushed
// observation (or a Refresh racing Start) already set the flag, the startup
// query result is older than what subscribers have seen, so it is dropped
// without being published and the newer state stands.
func (w *Watcher) seed(obs netstate.Observation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || w.state != StateUnknown {
		return
	}
	w.state = StateOf(obs)
	w.last = &obs
	w.logger.Info("network state", "observation", obs.String(), "wifi", w.state)
	w.publish(Update{Observation: obs, Initial: true})
}

// handle is the subscription callback.
func (w *Watcher) handle(obs netstate.Observation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	prev := w.state
	next, note := Decide(prev, obs)
	w.state = next
	w.last = &obs

	if note != nil {
		w.transitions++
		w.lastNote = &Note{Notification: *note, At: w.now()}
		w.logger.Info("wi-fi transition", "from", prev, "to", next, "notification", note.Title)
		if w.notifier != nil && !w.notifier.Notify(*note) {
			w.logger.Warn("notification not queued", "title", note.Title)
		}
	} else {
		w.logger.Debug("network state", "observation", obs.String(), "wifi", next)
	}

	w.publish(Update{Observation: obs, Notification: note})
}
