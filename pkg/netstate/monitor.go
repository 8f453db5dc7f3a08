package netstate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultInterval is the fallback poll interval.
const DefaultInterval = 2 * time.Second

var (
	// ErrClosed is returned by Subscribe after the monitor has been closed.
	ErrClosed = errors.New("netstate: monitor closed")

	// ErrNoLinkEvents means the platform offers no kernel link-change feed.
	ErrNoLinkEvents = errors.New("netstate: link events not supported on this platform")
)

// linkWatcher delivers a wakeup whenever the kernel reports a link, address,
// or route change.
type linkWatcher interface {
	Events() <-chan struct{}
	Close() error
}

// MonitorConfig controls the Monitor.
type MonitorConfig struct {
	// Interval is the poll period. Zero uses DefaultInterval.
	Interval time.Duration

	// LinkEvents enables kernel change notifications where supported, so
	// transitions are seen before the next poll.
	LinkEvents bool
}

// DefaultMonitorConfig returns a MonitorConfig with sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   DefaultInterval,
		LinkEvents: true,
	}
}

// Monitor is the production Source. It probes in a single background
// goroutine that exists only while at least one subscription is live, and
// pushes an observation to subscribers whenever it differs from the last one
// pushed. The first probe after the goroutine starts is always pushed.
type Monitor struct {
	probe      Probe
	cfg        MonitorConfig
	logger     *slog.Logger
	newWatcher func() (linkWatcher, error)

	wake chan struct{}

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	last   *Observation
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the logger for probe failures.
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// withLinkWatcher replaces the platform link watcher factory. Tests only.
func withLinkWatcher(fn func() (linkWatcher, error)) MonitorOption {
	return func(m *Monitor) { m.newWatcher = fn }
}

// NewMonitor creates a Monitor around probe. Zero-value fields in cfg are
// replaced with defaults.
func NewMonitor(probe Probe, cfg MonitorConfig, opts ...MonitorOption) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	m := &Monitor{
		probe:      probe,
		cfg:        cfg,
		logger:     slog.Default(),
		newWatcher: newLinkWatcher,
		wake:       make(chan struct{}, 1),
		subs:       make(map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// subscription wraps one callback. Its mutex serialises delivery against
// Unsubscribe so no callback runs after Unsubscribe returns.
type subscription struct {
	mu     sync.Mutex
	fn     func(Observation)
	active bool
}

func (s *subscription) deliver(obs Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.fn(obs)
	}
}

func (s *subscription) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Current probes once. It does not affect what subscribers are sent.
func (m *Monitor) Current(ctx context.Context) (Observation, error) {
	return m.probe.Probe(ctx)
}

// Subscribe registers fn and starts the probe loop if it is not running.
// The returned Unsubscribe must not be called from inside fn.
func (m *Monitor) Subscribe(fn func(Observation)) (Unsubscribe, error) {
	if fn == nil {
		return nil, errors.New("netstate: nil subscriber")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	m.nextID++
	id := m.nextID
	sub := &subscription{fn: fn, active: true}
	m.subs[id] = sub

	if m.cancel == nil {
		m.startLocked()
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(id, sub) })
	}, nil
}

// Wake asks the probe loop to run immediately. It is a no-op when no
// subscription is live.
func (m *Monitor) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close stops the probe loop and drops every subscription.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := m.subs
	m.subs = make(map[uint64]*subscription)
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	for _, s := range subs {
		s.deactivate()
	}
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (m *Monitor) unsubscribe(id uint64, sub *subscription) {
	sub.deactivate()

	m.mu.Lock()
	delete(m.subs, id)
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	if len(m.subs) == 0 && m.cancel != nil {
		cancel, done = m.cancel, m.done
		m.cancel, m.done = nil, nil
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// startLocked launches the probe loop. Caller must hold m.mu.
func (m *Monitor) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	m.last = nil

	var lw linkWatcher
	if m.cfg.LinkEvents && m.newWatcher != nil {
		w, err := m.newWatcher()
		switch {
		case errors.Is(err, ErrNoLinkEvents):
			m.logger.Debug("link events unavailable, polling only")
		case err != nil:
			m.logger.Warn("link watcher failed, polling only", "error", err)
		default:
			lw = w
		}
	}

	go m.run(ctx, lw, done)
}

func (m *Monitor) run(ctx context.Context, lw linkWatcher, done chan struct{}) {
	defer close(done)

	var events <-chan struct{}
	if lw != nil {
		defer lw.Close()
		events = lw.Events()
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-events:
			m.logger.Debug("link event, probing")
		case <-m.wake:
		}
		m.poll(ctx)
	}
}

// poll probes once and fans the result out if it changed.
func (m *Monitor) poll(ctx context.Context) {
	obs, err := m.probe.Probe(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("network probe failed", "error", err)
		}
		return
	}

	m.mu.Lock()
	if ctx.Err() != nil || (m.last != nil && m.last.Equal(obs)) {
		m.mu.Unlock()
		return
	}
	m.last = &obs
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]*subscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, m.subs[id])
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.deliver(obs)
	}
}
