package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default dispatcher settings.
const (
	DefaultQueueSize = 16
	DefaultTimeout   = 5 * time.Second
)

// DispatcherConfig controls a Dispatcher.
type DispatcherConfig struct {
	// QueueSize bounds pending notifications. Zero uses DefaultQueueSize.
	QueueSize int

	// Timeout bounds a single Schedule call. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// DispatchStats counts dispatcher outcomes.
type DispatchStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher delivers notifications on a single background goroutine, in
// the order they were queued. Delivery failures are logged and counted,
// never returned to the caller.
type Dispatcher struct {
	sink     Sink
	timeout  time.Duration
	logger   *slog.Logger
	onResult func(Notification, error)

	queue chan Notification
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger for delivery failures.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithResultHook registers fn to be called after every delivery attempt,
// on the dispatcher goroutine.
func WithResultHook(fn func(Notification, error)) DispatcherOption {
	return func(d *Dispatcher) { d.onResult = fn }
}

// NewDispatcher starts a dispatcher in front of sink.
func NewDispatcher(sink Sink, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	d := &Dispatcher{
		sink:    sink,
		timeout: cfg.Timeout,
		logger:  slog.Default(),
		queue:   make(chan Notification, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.loop()
	return d
}

// Notify queues n without blocking. It returns false if the queue is full
// or the dispatcher is closed.
func (d *Dispatcher) Notify(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification queue full, dropping", "title", n.Title)
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to be
// attempted. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// Stats returns a snapshot of the delivery counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sink.Schedule(ctx, n)
		cancel()

		if err != nil {
			d.failed.Add(1)
			d.logger.Warn("notification delivery failed",
				"sink", d.sink.Name(), "title", n.Title, "error", err)
		} else {
			d.delivered.Add(1)
			d.logger.Debug("notification delivered", "sink", d.sink.Name(), "title", n.Title)
		}

		if d.onResult != nil {
			d.onResult(n, err)
		}
	}
}
