package netstate

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockSource implements Source for testing. Observations are pushed by the
// test through Emit, which delivers synchronously on the caller's goroutine.
type MockSource struct {
	mu      sync.Mutex
	current Observation
	err     error
	subErr  error
	subs    map[int]func(Observation)
	nextID  int

	currentCalls atomic.Int64
	unsubCalls   atomic.Int64
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithCurrent sets the observation returned by Current.
func WithCurrent(obs Observation) MockSourceOption {
	return func(m *MockSource) { m.current = obs }
}

// WithCurrentError sets the error returned by Current.
func WithCurrentError(err error) MockSourceOption {
	return func(m *MockSource) { m.err = err }
}

// WithSubscribeError makes Subscribe fail.
func WithSubscribeError(err error) MockSourceOption {
	return func(m *MockSource) { m.subErr = err }
}

// NewMockSource creates a mock source with the given options.
func NewMockSource(opts ...MockSourceOption) *MockSource {
	m := &MockSource{subs: make(map[int]func(Observation))}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the configured observation and error.
func (m *MockSource) Current(ctx context.Context) (Observation, error) {
	m.currentCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.err
}

// SetCurrent updates the observation returned by Current (thread-safe).
func (m *MockSource) SetCurrent(obs Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = obs
}

// Subscribe records fn. The disposer removes it and counts the call.
func (m *MockSource) Subscribe(fn func(Observation)) (Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subErr != nil {
		return nil, m.subErr
	}
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	return func() {
		m.unsubCalls.Add(1)
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}, nil
}

// Emit delivers obs to every live subscriber.
func (m *MockSource) Emit(obs Observation) {
	m.mu.Lock()
	fns := make([]func(Observation), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(obs)
	}
}

// Subscribers returns the number of live subscriptions.
func (m *MockSource) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// CurrentCalls returns how many times Current has been called.
func (m *MockSource) CurrentCalls() int64 {
	return m.currentCalls.Load()
}

// UnsubscribeCalls returns how many times a disposer has been invoked.
func (m *MockSource) UnsubscribeCalls() int64 {
	return m.unsubCalls.Load()
}

// StubProbe is a Probe that returns whatever the test last set.
type StubProbe struct {
	mu    sync.Mutex
	obs   Observation
	err   error
	calls atomic.Int64
}

// Set replaces the observation and error returned by Probe.
func (p *StubProbe) Set(obs Observation, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obs, p.err = obs, err
}

// Probe returns the configured observation.
func (p *StubProbe) Probe(ctx context.Context) (Observation, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.obs, p.err
}

// Calls returns how many times Probe has been called.
func (p *StubProbe) Calls() int64 {
	return p.calls.Load()
}
