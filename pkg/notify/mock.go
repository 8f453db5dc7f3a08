package notify

import (
	"context"
	"sync"
)

// RecordingSink implements Sink for testing. It records every scheduled
// notification and returns configurable permissions and errors.
type RecordingSink struct {
	mu          sync.Mutex
	status      Permission
	requested   Permission
	statusErr   error
	requestErr  error
	scheduleErr error
	sent        []Notification
	requests    int

	// ScheduleFunc, if set, runs before the notification is recorded.
	// Tests use it to block or to observe the context.
	ScheduleFunc func(ctx context.Context, n Notification) error
}

// RecordingSinkOption configures a RecordingSink.
type RecordingSinkOption func(*RecordingSink)

// WithPermission sets the values returned by PermissionStatus and
// RequestPermission.
func WithPermission(status, requested Permission) RecordingSinkOption {
	return func(s *RecordingSink) {
		s.status = status
		s.requested = requested
	}
}

// WithPermissionErrors sets the errors returned by the permission calls.
func WithPermissionErrors(statusErr, requestErr error) RecordingSinkOption {
	return func(s *RecordingSink) {
		s.statusErr = statusErr
		s.requestErr = requestErr
	}
}

// WithScheduleError makes every Schedule call fail with err.
func WithScheduleError(err error) RecordingSinkOption {
	return func(s *RecordingSink) { s.scheduleErr = err }
}

// NewRecordingSink creates a sink that grants permission by default.
func NewRecordingSink(opts ...RecordingSinkOption) *RecordingSink {
	s := &RecordingSink{status: PermissionGranted, requested: PermissionGranted}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Sink.
func (s *RecordingSink) Name() string { return "recording" }

// PermissionStatus implements Sink.
func (s *RecordingSink) PermissionStatus(context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusErr
}

// RequestPermission implements Sink.
func (s *RecordingSink) RequestPermission(context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if s.requestErr == nil {
		s.status = s.requested
	}
	return s.requested, s.requestErr
}

// Schedule implements Sink.
func (s *RecordingSink) Schedule(ctx context.Context, n Notification) error {
	if s.ScheduleFunc != nil {
		if err := s.ScheduleFunc(ctx, n); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduleErr != nil {
		return s.scheduleErr
	}
	s.sent = append(s.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (s *RecordingSink) Sent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.sent))
	copy(out, s.sent)
	return out
}

// Requests returns how many times RequestPermission was called.
func (s *RecordingSink) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}
