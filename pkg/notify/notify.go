// Package notify delivers local notifications. A Sink is the platform's
// notification service: it reports and requests permission and shows a
// notification immediately. Dispatcher wraps a Sink so callers can fire
// notifications without waiting on, or caring about, delivery.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Permission is the user's consent to show notifications.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

// String returns "undetermined", "granted" or "denied".
func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// Notification is the content of a single notification.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ErrUnsupported is returned when a sink cannot run on this platform.
var ErrUnsupported = errors.New("notify: sink not supported on this platform")

// Sink is a notification service.
type Sink interface {
	// Name identifies the sink in logs ("desktop", "log", "none").
	Name() string

	// PermissionStatus reports the current permission without prompting.
	PermissionStatus(ctx context.Context) (Permission, error)

	// RequestPermission asks for permission and returns the outcome.
	RequestPermission(ctx context.Context) (Permission, error)

	// Schedule shows n immediately.
	Schedule(ctx context.Context, n Notification) error
}

// EnsurePermission checks the sink's permission and requests it when it has
// not been granted. It returns the final permission.
func EnsurePermission(ctx context.Context, s Sink) (Permission, error) {
	p, err := s.PermissionStatus(ctx)
	if err != nil {
		return PermissionUndetermined, fmt.Errorf("%s: permission status: %w", s.Name(), err)
	}
	if p == PermissionGranted {
		return p, nil
	}
	p, err = s.RequestPermission(ctx)
	if err != nil {
		return PermissionUndetermined, fmt.Errorf("%s: request permission: %w", s.Name(), err)
	}
	return p, nil
}

// SinkOptions carries the settings shared by every sink.
type SinkOptions struct {
	// AppName is shown as the notification's origin where supported.
	AppName string

	// Logger receives the log sink's output.
	Logger *slog.Logger
}

// New returns the sink registered under name: "desktop", "log" or "none".
func New(name string, opts SinkOptions) (Sink, error) {
	if opts.AppName == "" {
		opts.AppName = "wifi-pulse"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch strings.ToLower(name) {
	case "desktop", "":
		return newDesktopSink(opts)
	case "log":
		return NewLogSink(opts.Logger), nil
	case "none", "off":
		return NopSink{}, nil
	default:
		return nil, fmt.Errorf("unknown notification sink %q (supported: desktop, log, none)", name)
	}
}

// LogSink writes notifications to a slog.Logger. Permission is always
// granted.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(l *slog.Logger) *LogSink {
	return &LogSink{logger: l}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// PermissionStatus implements Sink.
func (s *LogSink) PermissionStatus(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// RequestPermission implements Sink.
func (s *LogSink) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// Schedule implements Sink.
func (s *LogSink) Schedule(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification", "title", n.Title, "body", n.Body)
	return nil
}

// NopSink drops every notification. Permission is reported as denied so
// startup logs make the choice visible.
type NopSink struct{}

// Name implements Sink.
func (NopSink) Name() string { return "none" }

// PermissionStatus implements Sink.
func (NopSink) PermissionStatus(context.Context) (Permission, error) {
	return PermissionDenied, nil
}

// RequestPermission implements Sink.
func (NopSink) RequestPermission(context.Context) (Permission, error) {
	return PermissionDenied, nil
}

// Schedule implements Sink.
func (NopSink) Schedule(context.Context, Notification) error { return nil }
