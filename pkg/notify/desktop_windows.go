//go:build windows

package notify

import (
	"context"
	"fmt"

	"github.com/go-toast/toast"
)

// ToastSink shows Windows toast notifications. Windows has no per-app
// permission prompt for unpackaged programs, so permission is granted.
type ToastSink struct {
	appID string
}

func newDesktopSink(opts SinkOptions) (Sink, error) {
	return &ToastSink{appID: opts.AppName}, nil
}

// Name implements Sink.
func (s *ToastSink) Name() string { return "desktop" }

// PermissionStatus implements Sink.
func (s *ToastSink) PermissionStatus(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// RequestPermission implements Sink.
func (s *ToastSink) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// Schedule implements Sink.
func (s *ToastSink) Schedule(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := toast.Notification{
		AppID:   s.appID,
		Title:   n.Title,
		Message: n.Body,
	}
	if err := t.Push(); err != nil {
		return fmt.Errorf("push toast: %w", err)
	}
	return nil
}
