//go:build darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
)

// AppleScriptSink shows notifications with osascript. macOS attributes them
// to Script Editor, which has its own permission the user manages in System
// Settings; a missing osascript binary is the only thing we can detect.
type AppleScriptSink struct {
	appName string
	command string
}

func newDesktopSink(opts SinkOptions) (Sink, error) {
	return &AppleScriptSink{appName: opts.AppName, command: "osascript"}, nil
}

// Name implements Sink.
func (s *AppleScriptSink) Name() string { return "desktop" }

// PermissionStatus implements Sink.
func (s *AppleScriptSink) PermissionStatus(context.Context) (Permission, error) {
	if _, err := exec.LookPath(s.command); err != nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// RequestPermission implements Sink.
func (s *AppleScriptSink) RequestPermission(ctx context.Context) (Permission, error) {
	return s.PermissionStatus(ctx)
}

// Schedule implements Sink.
func (s *AppleScriptSink) Schedule(ctx context.Context, n Notification) error {
	script := fmt.Sprintf("display notification %s with title %s subtitle %s",
		appleScriptString(n.Body), appleScriptString(n.Title), appleScriptString(s.appName))
	if out, err := exec.CommandContext(ctx, s.command, "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, out)
	}
	return nil
}
