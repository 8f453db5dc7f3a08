//go:build linux

package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Freedesktop notification service coordinates.
const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
	notificationIcon  = "network-wireless"
)

// busCaller is the slice of dbus.BusObject the sink uses.
type busCaller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBusSink shows notifications through org.freedesktop.Notifications on
// the session bus. Having a notification server on the bus counts as
// permission; requesting permission asks the bus to activate one.
type DBusSink struct {
	appName string
	timeout int32

	mu      sync.Mutex
	conn    *dbus.Conn
	connect func() (*dbus.Conn, error)

	// bus and server are set directly by tests.
	bus    busCaller
	server busCaller
}

func newDesktopSink(opts SinkOptions) (Sink, error) {
	return NewDBusSink(opts.AppName), nil
}

// NewDBusSink creates a sink that connects to the session bus on first use.
func NewDBusSink(appName string) *DBusSink {
	return &DBusSink{
		appName: appName,
		timeout: -1,
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Name implements Sink.
func (s *DBusSink) Name() string { return "desktop" }

// objects returns the bus daemon and notification server objects,
// connecting on first use.
func (s *DBusSink) objects() (busCaller, busCaller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus != nil && s.server != nil {
		return s.bus, s.server, nil
	}
	if s.conn == nil {
		conn, err := s.connect()
		if err != nil {
			return nil, nil, fmt.Errorf("connect session bus: %w", err)
		}
		s.conn = conn
	}
	s.bus = s.conn.BusObject()
	s.server = s.conn.Object(notificationsName, dbus.ObjectPath(notificationsPath))
	return s.bus, s.server, nil
}

// PermissionStatus implements Sink.
func (s *DBusSink) PermissionStatus(ctx context.Context) (Permission, error) {
	bus, _, err := s.objects()
	if err != nil {
		return PermissionUndetermined, err
	}

	var owned bool
	if err := bus.CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, notificationsName).Store(&owned); err != nil {
		return PermissionUndetermined, fmt.Errorf("NameHasOwner: %w", err)
	}
	if owned {
		return PermissionGranted, nil
	}
	return PermissionUndetermined, nil
}

// RequestPermission implements Sink.
func (s *DBusSink) RequestPermission(ctx context.Context) (Permission, error) {
	bus, _, err := s.objects()
	if err != nil {
		return PermissionUndetermined, err
	}

	var reply uint32
	if err := bus.CallWithContext(ctx, "org.freedesktop.DBus.StartServiceByName", 0, notificationsName, uint32(0)).Store(&reply); err != nil {
		// No activatable server: nothing will ever show our notifications.
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// Schedule implements Sink.
func (s *DBusSink) Schedule(ctx context.Context, n Notification) error {
	_, server, err := s.objects()
	if err != nil {
		return err
	}

	var id uint32
	call := server.CallWithContext(ctx, notificationsName+".Notify", 0,
		s.appName,
		uint32(0),
		notificationIcon,
		n.Title,
		n.Body,
		[]string{},
		map[string]dbus.Variant{},
		s.timeout,
	)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("Notify: %w", err)
	}
	return nil
}

// Close releases the bus connection.
func (s *DBusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn, s.bus, s.server = nil, nil, nil
	return err
}
