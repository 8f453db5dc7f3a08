// Package app provides the bubbletea application that shows wifi-pulse's
// live connectivity state. It defines the event types fed in from the
// watcher, the widget interface, and the root model with its key bindings.
package app

import (
	"time"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
)

// ObservationEvent carries an observation published by the watcher into the
// bubbletea update loop.
type ObservationEvent struct {
	Observation netstate.Observation
	Initial     bool
}

// NotificationEvent reports a transition notification after the sink has
// handled it. Err is non-nil when delivery failed.
type NotificationEvent struct {
	Notification notify.Notification
	Err          error
	At           time.Time
}

// RefreshDoneEvent is sent when a user-requested refresh finishes.
type RefreshDoneEvent struct {
	Err error
	At  time.Time
}

// TickEvent is sent periodically so relative timestamps stay current.
type TickEvent struct {
	Time time.Time
}
