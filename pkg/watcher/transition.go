package watcher

import (
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
)

// WifiState is the watcher's memory of whether the previous observation was
// on Wi-Fi. The zero value means nothing has been observed yet.
type WifiState int

const (
	StateUnknown WifiState = iota
	StateWifi
	StateNotWifi
)

// String returns "unknown", "wifi" or "not-wifi".
func (s WifiState) String() string {
	switch s {
	case StateWifi:
		return "wifi"
	case StateNotWifi:
		return "not-wifi"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s WifiState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Notifications fired on a transition.
var (
	WifiConnected = notify.Notification{
		Title: "Wi-Fi Connected",
		Body:  "You are now connected to Wi-Fi.",
	}
	WifiDisconnected = notify.Notification{
		Title: "Wi-Fi Disconnected",
		Body:  "You are no longer connected to Wi-Fi.",
	}
)

// StateOf derives the Wi-Fi flag from an observation. Anything that is not
// a Wi-Fi connection, including "no connection", counts as not Wi-Fi.
func StateOf(obs netstate.Observation) WifiState {
	if obs.IsWifi() {
		return StateWifi
	}
	return StateNotWifi
}

// Decide returns the next flag and, when the flag flips from a known value,
// the notification to fire. The first observation never notifies.
func Decide(prev WifiState, obs netstate.Observation) (WifiState, *notify.Notification) {
	next := StateOf(obs)
	if prev == StateUnknown || prev == next {
		return next, nil
	}

	n := WifiDisconnected
	if next == StateWifi {
		n = WifiConnected
	}
	return next, &n
}
