// Package netstate reports the host's network connectivity. A Source answers
// one-shot queries and pushes observations to subscribers whenever the
// connectivity picture changes. The production Source is Monitor, which polls
// an InterfaceProbe and, on Linux, wakes early on netlink route events.
package netstate

import (
	"context"
	"fmt"
	"time"
)

// ConnectionType classifies the link the host is currently using.
type ConnectionType int

const (
	TypeUnknown ConnectionType = iota
	TypeNone
	TypeCellular
	TypeWifi
	TypeBluetooth
	TypeEthernet
	TypeWimax
	TypeVPN
	TypeOther
)

var connectionTypeNames = [...]string{
	TypeUnknown:   "UNKNOWN",
	TypeNone:      "NONE",
	TypeCellular:  "CELLULAR",
	TypeWifi:      "WIFI",
	TypeBluetooth: "BLUETOOTH",
	TypeEthernet:  "ETHERNET",
	TypeWimax:     "WIMAX",
	TypeVPN:       "VPN",
	TypeOther:     "OTHER",
}

// String returns the upper-case name of the connection type.
func (t ConnectionType) String() string {
	if t >= 0 && int(t) < len(connectionTypeNames) {
		return connectionTypeNames[t]
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler so observations serialise
// with readable type names over IPC.
func (t ConnectionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ConnectionType) UnmarshalText(text []byte) error {
	for i, name := range connectionTypeNames {
		if name == string(text) {
			*t = ConnectionType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown connection type %q", text)
}

// Reachability is a tri-state connectivity flag. The zero value means the
// platform has not said yet.
type Reachability int

const (
	ReachUnknown Reachability = iota
	ReachYes
	ReachNo
)

// String returns "unknown", "yes" or "no".
func (r Reachability) String() string {
	switch r {
	case ReachYes:
		return "yes"
	case ReachNo:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reachability) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reachability) UnmarshalText(text []byte) error {
	switch string(text) {
	case "yes":
		*r = ReachYes
	case "no":
		*r = ReachNo
	case "unknown", "":
		*r = ReachUnknown
	default:
		return fmt.Errorf("unknown reachability %q", text)
	}
	return nil
}

// Observation is one network-state snapshot.
type Observation struct {
	Connected Reachability   `json:"connected"`
	Type      ConnectionType `json:"type"`

	// Interface is the name of the primary interface, if any.
	Interface string `json:"interface,omitempty"`

	// Tunnel names an overlay the traffic is routed through (for example a
	// Tailscale exit node). Display only.
	Tunnel string `json:"tunnel,omitempty"`

	At time.Time `json:"at"`
}

// IsWifi reports whether the observation's connection type is Wi-Fi.
func (o Observation) IsWifi() bool {
	return o.Type == TypeWifi
}

// Equal reports whether two observations describe the same connectivity.
// The timestamp is ignored.
func (o Observation) Equal(other Observation) bool {
	return o.Connected == other.Connected &&
		o.Type == other.Type &&
		o.Interface == other.Interface &&
		o.Tunnel == other.Tunnel
}

// String renders the observation for logs.
func (o Observation) String() string {
	s := fmt.Sprintf("connected=%s type=%s", o.Connected, o.Type)
	if o.Interface != "" {
		s += " iface=" + o.Interface
	}
	if o.Tunnel != "" {
		s += " tunnel=" + o.Tunnel
	}
	return s
}

// Unsubscribe releases a subscription. It is safe to call more than once;
// after the first call returns the callback is never invoked again.
type Unsubscribe func()

// Source is a network-state provider.
type Source interface {
	// Current performs a one-shot query of the network state.
	Current(ctx context.Context) (Observation, error)

	// Subscribe registers fn to receive observations as the state changes.
	// Deliveries for a single subscription are serialised and in order.
	Subscribe(fn func(Observation)) (Unsubscribe, error)
}
