package watcher

import (
	"testing"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
)

var (
	wifi     = netstate.Observation{Connected: netstate.ReachYes, Type: netstate.TypeWifi, Interface: "wlan0"}
	cellular = netstate.Observation{Connected: netstate.ReachYes, Type: netstate.TypeCellular, Interface: "wwan0"}
	ethernet = netstate.Observation{Connected: netstate.ReachYes, Type: netstate.TypeEthernet, Interface: "eth0"}
	offline  = netstate.Observation{Connected: netstate.ReachNo, Type: netstate.TypeNone}
	unknown  = netstate.Observation{}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		prev     WifiState
		obs      netstate.Observation
		want     WifiState
		wantNote *notify.Notification
	}{
		{"first wifi", StateUnknown, wifi, StateWifi, nil},
		{"first cellular", StateUnknown, cellular, StateNotWifi, nil},
		{"first offline", StateUnknown, offline, StateNotWifi, nil},
		{"wifi to cellular", StateWifi, cellular, StateNotWifi, &WifiDisconnected},
		{"wifi to offline", StateWifi, offline, StateNotWifi, &WifiDisconnected},
		{"wifi to unknown type", StateWifi, unknown, StateNotWifi, &WifiDisconnected},
		{"cellular to wifi", StateNotWifi, wifi, StateWifi, &WifiConnected},
		{"wifi to wifi", StateWifi, wifi, StateWifi, nil},
		{"cellular to ethernet", StateNotWifi, ethernet, StateNotWifi, nil},
		{"offline to cellular", StateNotWifi, cellular, StateNotWifi, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, note := Decide(tt.prev, tt.obs)
			if got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
			switch {
			case tt.wantNote == nil && note != nil:
				t.Errorf("unexpected notification %+v", *note)
			case tt.wantNote != nil && note == nil:
				t.Errorf("missing notification, want %+v", *tt.wantNote)
			case tt.wantNote != nil && *note != *tt.wantNote:
				t.Errorf("notification = %+v, want %+v", *note, *tt.wantNote)
			}
		})
	}
}

// A Wi-Fi observation that is not connected still counts as Wi-Fi because
// the flag tracks the connection type only.
func TestStateOfUsesTypeOnly(t *testing.T) {
	obs := netstate.Observation{Connected: netstate.ReachNo, Type: netstate.TypeWifi}
	if got := StateOf(obs); got != StateWifi {
		t.Errorf("StateOf = %v, want wifi", got)
	}
}

func TestNotificationTexts(t *testing.T) {
	if WifiConnected.Title != "Wi-Fi Connected" || WifiConnected.Body != "You are now connected to Wi-Fi." {
		t.Errorf("WifiConnected = %+v", WifiConnected)
	}
	if WifiDisconnected.Title != "Wi-Fi Disconnected" || WifiDisconnected.Body != "You are no longer connected to Wi-Fi." {
		t.Errorf("WifiDisconnected = %+v", WifiDisconnected)
	}
}

func TestWifiStateString(t *testing.T) {
	for s, want := range map[WifiState]string{
		StateUnknown: "unknown",
		StateWifi:    "wifi",
		StateNotWifi: "not-wifi",
		WifiState(9): "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

// The notification count over any sequence equals the number of adjacent
// pairs whose Wi-Fi flag differs.
func TestDecideCountsFlips(t *testing.T) {
	seq := []netstate.Observation{wifi, wifi, cellular, offline, wifi, ethernet, ethernet, wifi, wifi}

	var (
		state WifiState
		notes int
	)
	for _, obs := range seq {
		var n *notify.Notification
		state, n = Decide(state, obs)
		if n != nil {
			notes++
		}
	}

	flips := 0
	for i := 1; i < len(seq); i++ {
		if seq[i].IsWifi() != seq[i-1].IsWifi() {
			flips++
		}
	}
	if notes != flips {
		t.Errorf("notifications = %d, want %d", notes, flips)
	}
}
