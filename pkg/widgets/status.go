package widgets

import (
	"fmt"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
)

// Status texts.
const (
	TextChecking = "Checking network status..."
	TextOffline  = "No internet connection."
	TextWifi     = "Connected to Wi-Fi."
)

// StatusText renders the one-line connectivity summary. Until reachability
// is known, either because nothing has been observed yet or because the
// platform reported it as unknown, the summary stays on TextChecking.
func StatusText(obs *netstate.Observation) string {
	switch {
	case obs == nil || obs.Connected == netstate.ReachUnknown:
		return TextChecking
	case obs.Connected == netstate.ReachNo:
		return TextOffline
	case obs.IsWifi():
		return TextWifi
	default:
		return fmt.Sprintf("Not connected to Wi-Fi (Type: %s)", obs.Type)
	}
}

// StatusColor picks the accent color matching StatusText.
func StatusColor(obs *netstate.Observation) string {
	switch {
	case obs == nil || obs.Connected == netstate.ReachUnknown:
		return ColorDim
	case obs.Connected == netstate.ReachNo:
		return ColorOffline
	case obs.IsWifi():
		return ColorWifi
	default:
		return ColorNotWifi
	}
}
