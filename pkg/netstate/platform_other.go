//go:build !linux

package netstate

import "context"

// isWireless has no platform hint outside Linux; classification falls back
// to interface names.
func isWireless(string) bool { return false }

// defaultRouteIndex is not implemented outside Linux. The probe ranks
// candidate interfaces instead.
func defaultRouteIndex(context.Context) (int, bool, error) {
	return 0, false, nil
}
