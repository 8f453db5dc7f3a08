//go:build linux

package netstate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// sysClassNet is the sysfs directory holding one entry per interface.
const sysClassNet = "/sys/class/net"

// isWireless reports whether the kernel registered name as an 802.11 device.
func isWireless(name string) bool {
	for _, marker := range []string{"wireless", "phy80211"} {
		if _, err := os.Stat(filepath.Join(sysClassNet, name, marker)); err == nil {
			return true
		}
	}
	return false
}

// defaultRouteIndex dumps the main routing table over rtnetlink and returns
// the output interface of the lowest-metric default route. IPv4 routes are
// preferred; IPv6 is consulted only when no IPv4 default exists.
func defaultRouteIndex(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return 0, false, fmt.Errorf("dial rtnetlink: %w", err)
	}
	defer conn.Close()

	routes, err := conn.Route.List()
	if err != nil {
		return 0, false, fmt.Errorf("list routes: %w", err)
	}

	best := map[uint8]rtnetlink.RouteMessage{}
	for _, r := range routes {
		if r.DstLength != 0 || r.Type != unix.RTN_UNICAST {
			continue
		}
		if r.Table != unix.RT_TABLE_MAIN && r.Attributes.Table != unix.RT_TABLE_MAIN {
			continue
		}
		if r.Attributes.OutIface == 0 {
			continue
		}
		cur, ok := best[r.Family]
		if !ok || r.Attributes.Priority < cur.Attributes.Priority {
			best[r.Family] = r
		}
	}

	for _, family := range []uint8{unix.AF_INET, unix.AF_INET6} {
		if r, ok := best[family]; ok {
			return int(r.Attributes.OutIface), true, nil
		}
	}
	return 0, false, nil
}
