package netstate

import (
	"strings"
)

// Interface kinds produced by classifyInterface. They are finer grained than
// ConnectionType so the probe can drop loopback and container bridges.
const (
	kindLoopback  = "loopback"
	kindEthernet  = "ethernet"
	kindWifi      = "wifi"
	kindCellular  = "cellular"
	kindBluetooth = "bluetooth"
	kindVPN       = "vpn"
	kindVirtual   = "virtual"
)

// classifyInterface classifies a network interface by its name and the
// current OS. The goos parameter allows testing without runtime dependency.
// wireless is the platform's own hint (Linux sysfs) and wins over the name.
func classifyInterface(name, goos string, wireless bool) string {
	lower := strings.ToLower(name)

	if strings.HasPrefix(lower, "lo") {
		return kindLoopback
	}
	if wireless {
		return kindWifi
	}

	// Overlay and tunnel devices.
	if strings.HasPrefix(lower, "tailscale") ||
		strings.HasPrefix(lower, "tun") ||
		strings.HasPrefix(lower, "tap") ||
		strings.HasPrefix(lower, "wg") ||
		strings.HasPrefix(lower, "ppp") ||
		strings.HasPrefix(lower, "ipsec") {
		return kindVPN
	}

	// Container and hypervisor plumbing.
	if strings.HasPrefix(lower, "veth") ||
		strings.HasPrefix(lower, "br-") ||
		strings.HasPrefix(lower, "docker") ||
		strings.HasPrefix(lower, "cni") ||
		strings.HasPrefix(lower, "flannel") ||
		strings.HasPrefix(lower, "vxlan") ||
		strings.HasPrefix(lower, "virbr") ||
		strings.HasPrefix(lower, "vmnet") ||
		strings.HasPrefix(lower, "vboxnet") {
		return kindVirtual
	}

	switch goos {
	case "darwin":
		return classifyDarwin(lower)
	case "linux", "android":
		return classifyLinux(lower)
	case "windows":
		return classifyWindows(lower)
	}

	switch {
	case strings.HasPrefix(lower, "eth"), strings.HasPrefix(lower, "em"):
		return kindEthernet
	case strings.HasPrefix(lower, "wl"), strings.HasPrefix(lower, "ath"), strings.HasPrefix(lower, "iwm"):
		return kindWifi
	}
	return kindVirtual
}

// classifyDarwin classifies macOS interface names. en0 is Wi-Fi on every
// laptop Apple ships; the sysfs hint does not exist there.
func classifyDarwin(lower string) string {
	switch {
	case lower == "en0":
		return kindWifi
	case strings.HasPrefix(lower, "en"):
		return kindEthernet
	case strings.HasPrefix(lower, "pdp_ip"):
		return kindCellular
	case strings.HasPrefix(lower, "utun"), strings.HasPrefix(lower, "ipsec"):
		return kindVPN
	case strings.HasPrefix(lower, "awdl"), strings.HasPrefix(lower, "llw"):
		// Apple peer-to-peer links, never an uplink.
		return kindVirtual
	case strings.HasPrefix(lower, "bridge"), strings.HasPrefix(lower, "ap"):
		return kindVirtual
	default:
		return kindVirtual
	}
}

// classifyLinux classifies Linux (and Android) interface names.
func classifyLinux(lower string) string {
	switch {
	case strings.HasPrefix(lower, "eth"),
		strings.HasPrefix(lower, "enp"),
		strings.HasPrefix(lower, "eno"),
		strings.HasPrefix(lower, "ens"),
		strings.HasPrefix(lower, "enx"):
		return kindEthernet
	case strings.HasPrefix(lower, "wl"):
		return kindWifi
	case strings.HasPrefix(lower, "ww"), strings.HasPrefix(lower, "rmnet"), strings.HasPrefix(lower, "ccmni"):
		return kindCellular
	case strings.HasPrefix(lower, "bnep"), strings.HasPrefix(lower, "bt-pan"):
		return kindBluetooth
	default:
		return kindVirtual
	}
}

// classifyWindows classifies Windows adapter names as reported by the OS
// ("Wi-Fi", "Ethernet 2", "Cellular").
func classifyWindows(lower string) string {
	switch {
	case strings.Contains(lower, "wi-fi"), strings.Contains(lower, "wireless"), strings.Contains(lower, "wlan"):
		return kindWifi
	case strings.HasPrefix(lower, "ethernet"):
		return kindEthernet
	case strings.Contains(lower, "cellular"), strings.Contains(lower, "mobile broadband"):
		return kindCellular
	case strings.Contains(lower, "bluetooth"):
		return kindBluetooth
	default:
		return kindVirtual
	}
}

// kindToType maps an interface kind to the public ConnectionType.
func kindToType(kind string) ConnectionType {
	switch kind {
	case kindEthernet:
		return TypeEthernet
	case kindWifi:
		return TypeWifi
	case kindCellular:
		return TypeCellular
	case kindBluetooth:
		return TypeBluetooth
	case kindVPN:
		return TypeVPN
	default:
		return TypeOther
	}
}

// kindRank orders candidate uplinks when no default route is known. Lower
// wins.
func kindRank(kind string) int {
	switch kind {
	case kindEthernet:
		return 0
	case kindWifi:
		return 1
	case kindCellular:
		return 2
	case kindBluetooth:
		return 3
	case kindVPN:
		return 4
	default:
		return 5
	}
}

// stripMask strips the CIDR mask from an address string like "192.168.1.1/24".
func stripMask(addr string) string {
	if idx := strings.IndexByte(addr, '/'); idx >= 0 {
		return addr[:idx]
	}
	return addr
}
