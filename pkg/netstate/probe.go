package netstate

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"runtime"
	"slices"
	"sort"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// Probe takes a single network-state snapshot.
type Probe interface {
	Probe(ctx context.Context) (Observation, error)
}

// TunnelProbe reports the name of an overlay network the host's traffic is
// routed through, or "" when there is none.
type TunnelProbe interface {
	Tunnel(ctx context.Context) (string, error)
}

// InterfaceProbe derives an Observation from the host's interface table.
type InterfaceProbe struct {
	goos         string
	list         func(ctx context.Context) ([]psnet.InterfaceStat, error)
	defaultRoute func(ctx context.Context) (int, bool, error)
	wireless     func(name string) bool
	tunnel       TunnelProbe
	now          func() time.Time
	logger       *slog.Logger
}

// ProbeOption configures an InterfaceProbe.
type ProbeOption func(*InterfaceProbe)

// WithTunnelProbe attaches an overlay detector whose answer is copied into
// Observation.Tunnel.
func WithTunnelProbe(tp TunnelProbe) ProbeOption {
	return func(p *InterfaceProbe) { p.tunnel = tp }
}

// WithProbeLogger sets the logger used for non-fatal probe problems.
func WithProbeLogger(l *slog.Logger) ProbeOption {
	return func(p *InterfaceProbe) { p.logger = l }
}

// withInterfaceLister replaces the gopsutil interface lister. Tests only.
func withInterfaceLister(fn func(ctx context.Context) ([]psnet.InterfaceStat, error)) ProbeOption {
	return func(p *InterfaceProbe) { p.list = fn }
}

// withDefaultRoute replaces the default-route lookup. Tests only.
func withDefaultRoute(fn func(ctx context.Context) (int, bool, error)) ProbeOption {
	return func(p *InterfaceProbe) { p.defaultRoute = fn }
}

// withGOOS overrides runtime.GOOS for classification. Tests only.
func withGOOS(goos string) ProbeOption {
	return func(p *InterfaceProbe) { p.goos = goos }
}

// withWireless overrides the platform wireless hint. Tests only.
func withWireless(fn func(name string) bool) ProbeOption {
	return func(p *InterfaceProbe) { p.wireless = fn }
}

// NewInterfaceProbe returns a probe backed by gopsutil and the platform's
// routing table.
func NewInterfaceProbe(opts ...ProbeOption) *InterfaceProbe {
	p := &InterfaceProbe{
		goos: runtime.GOOS,
		list: func(ctx context.Context) ([]psnet.InterfaceStat, error) {
			return psnet.InterfacesWithContext(ctx)
		},
		defaultRoute: defaultRouteIndex,
		wireless:     isWireless,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// candidate is an interface that could be carrying traffic.
type candidate struct {
	index int
	name  string
	kind  string
}

// Probe lists interfaces and picks the primary uplink.
func (p *InterfaceProbe) Probe(ctx context.Context) (Observation, error) {
	select {
	case <-ctx.Done():
		return Observation{}, ctx.Err()
	default:
	}

	ifaces, err := p.list(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("list interfaces: %w", err)
	}

	var cands []candidate
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") {
			continue
		}
		kind := classifyInterface(iface.Name, p.goos, p.wireless(iface.Name))
		if kind == kindLoopback || kind == kindVirtual {
			continue
		}
		if !hasRoutableAddr(iface.Addrs) {
			continue
		}
		cands = append(cands, candidate{index: iface.Index, name: iface.Name, kind: kind})
	}

	obs := Observation{At: p.now()}
	if len(cands) == 0 {
		obs.Connected = ReachNo
		obs.Type = TypeNone
		return obs, nil
	}

	primary, tunnelIface := p.pickPrimary(ctx, cands)
	obs.Connected = ReachYes
	obs.Type = kindToType(primary.kind)
	obs.Interface = primary.name
	obs.Tunnel = tunnelIface

	if p.tunnel != nil {
		name, err := p.tunnel.Tunnel(ctx)
		if err != nil {
			p.logger.Debug("tunnel probe failed", "error", err)
		} else if name != "" {
			obs.Tunnel = name
		}
	}

	return obs, nil
}

// pickPrimary chooses the physical uplink. When the default route points at
// a tunnel the physical link underneath is still what the user is "on", so
// the tunnel name is returned separately.
func (p *InterfaceProbe) pickPrimary(ctx context.Context, cands []candidate) (candidate, string) {
	var tunnelIface string

	if idx, ok, err := p.defaultRoute(ctx); err != nil {
		p.logger.Debug("default route lookup failed", "error", err)
	} else if ok {
		for _, c := range cands {
			if c.index != idx {
				continue
			}
			if c.kind != kindVPN {
				return c, ""
			}
			tunnelIface = c.name
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return kindRank(cands[i].kind) < kindRank(cands[j].kind)
	})
	if cands[0].kind == kindVPN {
		return cands[0], ""
	}
	return cands[0], tunnelIface
}

// hasRoutableAddr reports whether any address is usable for traffic beyond
// the local link.
func hasRoutableAddr(addrs psnet.InterfaceAddrList) bool {
	for _, a := range addrs {
		ip, err := netip.ParseAddr(stripMask(a.Addr))
		if err != nil {
			continue
		}
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() || ip.IsMulticast() {
			continue
		}
		return true
	}
	return false
}
