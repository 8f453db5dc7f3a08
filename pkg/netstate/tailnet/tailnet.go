// Package tailnet reports whether the host's traffic leaves through a
// Tailscale exit node. It asks the local tailscaled over the LocalAPI unix
// socket and is used to annotate network observations; it never changes
// the connection type.
package tailnet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tailscale.com/client/local"
	"tailscale.com/ipn/ipnstate"
)

// DefaultTimeout bounds a single LocalAPI round trip so a wedged tailscaled
// cannot stall network probing.
const DefaultTimeout = 500 * time.Millisecond

// backendRunning is the ipn.State string tailscaled reports when connected.
const backendRunning = "Running"

// StatusClient abstracts the local Tailscale daemon API for testability.
// The real implementation is tailscale.com/client/local.Client.
type StatusClient interface {
	Status(ctx context.Context) (*ipnstate.Status, error)
}

// Config holds the configuration for the exit node probe.
type Config struct {
	// Timeout bounds each status request. Zero uses DefaultTimeout.
	Timeout time.Duration

	// SocketPath is an optional custom tailscaled socket path.
	// When empty, the platform default is used.
	SocketPath string
}

// ExitNodeProbe satisfies netstate.TunnelProbe.
type ExitNodeProbe struct {
	client  StatusClient
	timeout time.Duration
}

// New creates an ExitNodeProbe. If client is nil a LocalAPI client for
// cfg.SocketPath is used.
func New(cfg Config, client StatusClient) *ExitNodeProbe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = NewLocalClient(cfg.SocketPath)
	}
	return &ExitNodeProbe{client: client, timeout: timeout}
}

// Tunnel returns a display name for the active exit node, or "" when
// tailscaled is not running or no exit node is selected.
func (p *ExitNodeProbe) Tunnel(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st, err := p.client.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("tailscale status: %w", err)
	}
	if st == nil {
		return "", fmt.Errorf("tailscale status: nil response")
	}
	return exitNodeName(st), nil
}

// exitNodeName picks the exit node's host name out of a status snapshot.
func exitNodeName(st *ipnstate.Status) string {
	if st.BackendState != backendRunning {
		return ""
	}

	// More than one ExitNode flag only shows up mid-switch; take the
	// lexically first so the answer is stable.
	var names []string
	for _, pubKey := range st.Peers() {
		ps := st.Peer[pubKey]
		if ps == nil || !ps.ExitNode {
			continue
		}
		names = append(names, peerName(ps))
	}
	if len(names) > 0 {
		sort.Strings(names)
		return "tailscale exit node " + names[0]
	}

	if st.ExitNodeStatus != nil {
		return "tailscale exit node " + string(st.ExitNodeStatus.ID)
	}
	return ""
}

// peerName prefers the short MagicDNS label over the OS host name.
func peerName(ps *ipnstate.PeerStatus) string {
	if ps.DNSName != "" {
		label, _, _ := strings.Cut(ps.DNSName, ".")
		if label != "" {
			return label
		}
	}
	return ps.HostName
}

// NewLocalClient creates a StatusClient backed by the real Tailscale local
// daemon. Tests should inject a fake StatusClient instead.
func NewLocalClient(socketPath string) StatusClient {
	return &localClientAdapter{socketPath: socketPath}
}

// localClientAdapter lazily constructs the LocalAPI client on first use.
type localClientAdapter struct {
	socketPath string
	once       sync.Once
	client     *local.Client
}

// Status implements StatusClient.
func (a *localClientAdapter) Status(ctx context.Context) (*ipnstate.Status, error) {
	a.once.Do(func() {
		a.client = &local.Client{}
		if a.socketPath != "" {
			a.client.Socket = a.socketPath
		}
	})
	return a.client.Status(ctx)
}
