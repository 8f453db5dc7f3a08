//go:build linux

package netstate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// netlinkWatcher listens on a NETLINK_ROUTE multicast socket and signals on
// every link, address, or route event. The payload is not decoded; the
// monitor simply re-probes.
type netlinkWatcher struct {
	conn      *netlink.Conn
	events    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// newLinkWatcher subscribes to kernel routing events.
func newLinkWatcher() (linkWatcher, error) {
	conn, err := netlink.Dial(unix.NETLINK_ROUTE, &netlink.Config{
		Groups: unix.RTMGRP_LINK |
			unix.RTMGRP_IPV4_IFADDR |
			unix.RTMGRP_IPV6_IFADDR |
			unix.RTMGRP_IPV4_ROUTE |
			unix.RTMGRP_IPV6_ROUTE,
	})
	if err != nil {
		return nil, fmt.Errorf("dial netlink route socket: %w", err)
	}

	w := &netlinkWatcher{
		conn:   conn,
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *netlinkWatcher) loop() {
	for {
		msgs, err := w.conn.Receive()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			// ENOBUFS means events were dropped; a re-probe covers them.
			// Anything else leaves the monitor on polling alone.
			w.signal()
			if errors.Is(err, unix.ENOBUFS) {
				continue
			}
			return
		}
		if len(msgs) > 0 {
			w.signal()
		}
	}
}

// signal coalesces wakeups into the single-slot channel.
func (w *netlinkWatcher) signal() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// Events returns the wakeup channel.
func (w *netlinkWatcher) Events() <-chan struct{} {
	return w.events
}

// Close shuts the socket down, which unblocks Receive.
func (w *netlinkWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}
