//go:build !linux

package netstate

// newLinkWatcher has no event source outside Linux; the monitor relies on
// polling alone.
func newLinkWatcher() (linkWatcher, error) {
	return nil, ErrNoLinkEvents
}
