//go:build !linux && !windows && !darwin

package notify

func newDesktopSink(SinkOptions) (Sink, error) {
	return nil, ErrUnsupported
}
