package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
)

// fakeNotifier records notifications synchronously.
type fakeNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
	full  bool
}

func (f *fakeNotifier) Notify(n notify.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.notes = append(f.notes, n)
	return true
}

func (f *fakeNotifier) sent() []notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Notification(nil), f.notes...)
}

// updates collects published updates.
type updates struct {
	mu  sync.Mutex
	all []Update
}

func (u *updates) add(up Update) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.all = append(u.all, up)
}

func (u *updates) list() []Update {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Update(nil), u.all...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(src netstate.Source, n Notifier) (*Watcher, *updates) {
	u := &updates{}
	w := New(src, n, WithPublisher(u.add), WithLogger(quietLogger()))
	return w, u
}

func TestStartRecordsWithoutNotifying(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if len(n.sent()) != 0 {
		t.Errorf("notifications after start = %v, want none", n.sent())
	}
	ups := u.list()
	if len(ups) != 1 || !ups[0].Initial || !ups[0].Observation.Equal(wifi) {
		t.Fatalf("updates = %+v, want one initial wifi update", ups)
	}
	if st := w.Snapshot(); st.Wifi != StateWifi || !st.Running {
		t.Errorf("snapshot = %+v", st)
	}
	if src.Subscribers() != 1 {
		t.Errorf("subscribers = %d, want 1", src.Subscribers())
	}
}

func TestWifiToCellularNotifiesDisconnected(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	src.Emit(cellular)

	sent := n.sent()
	if len(sent) != 1 || sent[0] != WifiDisconnected {
		t.Fatalf("sent = %+v, want one WifiDisconnected", sent)
	}
	ups := u.list()
	last := ups[len(ups)-1]
	if last.Notification == nil || *last.Notification != WifiDisconnected {
		t.Errorf("last update notification = %v", last.Notification)
	}
	if st := w.Snapshot(); st.Transitions != 1 || st.LastNotification == nil {
		t.Errorf("snapshot = %+v", st)
	}
}

func TestCellularToWifiNotifiesConnected(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(cellular))
	n := &fakeNotifier{}
	w, _ := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	src.Emit(wifi)

	sent := n.sent()
	if len(sent) != 1 || sent[0] != WifiConnected {
		t.Fatalf("sent = %+v, want one WifiConnected", sent)
	}
}

func TestRepeatedWifiDoesNotNotify(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	src.Emit(wifi)
	src.Emit(wifi)

	if len(n.sent()) != 0 {
		t.Errorf("sent = %v, want none", n.sent())
	}
	if got := len(u.list()); got != 3 {
		t.Errorf("updates = %d, want 3 (every observation is published)", got)
	}
}

func TestOfflineIsNotWifi(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, _ := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	src.Emit(offline)
	src.Emit(cellular)

	sent := n.sent()
	if len(sent) != 1 || sent[0] != WifiDisconnected {
		t.Fatalf("sent = %+v, want exactly one WifiDisconnected", sent)
	}
	if st := w.Snapshot(); !st.Observation.Equal(cellular) {
		t.Errorf("last observation = %v, want %v", st.Observation, cellular)
	}
}

func TestStartCurrentErrorLeavesFlagUnknown(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrentError(errors.New("no route")))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if st := w.Snapshot(); st.Wifi != StateUnknown || st.Observation != nil {
		t.Fatalf("snapshot = %+v, want unknown with no observation", st)
	}
	if len(u.list()) != 0 {
		t.Errorf("updates = %v, want none", u.list())
	}

	// The first pushed observation seeds the flag without notifying.
	src.Emit(cellular)
	if len(n.sent()) != 0 {
		t.Errorf("sent = %v, want none", n.sent())
	}
	src.Emit(wifi)
	if sent := n.sent(); len(sent) != 1 || sent[0] != WifiConnected {
		t.Errorf("sent = %+v, want one WifiConnected", sent)
	}
}

func TestSeedAfterPushKeepsNewerState(t *testing.T) {
	n := &fakeNotifier{}
	w, u := newTestWatcher(netstate.NewMockSource(), n)

	// The pushed cellular observation lands before the startup query result.
	w.handle(cellular)
	w.seed(wifi)

	st := w.Snapshot()
	if st.Wifi != StateNotWifi {
		t.Errorf("Wifi = %v, want not-wifi", st.Wifi)
	}
	if st.Observation == nil || st.Observation.Interface != "wwan0" {
		t.Errorf("Observation = %+v, want the pushed cellular one", st.Observation)
	}
	ups := u.list()
	if len(ups) != 1 || ups[0].Initial {
		t.Errorf("updates = %+v, want only the pushed one", ups)
	}
	if len(n.sent()) != 0 {
		t.Errorf("sent = %v, want none", n.sent())
	}
}

func TestStartSubscribeError(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi), netstate.WithSubscribeError(errors.New("denied")))
	w, _ := newTestWatcher(src, &fakeNotifier{})
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when Subscribe fails")
	}
}

func TestStartTwice(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	w, _ := newTestWatcher(src, &fakeNotifier{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()
	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStopUnsubscribesOnce(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	w.Stop()
	w.Stop()

	if got := src.UnsubscribeCalls(); got != 1 {
		t.Errorf("unsubscribe calls = %d, want 1", got)
	}
	if src.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", src.Subscribers())
	}

	before := len(u.list())
	src.Emit(cellular)
	if len(u.list()) != before || len(n.sent()) != 0 {
		t.Error("observation processed after Stop")
	}
	if w.Snapshot().Running {
		t.Error("snapshot reports running after Stop")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop error = %v, want ErrStopped", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	w, _ := newTestWatcher(src, &fakeNotifier{})
	w.Stop()
	if got := src.UnsubscribeCalls(); got != 0 {
		t.Errorf("unsubscribe calls = %d, want 0", got)
	}
}

// A callback that was already in flight when Stop began must not publish.
func TestHandleIgnoredAfterStop(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	w.Stop()

	before := len(u.list())
	w.handle(cellular)
	if len(u.list()) != before || len(n.sent()) != 0 {
		t.Error("late callback was processed")
	}
}

func TestRefresh(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, _ := newTestWatcher(src, n)

	if err := w.Refresh(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Refresh before Start error = %v, want ErrNotStarted", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	src.SetCurrent(cellular)
	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if sent := n.sent(); len(sent) != 1 || sent[0] != WifiDisconnected {
		t.Errorf("sent = %+v, want one WifiDisconnected", sent)
	}

	// The same change arriving later from the source is not a second flip.
	src.Emit(cellular)
	if got := len(n.sent()); got != 1 {
		t.Errorf("sent %d notifications, want 1", got)
	}

	w.Stop()
	if err := w.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Refresh after Stop error = %v, want ErrStopped", err)
	}
}

func TestRefreshQueryError(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	w, _ := newTestWatcher(src, &fakeNotifier{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh error = %v, want context.Canceled", err)
	}
}

func TestNotifierFullIsNotFatal(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{full: true}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	src.Emit(cellular)
	if st := w.Snapshot(); st.Wifi != StateNotWifi || st.Transitions != 1 {
		t.Errorf("snapshot = %+v", st)
	}
	if got := len(u.list()); got != 2 {
		t.Errorf("updates = %d, want 2", got)
	}
}

func TestNilNotifier(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	w, _ := newTestWatcher(src, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()
	src.Emit(cellular)
	if w.Snapshot().Transitions != 1 {
		t.Error("transition not recorded without a notifier")
	}
}

func TestLastNotificationTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := netstate.NewMockSource(netstate.WithCurrent(cellular))
	w := New(src, &fakeNotifier{}, WithLogger(quietLogger()), withClock(func() time.Time { return at }))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	src.Emit(wifi)
	st := w.Snapshot()
	if st.LastNotification == nil || !st.LastNotification.At.Equal(at) {
		t.Fatalf("last notification = %+v", st.LastNotification)
	}
	if st.LastNotification.Title != "Wi-Fi Connected" {
		t.Errorf("title = %q", st.LastNotification.Title)
	}
}

// End to end through the real dispatcher and a recording sink.
func TestWatcherWithDispatcher(t *testing.T) {
	sink := notify.NewRecordingSink()
	d := notify.NewDispatcher(sink, notify.DispatcherConfig{}, notify.WithDispatchLogger(quietLogger()))

	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	w, _ := newTestWatcher(src, d)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	src.Emit(cellular)
	src.Emit(cellular)
	src.Emit(wifi)
	w.Stop()
	d.Close()

	sent := sink.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent = %+v, want 2 notifications", sent)
	}
	if sent[0] != WifiDisconnected || sent[1] != WifiConnected {
		t.Errorf("sent = %+v, want [disconnected connected]", sent)
	}
}

// Concurrent Refresh and pushed observations stay serialised: the flag
// always matches the last published observation.
func TestConcurrentDeliveryIsSerialised(t *testing.T) {
	src := netstate.NewMockSource(netstate.WithCurrent(wifi))
	n := &fakeNotifier{}
	w, u := newTestWatcher(src, n)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				src.Emit(cellular)
			} else {
				src.Emit(wifi)
			}
		}(i)
	}
	wg.Wait()

	ups := u.list()
	last := ups[len(ups)-1].Observation
	if got := w.Snapshot().Wifi; got != StateOf(last) {
		t.Errorf("flag = %v, last published %v", got, last)
	}

	flips := 0
	for i := 1; i < len(ups); i++ {
		if ups[i].Observation.IsWifi() != ups[i-1].Observation.IsWifi() {
			flips++
		}
	}
	if got := len(n.sent()); got != flips {
		t.Errorf("notifications = %d, flips in published order = %d", got, flips)
	}
}
