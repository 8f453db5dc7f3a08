package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/wifi-pulse/pkg/netstate"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/notify"
	"gitlab.com/tinyland/lab/wifi-pulse/pkg/watcher"
)

// fakeWatcher serves a fixed snapshot.
type fakeWatcher struct {
	mu         sync.Mutex
	snap       watcher.Status
	refreshErr error
	refreshes  int
}

func (f *fakeWatcher) Snapshot() watcher.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeWatcher) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

type fakeStats struct{ s notify.DispatchStats }

func (f fakeStats) Stats() notify.DispatchStats { return f.s }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wifiSnapshot() watcher.Status {
	obs := netstate.Observation{Connected: netstate.ReachYes, Type: netstate.TypeWifi, Interface: "wlan0"}
	return watcher.Status{Running: true, Wifi: watcher.StateWifi, Observation: &obs, Transitions: 2}
}

// shortTempDir keeps socket paths under the sun_path limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "wp")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestParseIPCCommand(t *testing.T) {
	tests := []struct {
		line    string
		cmd     string
		wantArg string
	}{
		{"STATUS", "STATUS", ""},
		{"status TEXT", "STATUS", "text"},
		{"health", "HEALTH", ""},
		{"REFRESH now", "REFRESH", ""},
		{"quit", "QUIT", ""},
	}
	for _, tt := range tests {
		cmd, args := parseIPCCommand(tt.line)
		if cmd != tt.cmd {
			t.Errorf("parseIPCCommand(%q) cmd = %q, want %q", tt.line, cmd, tt.cmd)
		}
		if args["format"] != tt.wantArg {
			t.Errorf("parseIPCCommand(%q) format = %q, want %q", tt.line, args["format"], tt.wantArg)
		}
	}
	if cmd, args := parseIPCCommand("   "); cmd != "" || args != nil {
		t.Errorf("blank line = %q %v", cmd, args)
	}
}

func TestHandleStatus(t *testing.T) {
	d := New(Config{}, &fakeWatcher{snap: wifiSnapshot()}, nil, quietLogger())

	resp, err := d.HandleCommand(context.Background(), CmdStatus, map[string]string{})
	if err != nil {
		t.Fatalf("STATUS failed: %v", err)
	}
	var got struct {
		Running     bool   `json:"running"`
		Wifi        string `json:"wifi"`
		Observation struct {
			Type      string `json:"type"`
			Connected string `json:"connected"`
		} `json:"observation"`
	}
	if err := json.Unmarshal([]byte(resp), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", resp, err)
	}
	if !got.Running || got.Wifi != "wifi" || got.Observation.Type != "WIFI" || got.Observation.Connected != "yes" {
		t.Errorf("STATUS = %s", resp)
	}
}

func TestHandleStatusText(t *testing.T) {
	d := New(Config{}, &fakeWatcher{}, nil, quietLogger())
	resp, err := d.HandleCommand(context.Background(), CmdStatus, map[string]string{"format": "text"})
	if err != nil {
		t.Fatalf("STATUS text failed: %v", err)
	}
	if !strings.Contains(resp, "Checking network status...") {
		t.Errorf("STATUS text = %s", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	stats := fakeStats{notify.DispatchStats{Delivered: 3, Failed: 1}}
	d := New(Config{}, &fakeWatcher{snap: wifiSnapshot()}, stats, quietLogger())

	resp, err := d.HandleCommand(context.Background(), CmdHealth, nil)
	if err != nil {
		t.Fatalf("HEALTH failed: %v", err)
	}
	var h HealthStatus
	if err := json.Unmarshal([]byte(resp), &h); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if h.PID != os.Getpid() || h.Status != "Connected to Wi-Fi." || h.Transitions != 2 {
		t.Errorf("health = %+v", h)
	}
	if h.Delivery.Delivered != 3 || h.Delivery.Failed != 1 {
		t.Errorf("delivery = %+v", h.Delivery)
	}
}

func TestHandleRefresh(t *testing.T) {
	fw := &fakeWatcher{snap: wifiSnapshot()}
	d := New(Config{}, fw, nil, quietLogger())

	if _, err := d.HandleCommand(context.Background(), CmdRefresh, nil); err != nil {
		t.Fatalf("REFRESH failed: %v", err)
	}
	if fw.refreshes != 1 {
		t.Errorf("refreshes = %d", fw.refreshes)
	}

	fw.refreshErr = errors.New("probe failed")
	if _, err := d.HandleCommand(context.Background(), CmdRefresh, nil); err == nil {
		t.Error("REFRESH should surface the refresh error")
	}
}

func TestHandleUnknown(t *testing.T) {
	d := New(Config{}, &fakeWatcher{}, nil, quietLogger())
	if _, err := d.HandleCommand(context.Background(), "BANNER", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestDaemonRunOverSocket(t *testing.T) {
	dir := shortTempDir(t)
	cfg := Config{
		SocketPath: filepath.Join(dir, "wp.sock"),
		PIDFile:    filepath.Join(dir, "wp.pid"),
		HealthFile: filepath.Join(dir, "health.json"),
	}
	d := New(cfg, &fakeWatcher{snap: wifiSnapshot()}, nil, quietLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(context.Background()) }()

	client := NewIPCClient(cfg.SocketPath)
	var resp string
	deadline := time.Now().Add(2 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		var err error
		resp, err = client.SendCommand(ctx, "status text")
		cancel()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(resp, "Connected to Wi-Fi.") {
		t.Errorf("status text = %s", resp)
	}

	resp, err := client.SendCommand(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if ResponseError(resp) == nil {
		t.Errorf("unknown command response = %s, want error", resp)
	}

	pid, err := ReadPID(cfg.PIDFile)
	if err != nil || pid != os.Getpid() {
		t.Errorf("PID file = %d, %v", pid, err)
	}

	if _, err := client.SendCommand(context.Background(), "QUIT"); err != nil {
		t.Fatalf("QUIT failed: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit after QUIT")
	}

	if _, err := os.Stat(cfg.PIDFile); !os.IsNotExist(err) {
		t.Error("PID file not removed")
	}
	if _, err := os.Stat(cfg.SocketPath); !os.IsNotExist(err) {
		t.Error("socket not removed")
	}
	h, err := ReadHealthFile(cfg.HealthFile)
	if err != nil {
		t.Fatalf("ReadHealthFile failed: %v", err)
	}
	if h.Wifi != "wifi" || h.Observation == nil || h.Observation.Type != netstate.TypeWifi {
		t.Errorf("health file = %+v", h)
	}
}

func TestDaemonRunContextCancel(t *testing.T) {
	dir := shortTempDir(t)
	d := New(Config{SocketPath: filepath.Join(dir, "wp.sock")}, &fakeWatcher{}, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit after cancel")
	}
}

func TestPublishDoesNotBlock(t *testing.T) {
	d := New(Config{}, &fakeWatcher{}, nil, quietLogger())
	for i := 0; i < 5; i++ {
		d.Publish(watcher.Update{})
	}
}

func TestAcquirePID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "wp.pid")

	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID failed: %v", err)
	}
	// Re-acquiring our own PID file is allowed.
	if err := AcquirePID(path); err != nil {
		t.Fatalf("second AcquirePID failed: %v", err)
	}
	if err := ReleasePID(path); err != nil {
		t.Fatalf("ReleasePID failed: %v", err)
	}
	if err := ReleasePID(path); err != nil {
		t.Errorf("ReleasePID on missing file: %v", err)
	}
}

func TestAcquirePIDLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wp.pid")
	// PID 1 is always alive on Unix.
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AcquirePID(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("err = %v, want ErrAlreadyRunning", err)
	}
}

func TestAcquirePIDStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wp.pid")
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID over stale file failed: %v", err)
	}
	if pid, _ := ReadPID(path); pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestReadPIDGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wp.pid")
	os.WriteFile(path, []byte("not-a-pid"), 0o644)
	if _, err := ReadPID(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("own process should be alive")
	}
	if IsProcessAlive(0) || IsProcessAlive(-1) {
		t.Error("non-positive PIDs are never alive")
	}
	if IsProcessAlive(999999999) {
		t.Error("PID " + strconv.Itoa(999999999) + " should not exist")
	}
}

func TestHealthFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h", "health.json")
	in := &HealthStatus{PID: 42, Wifi: "not-wifi", Status: "No internet connection.", Transitions: 5}
	if err := WriteHealthFile(path, in); err != nil {
		t.Fatalf("WriteHealthFile failed: %v", err)
	}
	out, err := ReadHealthFile(path)
	if err != nil {
		t.Fatalf("ReadHealthFile failed: %v", err)
	}
	if out.PID != 42 || out.Wifi != "not-wifi" || out.Transitions != 5 || out.Status != in.Status {
		t.Errorf("round trip = %+v", out)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestResponseError(t *testing.T) {
	if err := ResponseError(`{"error":"boom"}`); err == nil || err.Error() != "boom" {
		t.Errorf("ResponseError = %v", err)
	}
	if err := ResponseError(`{"running":true}`); err != nil {
		t.Errorf("ResponseError = %v", err)
	}
	if err := ResponseError("not json"); err != nil {
		t.Errorf("ResponseError = %v", err)
	}
}
