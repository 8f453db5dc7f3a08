package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// IPC commands.
const (
	CmdStatus  = "STATUS"
	CmdHealth  = "HEALTH"
	CmdRefresh = "REFRESH"
	CmdQuit    = "QUIT"
)

// ErrUnknownCommand is returned for commands the daemon does not know.
var ErrUnknownCommand = errors.New("unknown command")

// IPCHandler processes incoming IPC commands.
type IPCHandler interface {
	HandleCommand(ctx context.Context, cmd string, args map[string]string) (string, error)
}

// IPCServer listens on a Unix domain socket for line-based text commands
// and returns JSON responses.
//
// Protocol:
//   - Client sends a single line: COMMAND [arg]
//   - Server responds with one JSON line.
//   - Supported commands: STATUS [text], HEALTH, REFRESH, QUIT
type IPCServer struct {
	socketPath string
	handler    IPCHandler
	logger     *slog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewIPCServer creates an IPC server that will listen on socketPath and
// dispatch commands to handler.
func NewIPCServer(socketPath string, handler IPCHandler, logger *slog.Logger) *IPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &IPCServer{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins listening on the socket, created with mode 0600. A stale
// socket file at the path is removed first.
func (s *IPCServer) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, cancels in-flight handlers, waits for them, and
// removes the socket file. It is safe to call more than once.
func (s *IPCServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *IPCServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Debug("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn reads one command line and writes one response line.
func (s *IPCServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(30 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return
	}

	cmd, args := parseIPCCommand(line)
	s.logger.Debug("ipc command", "cmd", cmd)

	response, err := s.handler.HandleCommand(s.ctx, cmd, args)
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(conn, "%s\n", data)
		return
	}

	// Responses travel as a single line.
	if compacted, err := compactJSON(response); err == nil {
		response = compacted
	}
	fmt.Fprintf(conn, "%s\n", response)
}

// parseIPCCommand splits a command line into the upper-cased command name
// and its arguments.
//
//	STATUS       -> cmd="STATUS", args={}
//	STATUS text  -> cmd="STATUS", args={format:text}
//	REFRESH      -> cmd="REFRESH", args={}
func parseIPCCommand(line string) (string, map[string]string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}

	cmd := strings.ToUpper(parts[0])
	args := make(map[string]string)

	switch cmd {
	case CmdStatus:
		if len(parts) >= 2 {
			args["format"] = strings.ToLower(parts[1])
		}
	}
	return cmd, args
}

// IPCClient talks to a running daemon.
type IPCClient struct {
	socketPath string
	dialer     net.Dialer
}

// NewIPCClient creates a client for the daemon at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// SendCommand sends cmd and returns the response line. Each call uses a new
// connection.
func (c *IPCClient) SendCommand(ctx context.Context, cmd string) (string, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return "", fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return "", errors.New("empty response from daemon")
	}
	return scanner.Text(), nil
}

// compactJSON removes whitespace from JSON to produce a single line.
func compactJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
