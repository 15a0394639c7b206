package docker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/moby/moby/client"

	"github.com/botdock/botdock/internal"
)

// timestampPrefix matches the RFC3339Nano timestamp the engine prepends to
// log lines when timestamps are enabled, plus the whitespace after it.
var timestampPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z\s+`)

// StreamLogs attaches to the container's combined stdout/stderr stream in
// follow mode, starting from the last internal.DefaultLogTail buffered
// lines. onLine is invoked once per non-blank decoded line, in stream
// order. onError is invoked at most once, on stream-level failure, after
// which no further onLine calls occur.
//
// The returned cancel function is idempotent, safe to call before the
// stream has attached, and releases the engine connection. After cancel
// returns no further callbacks are delivered, so it must not be called
// from inside onLine or onError.
func (c Client) StreamLogs(ctx context.Context, containerID string, onLine func(string), onError func(error)) func() {
	streamCtx, stop := context.WithCancel(ctx)
	s := &logStream{
		onLine:  onLine,
		onError: onError,
		stop:    stop,
	}

	go s.run(streamCtx, c.client, containerID)

	return s.cancel
}

type logStream struct {
	onLine  func(string)
	onError func(error)
	stop    context.CancelFunc

	mu       sync.Mutex
	canceled bool
	body     io.Closer

	// deliverMu is held while invoking callbacks; cancel acquires it so
	// that an in-flight delivery finishes before cancel returns.
	deliverMu sync.Mutex
	errOnce   sync.Once
}

func (s *logStream) cancel() {
	s.mu.Lock()
	s.canceled = true
	body := s.body
	s.body = nil
	s.mu.Unlock()

	s.stop()
	if body != nil {
		body.Close()
	}

	// Wait out any delivery already in progress.
	s.deliverMu.Lock()
	s.deliverMu.Unlock() //nolint:staticcheck // barrier, not a critical section
}

func (s *logStream) run(ctx context.Context, dc DockerClient, containerID string) {
	response, err := dc.ContainerLogs(ctx, containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       strconv.Itoa(internal.DefaultLogTail),
	})
	if err != nil {
		s.fail(fmt.Errorf("failed to open log stream for container %q: %w", containerID, err))
		return
	}

	s.mu.Lock()
	if s.canceled {
		// Cancellation raced the attach; release the connection and
		// deliver nothing.
		s.mu.Unlock()
		response.Close()
		return
	}
	s.body = response
	s.mu.Unlock()

	scanner := bufio.NewScanner(response)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := DecodeLogLine(scanner.Bytes())
		if line == "" {
			continue
		}
		if !s.deliver(line) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.fail(fmt.Errorf("log stream for container %q failed: %w", containerID, err))
	}
}

// deliver invokes onLine unless the stream has been canceled. It reports
// whether delivery is still active.
func (s *logStream) deliver(line string) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()
	if canceled {
		return false
	}

	s.onLine(line)
	return true
}

func (s *logStream) fail(err error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()
	if canceled {
		return
	}

	s.errOnce.Do(func() {
		s.onError(err)
	})
}

// DecodeLogLine strips the engine's 8-byte stream multiplexing header and
// any leading timestamp from a raw log line. It returns the empty string
// for lines that are blank after stripping.
//
// Non-TTY containers prefix every frame with an 8-byte header: one stream
// byte (0, 1, or 2), three zero bytes, and a big-endian payload length.
func DecodeLogLine(raw []byte) string {
	if len(raw) >= 8 && raw[0] <= 2 && raw[1] == 0 && raw[2] == 0 && raw[3] == 0 {
		raw = raw[8:]
	}

	line := timestampPrefix.ReplaceAllString(string(raw), "")
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return ""
	}
	return line
}
