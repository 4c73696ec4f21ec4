package session

import (
	"bytes"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lixenwraith/tngame/terminal"
)

// testClient plays the terminal side of a net.Pipe, draining everything the server writes
type testClient struct {
	conn net.Conn

	mu   sync.Mutex
	out  bytes.Buffer
	done chan struct{}
}

func newTestClient(conn net.Conn) *testClient {
	c := &testClient{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			c.mu.Lock()
			c.out.Write(buf[:n])
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
	return c
}

func (c *testClient) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func (c *testClient) waitFor(t *testing.T, sub string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(c.output(), sub) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %q in output %q", sub, truncate(c.output()))
}

// waitClosed waits until the server side closed the pipe
func (c *testClient) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for server to close")
	}
}

func (c *testClient) send(t *testing.T, s string) {
	t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.conn.Write([]byte(s)); err != nil {
		t.Fatalf("Failed to send %q: %v", s, err)
	}
}

// handshake answers the size query
func (c *testClient) handshake(t *testing.T, rows, cols int) {
	t.Helper()
	c.waitFor(t, string(terminal.SizeQuery))
	c.send(t, sizeReport(rows, cols))
}

func sizeReport(rows, cols int) string {
	return "\x1b[8;" + strconv.Itoa(rows) + ";" + strconv.Itoa(cols) + "t"
}

func truncate(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

type result struct {
	sum Summary
	err error
}

func waitResult(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for session to end")
	}
	return result{}
}
