package session

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lixenwraith/tngame/network"
	"github.com/lixenwraith/tngame/terminal"
)

// Handshake asks the client for its size and parses the single reply
// Bytes received after the report terminator are returned as early input
func Handshake(conn network.Conn, timeout time.Duration) (terminal.Size, []byte, error) {
	deadline := time.Now().Add(timeout)
	conn.SetWriteDeadline(deadline)
	if _, err := conn.Write(terminal.SizeQuery); err != nil {
		return terminal.Size{}, nil, fmt.Errorf("%w: query: %w", terminal.ErrHandshake, err)
	}

	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, 0, terminal.MaxSizeReportLen)
	chunk := make([]byte, terminal.MaxSizeReportLen)
	for !terminal.SizeReportComplete(buf) {
		if len(buf) >= terminal.MaxSizeReportLen {
			return terminal.Size{}, nil, fmt.Errorf("%w: no terminator in %q", terminal.ErrHandshake, buf)
		}
		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil && !terminal.SizeReportComplete(buf) {
			return terminal.Size{}, nil, fmt.Errorf("%w: read: %w", terminal.ErrHandshake, err)
		}
	}

	end := bytes.IndexByte(buf, 't') + 1
	size, err := terminal.ParseSizeReport(buf[:end])
	if err != nil {
		return terminal.Size{}, nil, err
	}
	var rest []byte
	if end < len(buf) {
		rest = append(rest, buf[end:]...)
	}
	return size, rest, nil
}
