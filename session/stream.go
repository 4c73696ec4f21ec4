package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/tngame/asset"
	"github.com/lixenwraith/tngame/network"
	"github.com/lixenwraith/tngame/terminal"
)

// stream wraps the client connection with byte counters and cancellable reads
type stream struct {
	conn         network.Conn
	writeTimeout time.Duration

	bytesIn  atomic.Int64
	bytesOut atomic.Int64

	// Guards read deadlines so a deadline armed by the reader can never undo cancellation
	dmu       sync.Mutex
	cancelled bool
}

func newStream(conn network.Conn, writeTimeout time.Duration) *stream {
	return &stream{conn: conn, writeTimeout: writeTimeout}
}

func (s *stream) read(p []byte) (int, error) {
	n, err := s.conn.Read(p)
	s.bytesIn.Add(int64(n))
	return n, err
}

func (s *stream) write(p []byte) error {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	n, err := s.conn.Write(p)
	s.bytesOut.Add(int64(n))
	return err
}

// setReadDeadline is a no-op once cancelRead ran
func (s *stream) setReadDeadline(t time.Time) {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if !s.cancelled {
		s.conn.SetReadDeadline(t)
	}
}

// cancelRead unblocks a pending Read and keeps later reads from blocking
func (s *stream) cancelRead() {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	s.cancelled = true
	s.conn.SetReadDeadline(time.Now())
}

// farewell restores the client terminal; errors are irrelevant at this point
func (s *stream) farewell() {
	msg := make([]byte, 0, 64)
	msg = append(msg, asset.FarewellText...)
	msg = append(msg, terminal.SGR0...)
	msg = append(msg, terminal.CursorShow...)
	s.write(msg)
}
