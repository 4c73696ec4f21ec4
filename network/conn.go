package network

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the byte stream a session runs over
// net.Conn satisfies it, as do TelnetConn and WSConn
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Handler serves one connection; ctx is cancelled when the server stops
// The handler owns conn and must close it before returning
type Handler interface {
	ServeConn(ctx context.Context, conn Conn)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, conn Conn)

// ServeConn calls f
func (f HandlerFunc) ServeConn(ctx context.Context, conn Conn) {
	f(ctx, conn)
}

// IsClosed reports whether err is a normal end of the transport: EOF, closed connection,
// an expired deadline, peer reset or a websocket close frame
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
