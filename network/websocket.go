package network

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/remeh/sizedwaitgroup"

	"github.com/lixenwraith/tngame/logging"
)

// WSPath is where the gateway accepts upgrades
const WSPath = "/ws"

// WSConn presents a websocket as a byte stream
// Inbound text and binary messages are concatenated; each Write is one binary message
type WSConn struct {
	ws     *websocket.Conn
	reader io.Reader

	wmu       sync.Mutex
	closeOnce sync.Once
}

// NewWSConn wraps an upgraded websocket
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// Read returns bytes from the current message, moving to the next when it is drained
func (c *WSConn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			mt, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
				continue
			}
			c.reader = r
		}
		n, err := c.reader.Read(p)
		if errors.Is(err, io.EOF) {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write sends p as a single binary message
func (c *WSConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal close frame and closes the socket
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *WSConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *WSConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
func (c *WSConn) RemoteAddr() net.Addr               { return c.ws.RemoteAddr() }

// WSServer is a websocket gateway for browser terminals (xterm.js and similar)
// Sessions behind it are the same ones the telnet listener runs
type WSServer struct {
	name     string
	config   *Config
	handler  Handler
	log      *logging.Logger
	deps     []string
	upgrader websocket.Upgrader

	httpSrv  *http.Server
	listener net.Listener
	sessions sizedwaitgroup.SizedWaitGroup
	active   atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewWSServer creates a stopped gateway
func NewWSServer(name string, cfg *Config, h Handler, lg *logging.Logger) *WSServer {
	if lg == nil {
		lg = logging.Discard()
	}
	s := &WSServer{
		name:    name,
		config:  cfg,
		handler: h,
		log:     lg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: sizedwaitgroup.New(cfg.MaxSessions),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(WSPath, s.handleUpgrade)
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Name implements service.Service
func (s *WSServer) Name() string {
	return s.name
}

// Dependencies implements service.Service
func (s *WSServer) Dependencies() []string {
	return s.deps
}

// DependsOn declares services that must start first
func (s *WSServer) DependsOn(names ...string) {
	s.deps = append(s.deps, names...)
}

// Start binds and serves HTTP in the background
func (s *WSServer) Start() error {
	if s.running.Load() {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the gateway on an existing listener
func (s *WSServer) Serve(ln net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Printf("%s serve: %v", s.name, err)
		}
	}()

	s.log.Printf("%s listening on %s%s", s.name, ln.Addr(), WSPath)
	return nil
}

// handleUpgrade runs one session on the upgraded connection, inside the HTTP handler goroutine
func (s *WSServer) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	if err := s.sessions.AddWithContext(r.Context()); err != nil {
		return
	}
	defer s.sessions.Done()

	ws, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Debugf("%s upgrade from %s: %v", s.name, r.RemoteAddr, err)
		return
	}
	conn := NewWSConn(ws)

	s.active.Add(1)
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Printf("%s handler panic from %s: %v\n%s", s.name, r.RemoteAddr, rec, debug.Stack())
			conn.Close()
		}
		s.active.Add(-1)
	}()

	s.handler.ServeConn(s.ctx, conn)
}

// Stop cancels sessions and shuts the HTTP server down
func (s *WSServer) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()

	timeout := s.config.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; wait for them separately
	err := s.httpSrv.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	s.wg.Wait()
	return err
}

// Addr returns the bound address
func (s *WSServer) Addr() (net.Addr, error) {
	if !s.running.Load() || s.listener == nil {
		return nil, ErrNotRunning
	}
	return s.listener.Addr(), nil
}

// ActiveSessions returns the number of live websocket sessions
func (s *WSServer) ActiveSessions() int {
	return int(s.active.Load())
}
