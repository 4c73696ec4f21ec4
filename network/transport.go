package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"golang.org/x/time/rate"

	"github.com/lixenwraith/tngame/logging"
)

// ErrNotRunning is returned by Addr before Start
var ErrNotRunning = errors.New("server not running")

// Server accepts TCP connections and runs a Handler for each
// Accepts are rate limited and the number of live sessions is bounded by MaxSessions
type Server struct {
	name     string
	config   *Config
	handler  Handler
	log      *logging.Logger
	deps     []string
	listener net.Listener

	limiter  *rate.Limiter
	sessions sizedwaitgroup.SizedWaitGroup
	active   atomic.Int64
	total    atomic.Uint64

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a stopped server
func NewServer(name string, cfg *Config, h Handler, lg *logging.Logger) *Server {
	if lg == nil {
		lg = logging.Discard()
	}
	return &Server{
		name:     name,
		config:   cfg,
		handler:  h,
		log:      lg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst),
		sessions: sizedwaitgroup.New(cfg.MaxSessions),
	}
}

// Name implements service.Service
func (s *Server) Name() string {
	return s.name
}

// Dependencies implements service.Service
func (s *Server) Dependencies() []string {
	return s.deps
}

// DependsOn declares services that must start before the listener opens
func (s *Server) DependsOn(names ...string) {
	s.deps = append(s.deps, names...)
}

// Start binds the listener and launches the accept loop
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil // Already running
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.running.Store(false)
		return err
	}
	return s.Serve(ln)
}

// Serve runs the accept loop on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.running.Store(true)
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Printf("%s listening on %s", s.name, ln.Addr())
	return nil
}

// acceptLoop holds a session slot before each Accept so a full server stops accepting
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
		if err := s.sessions.AddWithContext(s.ctx); err != nil {
			return
		}

		conn, err := s.listener.Accept()
		if err != nil {
			s.sessions.Done()
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Printf("%s accept: %v", s.name, err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		go s.serve(conn)
	}
}

// serve runs the handler for one connection; a panicking handler only loses its own connection
func (s *Server) serve(conn net.Conn) {
	s.active.Add(1)
	s.total.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("%s handler panic from %s: %v\n%s", s.name, conn.RemoteAddr(), r, debug.Stack())
			conn.Close()
		}
		s.active.Add(-1)
		s.sessions.Done()
	}()

	var c Conn = conn
	if s.config.Telnet {
		tc := NewTelnetConn(conn)
		if s.config.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if err := tc.Negotiate(); err != nil {
			s.log.Debugf("%s negotiate with %s: %v", s.name, conn.RemoteAddr(), err)
			conn.Close()
			return
		}
		c = tc
	}

	s.handler.ServeConn(s.ctx, c)
}

// Stop closes the listener, cancels live sessions and waits for them to finish
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.cancel()
	err := s.listener.Close()
	s.wg.Wait()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	timeout := s.config.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("%s: %d sessions still active after %v", s.name, s.active.Load(), timeout)
	}

	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr returns the bound address
func (s *Server) Addr() (net.Addr, error) {
	if !s.running.Load() || s.listener == nil {
		return nil, ErrNotRunning
	}
	return s.listener.Addr(), nil
}

// ActiveSessions returns the number of live connections
func (s *Server) ActiveSessions() int {
	return int(s.active.Load())
}

// TotalSessions returns the number of connections served since start
func (s *Server) TotalSessions() uint64 {
	return s.total.Load()
}

// IsRunning returns server state
func (s *Server) IsRunning() bool {
	return s.running.Load()
}
