// Package session runs one client connection: either the animated scene or a relayed child process.
package session

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/tngame/logging"
	"github.com/lixenwraith/tngame/network"
	"github.com/lixenwraith/tngame/scene"
	"github.com/lixenwraith/tngame/terminal"
)

// State is the session lifecycle position
type State int32

const (
	StateHandshake State = iota
	StateRunning
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateHandshake: "handshake",
	StateRunning:   "running",
	StateClosing:   "closing",
	StateClosed:    "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// errQuit ends the activity group when the client asks to leave
var errQuit = errors.New("quit requested")

// Config holds per-session timing and content
type Config struct {
	TickInterval     time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Scene            scene.Config
	Seed             int64 // 0 seeds from the clock
}

// DefaultConfig returns the standard timing with the default scene
func DefaultConfig() Config {
	return Config{
		TickInterval:     50 * time.Millisecond,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		Scene:            scene.DefaultConfig(),
	}
}

// Session drives the scene for one client
// The render and input activities share the scene under mu
type Session struct {
	id  string
	cfg Config
	log *logging.Logger
	io  *stream

	state  atomic.Int32
	frames atomic.Int64

	mu      sync.Mutex
	scene   *scene.Scene
	decoder *terminal.Decoder

	renderBuf []byte
}

// New creates a session over conn
func New(id string, conn network.Conn, cfg Config, lg *logging.Logger) *Session {
	if lg == nil {
		lg = logging.Discard()
	}
	return &Session{
		id:      id,
		cfg:     cfg,
		log:     lg,
		io:      newStream(conn, cfg.WriteTimeout),
		decoder: terminal.NewDecoder(),
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.log.Debugf("state %s", st)
}

// Run negotiates, plays until quit, transport loss or ctx cancellation, then closes the connection
// The returned error is nil for a quit, a closed transport or cancellation
func (s *Session) Run(ctx context.Context) (sum Summary, err error) {
	sum = Summary{
		ID:     s.id,
		Mode:   "scene",
		Remote: remoteString(s.io.conn),
		Start:  time.Now(),
	}
	defer func() {
		sum.End = time.Now()
		sum.BytesIn = s.io.bytesIn.Load()
		sum.BytesOut = s.io.bytesOut.Load()
		sum.Frames = s.frames.Load()
	}()

	s.setState(StateHandshake)
	size, early, err := Handshake(s.io.conn, s.cfg.HandshakeTimeout)
	if err != nil {
		s.io.conn.Close()
		s.setState(StateClosed)
		sum.Reason = ReasonHandshake
		sum.Error = err.Error()
		return sum, err
	}
	sum.Rows, sum.Cols = size.Rows, size.Cols
	s.log.Debugf("terminal %dx%d", size.Cols, size.Rows)

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.scene = scene.New(size, s.cfg.Scene, rand.New(rand.NewSource(seed)))
	s.renderBuf = make([]byte, 0, size.Area()*24)

	prelude := append(append([]byte(nil), terminal.CursorHide...), terminal.ClearScreen...)
	if err := s.io.write(prelude); err != nil {
		return s.close(sum, err)
	}

	s.setState(StateRunning)
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, s.io.cancelRead)
	defer stop()

	g.Go(func() error { return s.render(gctx) })
	g.Go(func() error { return s.input(gctx, early) })

	return s.close(sum, g.Wait())
}

// close classifies the end, restores the client terminal and releases the connection
func (s *Session) close(sum Summary, err error) (Summary, error) {
	s.setState(StateClosing)
	sum.Reason, err = classify(err)
	if err != nil {
		sum.Error = err.Error()
	}
	s.io.farewell()
	s.io.conn.Close()
	s.setState(StateClosed)
	return sum, err
}

// render paints and flushes one frame per tick
func (s *Session) render(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			s.mu.Lock()
			s.scene.Tick(dt)
			buf := s.scene.Render(s.renderBuf[:0])
			s.mu.Unlock()

			if len(buf) == 0 {
				continue
			}
			buf = append(buf, terminal.CursorPark...)
			s.renderBuf = buf
			if err := s.io.write(buf); err != nil {
				return err
			}
			s.frames.Add(1)
		}
	}
}

// input decodes keystrokes and applies them in arrival order
func (s *Session) input(ctx context.Context, early []byte) error {
	quit := false
	handle := func(ev terminal.Event) {
		if quit {
			return
		}
		tok := ev.Token()
		if tok == terminal.TokenUnknown {
			s.log.Debugf("unknown input key=%d rune=%q", ev.Key, ev.Rune)
			return
		}
		s.mu.Lock()
		quit = s.scene.HandleInput(tok)
		s.mu.Unlock()
	}

	if len(early) > 0 {
		s.decoder.Feed(early, handle)
		if quit {
			return errQuit
		}
	}

	buf := make([]byte, 256)
	armed := false
	for {
		// A held ESC is either a lone keypress or the start of a sequence still in flight
		if s.decoder.Pending() != armed {
			armed = s.decoder.Pending()
			if armed {
				s.io.setReadDeadline(time.Now().Add(terminal.EscapeTimeout))
			} else {
				s.io.setReadDeadline(time.Time{})
			}
		}

		n, err := s.io.read(buf)
		if n > 0 {
			s.decoder.Feed(buf[:n], handle)
			if quit {
				return errQuit
			}
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if armed && errors.Is(err, os.ErrDeadlineExceeded) {
			s.decoder.Flush(handle)
			if quit {
				return errQuit
			}
			continue
		}
		return err
	}
}

// classify maps the activity group result to a reason, keeping only unexpected errors
func classify(err error) (string, error) {
	switch {
	case err == nil:
		return ReasonShutdown, nil
	case errors.Is(err, errQuit):
		return ReasonQuit, nil
	case errors.Is(err, errChildExited):
		return ReasonChildExit, nil
	case errors.Is(err, context.Canceled):
		return ReasonShutdown, nil
	case network.IsClosed(err):
		return ReasonClosed, nil
	}
	return ReasonError, err
}

func remoteString(conn network.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
