package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/tngame/logging"
	"github.com/lixenwraith/tngame/network"
)

// errChildExited ends the relay when the child closes its stdout
var errChildExited = errors.New("child exited")

// relayReadSize matches the keystroke granularity children expect
const relayReadSize = 3

// Relay pipes a client to a child process: keystrokes to stdin, sentinel-framed stdout back
type Relay struct {
	id      string
	cfg     Config
	spawner Spawner
	log     *logging.Logger
	io      *stream

	state  atomic.Int32
	frames atomic.Int64
}

// NewRelay creates a relay over conn
func NewRelay(id string, conn network.Conn, cfg Config, spawner Spawner, lg *logging.Logger) *Relay {
	if lg == nil {
		lg = logging.Discard()
	}
	return &Relay{
		id:      id,
		cfg:     cfg,
		spawner: spawner,
		log:     lg,
		io:      newStream(conn, cfg.WriteTimeout),
	}
}

// State returns the current lifecycle state
func (r *Relay) State() State {
	return State(r.state.Load())
}

func (r *Relay) setState(st State) {
	r.state.Store(int32(st))
	r.log.Debugf("state %s", st)
}

// Run negotiates, spawns the child and pumps until either side ends
// The child is always killed and reaped before the connection is closed
func (r *Relay) Run(ctx context.Context) (sum Summary, err error) {
	sum = Summary{
		ID:     r.id,
		Mode:   "relay",
		Remote: remoteString(r.io.conn),
		Start:  time.Now(),
	}
	defer func() {
		sum.End = time.Now()
		sum.BytesIn = r.io.bytesIn.Load()
		sum.BytesOut = r.io.bytesOut.Load()
		sum.Frames = r.frames.Load()
	}()

	r.setState(StateHandshake)
	size, early, err := Handshake(r.io.conn, r.cfg.HandshakeTimeout)
	if err != nil {
		r.io.conn.Close()
		r.setState(StateClosed)
		sum.Reason = ReasonHandshake
		sum.Error = err.Error()
		return sum, err
	}
	sum.Rows, sum.Cols = size.Rows, size.Cols

	proc, err := r.spawner.Spawn(ctx, size)
	if err != nil {
		r.setState(StateClosing)
		r.io.farewell()
		r.io.conn.Close()
		r.setState(StateClosed)
		sum.Reason = ReasonSpawn
		sum.Error = err.Error()
		return sum, fmt.Errorf("spawn: %w", err)
	}
	r.log.Debugf("child started for %s", SizeValue(size))

	r.setState(StateRunning)
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() {
		r.io.cancelRead()
		proc.Kill()
	})
	defer stop()

	g.Go(func() error { return r.pumpOutput(gctx, proc) })
	g.Go(func() error { return r.pumpInput(gctx, proc, early) })
	err = g.Wait()

	r.setState(StateClosing)
	proc.Kill()
	proc.Stdin().Close()
	if werr := proc.Wait(); werr != nil {
		r.log.Debugf("child wait: %v", werr)
	}

	sum.Reason, err = classify(err)
	if err != nil {
		sum.Error = err.Error()
	}
	r.io.farewell()
	r.io.conn.Close()
	r.setState(StateClosed)
	return sum, err
}

// pumpOutput forwards each child frame, sentinel stripped, as a single write
func (r *Relay) pumpOutput(ctx context.Context, proc Process) error {
	fr := NewFrameReader(proc.Stdout(), 64*1024)
	for {
		frame, err := fr.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil // Killed by cancellation
			}
			// Truncated final chunk is dropped: the child died mid-frame
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return errChildExited
			}
			return fmt.Errorf("child stdout: %w", err)
		}
		if len(frame) == 0 {
			continue
		}
		if err := r.io.write(frame); err != nil {
			return err
		}
		r.frames.Add(1)
	}
}

// pumpInput forwards client bytes to child stdin in small reads
func (r *Relay) pumpInput(ctx context.Context, proc Process, early []byte) error {
	stdin := proc.Stdin()
	if len(early) > 0 {
		if _, err := stdin.Write(early); err != nil {
			return errChildExited
		}
	}

	buf := make([]byte, relayReadSize)
	for {
		n, err := r.io.read(buf)
		if n > 0 {
			if _, werr := stdin.Write(buf[:n]); werr != nil {
				return errChildExited
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
