package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hako/durafmt"

	"github.com/lixenwraith/tngame/logging"
	"github.com/lixenwraith/tngame/network"
	"github.com/lixenwraith/tngame/terminal"
)

// Modes a Handler can run
const (
	ModeScene = "scene"
	ModeRelay = "relay"
)

// Handler serves each connection as a scene session or a relay
type Handler struct {
	mode      string
	cfg       Config
	spawner   Spawner
	log       *logging.Logger
	recorders []Recorder
}

// NewHandler creates a connection handler; spawner is required for relay mode
func NewHandler(mode string, cfg Config, spawner Spawner, lg *logging.Logger, recorders ...Recorder) (*Handler, error) {
	switch mode {
	case ModeScene:
	case ModeRelay:
		if spawner == nil {
			return nil, errors.New("relay mode needs a spawner")
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if lg == nil {
		lg = logging.Discard()
	}
	return &Handler{mode: mode, cfg: cfg, spawner: spawner, log: lg, recorders: recorders}, nil
}

// ServeConn implements network.Handler
func (h *Handler) ServeConn(ctx context.Context, conn network.Conn) {
	id := uuid.NewString()
	lg := h.log.With(fmt.Sprintf("[session %s] ", id[:8]))
	lg.Printf("connected from %s", remoteString(conn))

	var (
		sum Summary
		err error
	)
	if h.mode == ModeRelay {
		sum, err = NewRelay(id, conn, h.cfg, h.spawner, lg).Run(ctx)
	} else {
		sum, err = New(id, conn, h.cfg, lg).Run(ctx)
	}

	switch {
	case err == nil:
	case errors.Is(err, terminal.ErrHandshake):
		lg.Printf("handshake failed: %v", err)
	default:
		lg.Printf("session error: %v", err)
	}
	lg.Printf("closed after %s: %dx%d, %s sent, %d frames, reason %s",
		durafmt.Parse(sum.Duration()).LimitFirstN(2).String(),
		sum.Cols, sum.Rows,
		humanize.Bytes(uint64(sum.BytesOut)),
		sum.Frames,
		sum.Reason)

	for _, rec := range h.recorders {
		if rerr := rec.Record(sum); rerr != nil {
			lg.Printf("record summary: %v", rerr)
		}
	}
}
