package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/lixenwraith/tngame/config"
	"github.com/lixenwraith/tngame/scene"
	"github.com/lixenwraith/tngame/session"
	"github.com/lixenwraith/tngame/terminal"
)

// runChild renders the scene for a relay parent, or directly into a local terminal
// Under a relay the size comes from the environment and every frame ends with the sentinel
func runChild(ctx context.Context, cfg config.Config, in *os.File, out *os.File) error {
	sceneCfg, err := cfg.SceneConfig()
	if err != nil {
		return err
	}

	framed := true
	var size terminal.Size
	if v, ok := os.LookupEnv(session.SizeEnv); ok {
		if size, err = session.ParseSizeValue(v); err != nil {
			return err
		}
	} else {
		framed = false
		cols, rows, err := term.GetSize(int(out.Fd()))
		if err != nil {
			return fmt.Errorf("no %s and stdout is not a terminal: %w", session.SizeEnv, err)
		}
		size = terminal.Size{Rows: rows, Cols: cols}
		if term.IsTerminal(int(in.Fd())) {
			state, err := term.MakeRaw(int(in.Fd()))
			if err != nil {
				return err
			}
			defer term.Restore(int(in.Fd()), state)
		}
	}

	sc := scene.New(size, sceneCfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	return childLoop(ctx, sc, in, out, cfg.TickInterval, framed)
}

// childLoop ticks the scene and applies keystrokes until quit, input EOF or cancellation
func childLoop(ctx context.Context, sc *scene.Scene, in io.Reader, out io.Writer, tick time.Duration, framed bool) error {
	input := make(chan []byte)
	go func() {
		defer close(input)
		buf := make([]byte, 64)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case input <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	dec := terminal.NewDecoder()
	quit := false
	handle := func(ev terminal.Event) {
		if !quit {
			quit = sc.HandleInput(ev.Token())
		}
	}

	buf := append([]byte(nil), terminal.CursorHide...)
	buf = append(buf, terminal.ClearScreen...)
	defer func() {
		if !framed {
			out.Write(append(append([]byte(nil), terminal.SGR0...), terminal.CursorShow...))
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	last := time.Now()
	pendingTicks := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-input:
			if !ok {
				return nil
			}
			pendingTicks = 0
			dec.Feed(data, handle)
			if quit {
				return nil
			}
		case now := <-ticker.C:
			// A sequence held across two ticks is a lone ESC
			if dec.Pending() {
				pendingTicks++
				if pendingTicks >= 2 {
					dec.Flush(handle)
					pendingTicks = 0
					if quit {
						return nil
					}
				}
			}

			sc.Tick(now.Sub(last).Seconds())
			last = now
			buf = sc.Render(buf)
			if len(buf) == 0 {
				continue
			}
			buf = append(buf, terminal.CursorPark...)
			if framed {
				buf = append(buf, session.Sentinel...)
			}
			if _, err := out.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
}
