package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tngame/config"
	"github.com/lixenwraith/tngame/scene"
	"github.com/lixenwraith/tngame/terminal"
)

// runPreview draws the scene through tcell in the local terminal, following resizes
func runPreview(ctx context.Context, cfg config.Config) error {
	sceneCfg, err := cfg.SceneConfig()
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.HideCursor()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	newScene := func() *scene.Scene {
		cols, rows := screen.Size()
		return scene.New(terminal.Size{Rows: rows, Cols: cols}, sceneCfg, rng)
	}
	sc := newScene()

	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return // Screen finalized
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	last := time.Now()
	var discard []byte

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				sc = newScene()
				screen.Sync()
			case *tcell.EventKey:
				if sc.HandleInput(previewToken(ev)) {
					return nil
				}
			}
		case now := <-ticker.C:
			sc.Tick(now.Sub(last).Seconds())
			last = now
			drawFrame(screen, sc.Frame())
			discard = sc.Render(discard[:0])
			screen.Show()
		}
	}
}

// previewToken maps tcell keys onto the same tokens the byte decoder produces
func previewToken(ev *tcell.EventKey) terminal.Token {
	switch ev.Key() {
	case tcell.KeyLeft:
		return terminal.TokenLeft
	case tcell.KeyRight:
		return terminal.TokenRight
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return terminal.TokenQuit
	case tcell.KeyRune:
		return terminal.Event{Key: terminal.KeyRune, Rune: ev.Rune()}.Token()
	}
	return terminal.TokenUnknown
}

// drawFrame copies pending cells into the tcell back buffer
func drawFrame(screen tcell.Screen, f *terminal.Frame) {
	size := f.Size()
	for y := 0; y < size.Rows; y++ {
		for x := 0; x < size.Cols; x++ {
			c, _ := f.Cell(x, y)
			r := c.Rune
			if r == 0 {
				r = ' '
			}
			style := tcell.StyleDefault
			if c.Colored() {
				style = style.Foreground(tcell.NewRGBColor(int32(c.Fg.R), int32(c.Fg.G), int32(c.Fg.B)))
			}
			screen.SetContent(x, y, r, nil, style)
		}
	}
}
