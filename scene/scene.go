// Package scene composes the snow field and the actor into one frame per tick.
// A Scene is not safe for concurrent use; the owning session serializes access.
package scene

import (
	"math/rand"

	"github.com/lixenwraith/tngame/art"
	"github.com/lixenwraith/tngame/particle"
	"github.com/lixenwraith/tngame/terminal"
)

// Config describes what a scene shows
type Config struct {
	Snow       particle.Config
	Actor      *art.Art     // nil selects the default cat
	ActorColor terminal.RGB // used as given; black is a valid color
	Greeting   string       // optional speech bubble above the actor
}

// DefaultConfig returns the standard scene
func DefaultConfig() Config {
	return Config{
		Snow:       particle.DefaultConfig(),
		Actor:      art.Cat(),
		ActorColor: terminal.White,
	}
}

// Actor is the player-controlled art; only X changes after placement
type Actor struct {
	X, Y  int
	Art   *art.Art
	Color terminal.RGB
}

// Scene owns the frame, the field and the actor for a single session
type Scene struct {
	size   terminal.Size
	frame  *terminal.Frame
	field  *particle.Field
	actor  Actor
	bubble *art.Art
}

// New builds a scene for a fixed terminal size
func New(size terminal.Size, cfg Config, rng *rand.Rand) *Scene {
	if cfg.Actor == nil {
		cfg.Actor = art.Cat()
	}

	s := &Scene{
		size:  size,
		frame: terminal.NewFrame(size),
		field: particle.New(cfg.Snow, rng),
		actor: Actor{
			X:     (size.Cols - cfg.Actor.Width) / 2,
			Y:     size.Rows - cfg.Actor.Height,
			Art:   cfg.Actor,
			Color: cfg.ActorColor,
		},
	}
	if s.actor.X < 0 {
		s.actor.X = 0
	}
	if cfg.Greeting != "" {
		if b := art.Bubble(cfg.Greeting); b.Height > 0 {
			s.bubble = b
		}
	}

	bounds := particle.Bounds{Width: size.Cols, Height: size.Rows}
	s.field.Spawn(particle.Count(bounds, cfg.Snow.Density), bounds)
	return s
}

// Tick advances the field by dt seconds and paints the next frame
func (s *Scene) Tick(dt float64) {
	s.field.Advance(dt)
	s.field.Paint(s.frame)

	a := &s.actor
	if s.bubble != nil {
		bx := a.X + (a.Art.Width-s.bubble.Width)/2
		bx = min(bx, s.size.Cols-s.bubble.Width)
		bx = max(bx, 0)
		s.bubble.Paint(s.frame, bx, a.Y-s.bubble.Height, terminal.LightGray)
	}
	a.Art.Paint(s.frame, a.X, a.Y, a.Color)
}

// HandleInput applies one token and reports whether the session should end
func (s *Scene) HandleInput(tok terminal.Token) (quit bool) {
	switch tok {
	case terminal.TokenLeft:
		s.moveActor(-1)
	case terminal.TokenRight:
		s.moveActor(1)
	case terminal.TokenQuit:
		return true
	}
	return false
}

// moveActor shifts the actor horizontally, clamped to [0, cols-width]
func (s *Scene) moveActor(dx int) {
	maxX := max(s.size.Cols-s.actor.Art.Width, 0)
	x := s.actor.X + dx
	if x < 0 {
		x = 0
	}
	if x > maxX {
		x = maxX
	}
	s.actor.X = x
}

// Render appends the diff since the last render to dst
func (s *Scene) Render(dst []byte) []byte {
	return s.frame.RenderDiff(dst)
}

// Invalidate forces the next render to repaint the whole screen
func (s *Scene) Invalidate() {
	s.frame.Invalidate()
}

// Actor returns a copy of the actor state
func (s *Scene) Actor() Actor {
	return s.actor
}

// Size returns the scene dimensions
func (s *Scene) Size() terminal.Size {
	return s.size
}

// Frame exposes the frame for local renderers that read cells directly
func (s *Scene) Frame() *terminal.Frame {
	return s.frame
}

// Particles returns the field size
func (s *Scene) Particles() int {
	return s.field.Len()
}
