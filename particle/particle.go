// Package particle simulates the snowfall field behind the actor.
package particle

import (
	"math"
	"math/rand"

	"github.com/lixenwraith/tngame/terminal"
)

// Config holds the field tunables
type Config struct {
	Density float64 // Particles per cell
	Speed   float64 // Cells per second
	XRand   float64 // Horizontal drift factor, relative to Speed
	MinFall float64 // Lower bound of the fall speed factor, keeps YV strictly positive
	Glyph   rune
	Palette []terminal.RGB
}

// DefaultConfig returns the standard snow tuning
func DefaultConfig() Config {
	return Config{
		Density: 0.05,
		Speed:   8.0,
		XRand:   0.8,
		MinFall: 0.5,
		Glyph:   '*',
		Palette: []terminal.RGB{terminal.SnowPink, terminal.White, terminal.SnowBlue},
	}
}

// Bounds is the area particles live in, in cells
type Bounds struct {
	Width  int
	Height int
}

// Count returns the number of particles for the given density, round(w*h*density)
func Count(b Bounds, density float64) int {
	if b.Width <= 0 || b.Height <= 0 || density <= 0 {
		return 0
	}
	return int(math.Round(float64(b.Width*b.Height) * density))
}

// Particle is a single flake; position and velocity in cells and cells per second
type Particle struct {
	X, Y   float64
	XV, YV float64
	Color  terminal.RGB
}

// Field owns a batch of particles and their bounds
type Field struct {
	cfg       Config
	rng       *rand.Rand
	bounds    Bounds
	particles []Particle
}

// New creates an empty field; rng must not be shared across goroutines
func New(cfg Config, rng *rand.Rand) *Field {
	if cfg.Glyph == 0 {
		cfg.Glyph = '*'
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = DefaultConfig().Palette
	}
	if cfg.MinFall <= 0 || cfg.MinFall > 1 {
		cfg.MinFall = DefaultConfig().MinFall
	}
	return &Field{cfg: cfg, rng: rng}
}

// Spawn appends count particles at uniform integer positions within bounds
func (f *Field) Spawn(count int, bounds Bounds) {
	f.bounds = bounds
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return
	}
	for i := 0; i < count; i++ {
		p := Particle{
			X:     float64(f.rng.Intn(bounds.Width)),
			Y:     float64(f.rng.Intn(bounds.Height)),
			Color: f.cfg.Palette[f.rng.Intn(len(f.cfg.Palette))],
		}
		f.randomizeVelocity(&p)
		f.particles = append(f.particles, p)
	}
}

// randomizeVelocity draws XV in [-XRand, XRand)*Speed and YV in [MinFall, 1)*Speed
func (f *Field) randomizeVelocity(p *Particle) {
	p.XV = (f.rng.Float64()*2 - 1) * f.cfg.XRand * f.cfg.Speed
	p.YV = (f.cfg.MinFall + f.rng.Float64()*(1-f.cfg.MinFall)) * f.cfg.Speed
}

// Advance moves every particle by dt seconds
// Particles falling past the bottom restart at the top row with fresh velocity, keeping their column
func (f *Field) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	maxX := float64(f.bounds.Width - 1)
	if maxX < 1 {
		maxX = 1
	}
	h := float64(f.bounds.Height)

	for i := range f.particles {
		p := &f.particles[i]
		p.X += p.XV * dt
		p.Y += p.YV * dt

		if p.X < 1 {
			p.X = 1
		} else if p.X > maxX {
			p.X = maxX
		}

		if p.Y >= h {
			p.Y = 0
			f.randomizeVelocity(p)
		}
	}
}

// Paint draws particles in creation order so later ones win shared cells
func (f *Field) Paint(p terminal.Painter) {
	for i := range f.particles {
		pt := &f.particles[i]
		p.Paint(int(math.Round(pt.X)), int(math.Round(pt.Y)), f.cfg.Glyph, pt.Color)
	}
}

// Particles exposes the particle slice; callers must not retain it across Advance
func (f *Field) Particles() []Particle {
	return f.particles
}

// Len returns the particle count
func (f *Field) Len() int {
	return len(f.particles)
}

// Bounds returns the area passed to the last Spawn
func (f *Field) Bounds() Bounds {
	return f.bounds
}
