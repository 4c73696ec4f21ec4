package particle

import (
	"math/rand"
	"testing"

	"github.com/lixenwraith/tngame/terminal"
)

func newField(seed int64) *Field {
	return New(DefaultConfig(), rand.New(rand.NewSource(seed)))
}

func TestCount(t *testing.T) {
	tests := []struct {
		bounds  Bounds
		density float64
		want    int
	}{
		{Bounds{80, 24}, 0.05, 96},
		{Bounds{10, 10}, 0.05, 5},
		{Bounds{3, 3}, 0.05, 0},
		{Bounds{0, 24}, 0.05, 0},
		{Bounds{80, 24}, 0, 0},
	}
	for _, tt := range tests {
		if got := Count(tt.bounds, tt.density); got != tt.want {
			t.Errorf("Count(%+v, %v): expected %d, got %d", tt.bounds, tt.density, tt.want, got)
		}
	}
}

func TestSpawn_WithinBounds(t *testing.T) {
	f := newField(1)
	b := Bounds{Width: 80, Height: 24}
	f.Spawn(Count(b, 0.05), b)

	if f.Len() != 96 {
		t.Fatalf("Expected 96 particles, got %d", f.Len())
	}
	cfg := DefaultConfig()
	for i, p := range f.Particles() {
		if p.X < 0 || p.X >= 80 || p.Y < 0 || p.Y >= 24 {
			t.Errorf("Particle %d out of bounds: (%v,%v)", i, p.X, p.Y)
		}
		if p.YV <= 0 || p.YV > cfg.Speed {
			t.Errorf("Particle %d fall speed out of range: %v", i, p.YV)
		}
		limit := cfg.XRand * cfg.Speed
		if p.XV < -limit || p.XV > limit {
			t.Errorf("Particle %d drift out of range: %v", i, p.XV)
		}
	}
}

func TestAdvance_ZeroDtIsNoop(t *testing.T) {
	f := newField(2)
	f.Spawn(50, Bounds{40, 20})
	before := append([]Particle(nil), f.Particles()...)

	f.Advance(0)
	f.Advance(-1)

	for i, p := range f.Particles() {
		if p != before[i] {
			t.Errorf("Particle %d moved: expected %+v, got %+v", i, before[i], p)
		}
	}
}

func TestAdvance_RespawnAtTop(t *testing.T) {
	f := newField(3)
	f.Spawn(1, Bounds{20, 10})
	p := &f.particles[0]
	p.X, p.Y = 5, 9.9
	p.XV, p.YV = 0, 8

	f.Advance(0.1)

	got := f.Particles()[0]
	if got.Y != 0 {
		t.Errorf("Expected respawn at Y=0, got %v", got.Y)
	}
	if got.X != 5 {
		t.Errorf("Expected X kept at 5, got %v", got.X)
	}
	cfg := DefaultConfig()
	if got.YV < cfg.MinFall*cfg.Speed || got.YV >= cfg.Speed {
		t.Errorf("Expected fresh fall speed in range, got %v", got.YV)
	}
}

func TestAdvance_ClampsX(t *testing.T) {
	f := newField(4)
	f.Spawn(2, Bounds{20, 10})
	f.particles[0] = Particle{X: 1.5, Y: 0, XV: -100, YV: 1}
	f.particles[1] = Particle{X: 18.5, Y: 0, XV: 100, YV: 1}

	f.Advance(0.5)

	if x := f.Particles()[0].X; x != 1 {
		t.Errorf("Expected left clamp at 1, got %v", x)
	}
	if x := f.Particles()[1].X; x != 19 {
		t.Errorf("Expected right clamp at 19, got %v", x)
	}
}

func TestAdvance_StaysInBounds(t *testing.T) {
	f := newField(5)
	b := Bounds{30, 12}
	f.Spawn(Count(b, 0.2), b)
	for step := 0; step < 500; step++ {
		f.Advance(0.05)
		for i, p := range f.Particles() {
			if p.X < 1 || p.X > 29 || p.Y < 0 || p.Y >= 12 {
				t.Fatalf("Step %d: particle %d escaped: (%v,%v)", step, i, p.X, p.Y)
			}
		}
	}
}

func TestPaint_LaterWins(t *testing.T) {
	f := newField(6)
	f.Spawn(2, Bounds{10, 10})
	f.particles[0] = Particle{X: 3, Y: 3, Color: terminal.SnowPink}
	f.particles[1] = Particle{X: 3.2, Y: 2.9, Color: terminal.SnowBlue}

	frame := terminal.NewFrame(terminal.Size{Rows: 10, Cols: 10})
	f.Paint(frame)

	c, _ := frame.Cell(3, 3)
	if c.Rune != '*' || c.Fg != terminal.SnowBlue {
		t.Errorf("Expected blue '*' at (3,3), got %+v", c)
	}
}

func TestDeterministic(t *testing.T) {
	a, b := newField(42), newField(42)
	a.Spawn(20, Bounds{40, 20})
	b.Spawn(20, Bounds{40, 20})
	a.Advance(0.3)
	b.Advance(0.3)
	for i := range a.Particles() {
		if a.Particles()[i] != b.Particles()[i] {
			t.Fatalf("Expected identical fields from same seed, differ at %d", i)
		}
	}
}
