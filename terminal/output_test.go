package terminal

import (
	"bytes"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// screen replays diff output onto a grid, understanding only what RenderDiff emits
type screen struct {
	cells         []Cell
	width, height int
}

func newScreen(w, h int) *screen {
	return &screen{cells: make([]Cell, w*h), width: w, height: h}
}

func (s *screen) apply(t *testing.T, out []byte) {
	t.Helper()
	x, y := 0, 0
	var fg RGB
	var attrs Attr
	for len(out) > 0 {
		if out[0] == 0x1b {
			end := bytes.IndexAny(out, "Hm")
			if end < 0 || out[1] != '[' {
				t.Fatalf("Unexpected escape %q", out)
			}
			params := strings.Split(string(out[2:end]), ";")
			switch out[end] {
			case 'H':
				row, _ := strconv.Atoi(params[0])
				col, _ := strconv.Atoi(params[1])
				x, y = col-1, row-1
			case 'm':
				if len(params) == 1 && params[0] == "0" {
					fg, attrs = RGB{}, AttrNone
				} else if len(params) == 5 && params[0] == "38" && params[1] == "2" {
					r, _ := strconv.Atoi(params[2])
					g, _ := strconv.Atoi(params[3])
					b, _ := strconv.Atoi(params[4])
					fg, attrs = RGB{uint8(r), uint8(g), uint8(b)}, AttrFg
				} else {
					t.Fatalf("Unexpected SGR %q", out[:end+1])
				}
			}
			out = out[end+1:]
			continue
		}
		r, size := utf8.DecodeRune(out)
		out = out[size:]
		if r == ' ' {
			r = 0
		}
		if x < s.width && y < s.height {
			s.cells[y*s.width+x] = Cell{Rune: r, Fg: fg, Attrs: attrs}
		}
		x += max(runewidth.RuneWidth(r), 1)
	}
}

func (s *screen) at(x, y int) Cell {
	c := s.cells[y*s.width+x]
	if !c.Colored() {
		c.Fg = RGB{}
	}
	return c
}

func TestRenderDiff_EmptyFrameEmitsNothing(t *testing.T) {
	f := NewFrame(Size{Rows: 24, Cols: 80})
	out := f.RenderDiff(nil)
	if len(out) != 0 {
		t.Errorf("Expected empty diff for blank frame, got %q", out)
	}
}

func TestRenderDiff_SingleCell(t *testing.T) {
	f := NewFrame(Size{Rows: 5, Cols: 10})
	f.Paint(3, 2, '*', RGB{1, 2, 3})

	out := string(f.RenderDiff(nil))
	want := "\x1b[3;4H\x1b[38;2;1;2;3m*\x1b[0m"
	if out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}

func TestRenderDiff_Idempotent(t *testing.T) {
	f := NewFrame(Size{Rows: 6, Cols: 12})
	f.Paint(0, 0, 'a', White)
	f.Paint(11, 5, 'z', SnowBlue)
	if out := f.RenderDiff(nil); len(out) == 0 {
		t.Fatal("Expected first diff to be non-empty")
	}

	// Repaint identical content: nothing changed on screen
	f.Paint(0, 0, 'a', White)
	f.Paint(11, 5, 'z', SnowBlue)
	if out := f.RenderDiff(nil); len(out) != 0 {
		t.Errorf("Expected identical repaint to emit nothing, got %q", out)
	}

	// No paints at all: the two cells must be erased
	out := f.RenderDiff(nil)
	if len(out) == 0 {
		t.Fatal("Expected erase diff after empty tick")
	}
	if out := f.RenderDiff(nil); len(out) != 0 {
		t.Errorf("Expected second consecutive empty tick to emit nothing, got %q", out)
	}
}

func TestRenderDiff_ColorCoalescing(t *testing.T) {
	f := NewFrame(Size{Rows: 1, Cols: 6})
	for x := 0; x < 3; x++ {
		f.Paint(x, 0, 'a', SnowPink)
	}
	f.Paint(3, 0, 'b', White)
	f.Paint(4, 0, 'c', White)

	out := string(f.RenderDiff(nil))
	if n := strings.Count(out, "\x1b[38;2;"); n != 2 {
		t.Errorf("Expected 2 color sequences, got %d in %q", n, out)
	}
	// One contiguous run needs a single cursor position
	if n := strings.Count(out, "H"); n != 1 {
		t.Errorf("Expected 1 cursor position, got %d in %q", n, out)
	}
}

func TestRenderDiff_ColorOnlyChangeReprintsGlyph(t *testing.T) {
	f := NewFrame(Size{Rows: 2, Cols: 2})
	f.Paint(1, 1, '#', White)
	f.RenderDiff(nil)

	f.Paint(1, 1, '#', SnowPink)
	out := string(f.RenderDiff(nil))
	want := "\x1b[2;2H\x1b[38;2;246;170;183m#\x1b[0m"
	if out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}

func TestRenderDiff_UncoloredAfterColored(t *testing.T) {
	f := NewFrame(Size{Rows: 1, Cols: 3})
	f.Paint(0, 0, 'x', White)
	f.PaintPlain(1, 0, 'y')

	out := string(f.RenderDiff(nil))
	want := "\x1b[1;1H\x1b[38;2;255;255;255mx\x1b[0my\x1b[0m"
	if out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}

func TestRenderDiff_RoundTrip(t *testing.T) {
	const w, h = 40, 12
	rng := rand.New(rand.NewSource(7))
	palette := []RGB{White, SnowPink, SnowBlue}
	glyphs := []rune{'*', '.', 'o', '·', '/', '\\'}

	f := NewFrame(Size{Rows: h, Cols: w})
	ref := newScreen(w, h)

	for tick := 0; tick < 20; tick++ {
		want := make([]Cell, w*h)
		for i := 0; i < 120; i++ {
			x, y := rng.Intn(w), rng.Intn(h)
			g := glyphs[rng.Intn(len(glyphs))]
			if rng.Intn(5) == 0 {
				f.PaintPlain(x, y, g)
				want[y*w+x] = Cell{Rune: g}
			} else {
				c := palette[rng.Intn(len(palette))]
				f.Paint(x, y, g, c)
				want[y*w+x] = Cell{Rune: g, Fg: c, Attrs: AttrFg}
			}
		}

		ref.apply(t, f.RenderDiff(nil))

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if got := ref.at(x, y); got != want[y*w+x] {
					t.Fatalf("Tick %d: cell (%d,%d) expected %+v, got %+v", tick, x, y, want[y*w+x], got)
				}
				if shown, _ := f.Displayed(x, y); shown != want[y*w+x] {
					t.Fatalf("Tick %d: displayed buffer (%d,%d) expected %+v, got %+v", tick, x, y, want[y*w+x], shown)
				}
				if pending, _ := f.Cell(x, y); pending != Blank {
					t.Fatalf("Tick %d: current buffer not cleared at (%d,%d)", tick, x, y)
				}
			}
		}
	}
}

func TestPaint_OutOfBoundsIgnored(t *testing.T) {
	f := NewFrame(Size{Rows: 3, Cols: 3})
	f.Paint(-1, 0, 'x', White)
	f.Paint(0, -1, 'x', White)
	f.Paint(3, 0, 'x', White)
	f.PaintPlain(0, 3, 'x')

	if out := f.RenderDiff(nil); len(out) != 0 {
		t.Errorf("Expected clipped writes to emit nothing, got %q", out)
	}
}

func TestInvalidate_RepaintsEverything(t *testing.T) {
	f := NewFrame(Size{Rows: 2, Cols: 3})
	f.Invalidate()
	out := string(f.RenderDiff(nil))
	if n := strings.Count(out, " "); n != 6 {
		t.Errorf("Expected 6 blank cells repainted, got %d in %q", n, out)
	}
}

func TestRenderDiff_NoAllocations(t *testing.T) {
	f := NewFrame(Size{Rows: 24, Cols: 80})
	buf := make([]byte, 0, 64*1024)
	allocs := testing.AllocsPerRun(50, func() {
		for i := 0; i < 96; i++ {
			f.Paint(i%80, i%24, '*', SnowBlue)
		}
		buf = f.RenderDiff(buf[:0])
	})
	if allocs != 0 {
		t.Errorf("Expected zero allocations per diff, got %v", allocs)
	}
}

func BenchmarkRenderDiff(b *testing.B) {
	f := NewFrame(Size{Rows: 50, Cols: 200})
	rng := rand.New(rand.NewSource(1))
	buf := make([]byte, 0, 256*1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 500; j++ {
			f.Paint(rng.Intn(200), rng.Intn(50), '*', White)
		}
		buf = f.RenderDiff(buf[:0])
	}
}

func TestRenderDiff_WideGlyphKeepsColumns(t *testing.T) {
	f := NewFrame(Size{Rows: 1, Cols: 4})
	scr := newScreen(4, 1)
	f.PaintPlain(0, 0, 'x')
	f.PaintPlain(1, 0, 'y')
	scr.apply(t, f.RenderDiff(nil))

	f.PaintPlain(0, 0, '猫')
	f.PaintPlain(2, 0, 'z')
	out := f.RenderDiff(nil)
	scr.apply(t, out)

	if got := scr.at(0, 0).Rune; got != '猫' {
		t.Errorf("Expected wide glyph at col 0, got %q", got)
	}
	if got := scr.at(2, 0).Rune; got != 'z' {
		t.Errorf("Expected z at col 2, got %q (diff %q)", got, out)
	}
	if got := scr.at(3, 0).Rune; got != 0 {
		t.Errorf("Expected col 3 untouched, got %q", got)
	}

	// Same content again is a no-op
	f.PaintPlain(0, 0, '猫')
	f.PaintPlain(2, 0, 'z')
	if out := f.RenderDiff(nil); len(out) != 0 {
		t.Errorf("Expected empty diff for unchanged wide frame, got %q", out)
	}

	// Removing the glyph clears both of its columns
	f.PaintPlain(2, 0, 'z')
	out = f.RenderDiff(nil)
	scr.apply(t, out)
	if scr.at(0, 0).Rune != 0 || scr.at(1, 0).Rune != 0 || scr.at(2, 0).Rune != 'z' {
		t.Errorf("Expected wide glyph erased, got diff %q", out)
	}
}

func TestRenderDiff_WideGlyphAtRightEdge(t *testing.T) {
	f := NewFrame(Size{Rows: 1, Cols: 3})
	f.PaintPlain(2, 0, '猫')
	out := string(f.RenderDiff(nil))
	want := "\x1b[1;3H \x1b[0m"
	if out != want {
		t.Errorf("Expected clipped wide glyph as a space, got %q", out)
	}
}
