package terminal

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Frame manages double-buffered terminal output with diffing
// Cells are row-major: cells[y*width + x]
type Frame struct {
	current  []Cell
	previous []Cell
	width    int
	height   int

	// Cursor tracking within a single diff pass
	cursorX     int
	cursorY     int
	cursorValid bool

	// Color state for coalescing within a single diff pass
	lastFg    RGB
	lastAttr  Attr
	lastValid bool
}

// NewFrame allocates both buffers for the given size
func NewFrame(size Size) *Frame {
	w, h := size.Cols, size.Rows
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Frame{
		current:  make([]Cell, w*h),
		previous: make([]Cell, w*h),
		width:    w,
		height:   h,
	}
}

// Size returns the frame dimensions
func (f *Frame) Size() Size {
	return Size{Rows: f.height, Cols: f.width}
}

// Paint writes a colored cell into the current buffer
func (f *Frame) Paint(x, y int, r rune, fg RGB) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	f.current[y*f.width+x] = Cell{Rune: r, Fg: fg, Attrs: AttrFg}
}

// PaintPlain writes an uncolored cell into the current buffer
func (f *Frame) PaintPlain(x, y int, r rune) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	f.current[y*f.width+x] = Cell{Rune: r}
}

// Cell returns the pending (current) cell at x, y
func (f *Frame) Cell(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return Cell{}, false
	}
	return f.current[y*f.width+x], true
}

// Displayed returns the cell the terminal last received at x, y
func (f *Frame) Displayed(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return Cell{}, false
	}
	return f.previous[y*f.width+x], true
}

// Invalidate marks every displayed cell unknown so the next diff repaints all cells
// Use after clearing the physical screen
func (f *Frame) Invalidate() {
	for i := range f.previous {
		f.previous[i] = Cell{Rune: -1}
	}
}

// cellEqual compares two cells for equality (standalone for inlining)
func cellEqual(a, b Cell) bool {
	if a.Rune != b.Rune || a.Attrs != b.Attrs {
		return false
	}
	if a.Attrs&AttrFg == 0 {
		return true
	}
	return a.Fg == b.Fg
}

// RenderDiff appends the escape sequence turning the displayed frame into the current one
// Returns dst unchanged when nothing differs. Afterwards previous equals current and current is blank
func (f *Frame) RenderDiff(dst []byte) []byte {
	start := len(dst)
	f.cursorValid = false
	f.lastValid = false

	w := f.width
	for y := 0; y < f.height; y++ {
		rowStart := y * w
		shadowed := false
		for x := 0; x < w; x++ {
			idx := rowStart + x
			c := f.current[idx]

			// Right half of a wide glyph: the terminal shows the glyph here, so the cell is unknown
			if shadowed {
				shadowed = false
				f.current[idx] = Cell{Rune: -1}
				continue
			}

			r := c.Rune
			if r <= 0 {
				r = ' '
			}
			gw := glyphWidth(r)
			if gw == 2 {
				if x+1 < w {
					shadowed = true
				} else {
					r, gw = ' ', 1 // No room for the second column
				}
			}

			if cellEqual(c, f.previous[idx]) {
				continue
			}

			// Writing a glyph advances the cursor, so a contiguous dirty run needs one positioning
			if !f.cursorValid || x != f.cursorX || y != f.cursorY {
				dst = AppendCursorPos(dst, x, y)
				f.cursorX = x
				f.cursorY = y
				f.cursorValid = true
			}

			dst = f.appendStyle(dst, c)

			if r < 0x80 {
				dst = append(dst, byte(r))
			} else {
				dst = utf8.AppendRune(dst, r)
			}
			switch gw {
			case 1:
				f.cursorX++
			case 2:
				f.cursorX += 2
			default:
				f.cursorValid = false // Zero-width or ambiguous: reposition before the next cell
			}
		}
	}

	if len(dst) > start {
		dst = append(dst, SGR0...)
	}

	// previous := current, current := blank, without allocating
	f.previous, f.current = f.current, f.previous
	clear(f.current)
	f.lastValid = false

	return dst
}

// glyphWidth returns the terminal columns r occupies
func glyphWidth(r rune) int {
	if r < 0x80 {
		return 1
	}
	return runewidth.RuneWidth(r)
}

// appendStyle emits a color sequence only when it differs from the last one in this pass
func (f *Frame) appendStyle(dst []byte, c Cell) []byte {
	if f.lastValid && c.Attrs == f.lastAttr && (c.Attrs&AttrFg == 0 || c.Fg == f.lastFg) {
		return dst
	}

	if c.Attrs&AttrFg != 0 {
		dst = AppendFg(dst, c.Fg)
	} else if f.lastValid {
		// Going back to default only matters once something colored was emitted
		dst = append(dst, SGR0...)
	}

	f.lastFg = c.Fg
	f.lastAttr = c.Attrs
	f.lastValid = true
	return dst
}
