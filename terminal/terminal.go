package terminal

// Attr represents cell attributes (bitmask)
type Attr uint8

const (
	AttrNone Attr = 0
	AttrFg   Attr = 1 << 0 // Fg holds a color; unset means terminal default
)

// Cell represents a single terminal cell
// Zero value is a blank, uncolored cell rendered as a space
type Cell struct {
	Rune  rune
	Fg    RGB
	Attrs Attr
}

// Blank is the cleared cell value
var Blank = Cell{}

// Colored reports whether the cell carries a foreground color
func (c Cell) Colored() bool {
	return c.Attrs&AttrFg != 0
}

// Size is the negotiated terminal size, fixed for a session
type Size struct {
	Rows int
	Cols int
}

// Area returns the number of cells
func (s Size) Area() int {
	return s.Rows * s.Cols
}

// Painter receives single-cell writes; out-of-bounds writes are ignored
type Painter interface {
	Paint(x, y int, r rune, fg RGB)
	PaintPlain(x, y int, r rune)
}
