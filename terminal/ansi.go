package terminal

// Pre-allocated ANSI sequence fragments (avoid allocations during render)
var (
	csiCursorPos = []byte("\x1b[") // followed by row;colH
	csiFgRGB     = []byte("\x1b[38;2;")

	// SGR0 resets all attributes
	SGR0 = []byte("\x1b[0m")

	// ClearScreen clears the screen and homes the cursor
	ClearScreen = []byte("\x1b[2J\x1b[H")

	// CursorHide and CursorShow toggle cursor visibility (DECTCEM)
	CursorHide = []byte("\x1b[?25l")
	CursorShow = []byte("\x1b[?25h")

	// CursorPark moves the cursor past the bottom-right corner; terminals clamp it there
	CursorPark = []byte("\x1b[9999;9999H")
)

// appendInt appends a non-negative integer without allocation
// Optimized for terminal values (0-255 common, 0-999 typical max)
func appendInt(dst []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if n < 10 {
		return append(dst, byte(n)+'0')
	}
	if n < 100 {
		return append(dst, byte(n/10)+'0', byte(n%10)+'0')
	}
	if n < 1000 {
		return append(dst, byte(n/100)+'0', byte(n/10%10)+'0', byte(n%10)+'0')
	}
	// Fallback for >999 (rare)
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte(n%10) + '0'
		n /= 10
	}
	return append(dst, buf[i:]...)
}

// AppendCursorPos appends a cursor positioning sequence (0-indexed input)
func AppendCursorPos(dst []byte, x, y int) []byte {
	dst = append(dst, csiCursorPos...)
	dst = appendInt(dst, y+1)
	dst = append(dst, ';')
	dst = appendInt(dst, x+1)
	return append(dst, 'H')
}

// AppendFg appends a 24-bit foreground color sequence
func AppendFg(dst []byte, c RGB) []byte {
	dst = append(dst, csiFgRGB...)
	dst = appendInt(dst, int(c.R))
	dst = append(dst, ';')
	dst = appendInt(dst, int(c.G))
	dst = append(dst, ';')
	dst = appendInt(dst, int(c.B))
	return append(dst, 'm')
}
