package art

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// BubbleWrap is the maximum text width inside a bubble
const BubbleWrap = 30

// Bubble frames text in a speech bubble:
//
//	.=======.
//	| hello |
//	'======='
//
// Lines are trimmed, blank lines dropped and long lines hard-wrapped at BubbleWrap columns.
// Returns an empty Art when nothing printable remains.
func Bubble(text string) *Art {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, wrap(line, BubbleWrap)...)
	}
	if len(lines) == 0 {
		return New("", "bubble")
	}

	width := 0
	for _, l := range lines {
		width = max(width, runewidth.StringWidth(l))
	}

	var b strings.Builder
	border := strings.Repeat("=", width+2)
	b.WriteString("." + border + ".\n")
	for _, l := range lines {
		b.WriteString("| ")
		b.WriteString(l)
		b.WriteString(strings.Repeat(" ", width-runewidth.StringWidth(l)))
		b.WriteString(" |\n")
	}
	b.WriteString("'" + border + "'")
	return New(b.String(), "bubble")
}

// wrap splits line into chunks of at most width display columns
func wrap(line string, width int) []string {
	var out []string
	var cur strings.Builder
	w := 0
	for _, r := range line {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && w > 0 {
			out = append(out, cur.String())
			cur.Reset()
			w = 0
		}
		cur.WriteRune(r)
		w += rw
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
