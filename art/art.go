// Package art holds immutable ASCII art blocks and the speech bubble generator.
package art

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/lixenwraith/tngame/asset"
	"github.com/lixenwraith/tngame/terminal"
)

// Art is an immutable block of text with its display dimensions
type Art struct {
	Name   string
	Text   string
	Width  int
	Height int

	lines [][]rune
}

// New measures text; a single trailing newline is ignored
func New(text, name string) *Art {
	text = strings.TrimSuffix(text, "\n")
	a := &Art{Name: name, Text: text}
	if text == "" {
		return a
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if w := runewidth.StringWidth(line); w > a.Width {
			a.Width = w
		}
		a.lines = append(a.lines, []rune(line))
	}
	a.Height = len(a.lines)
	return a
}

// Lines returns the art rows
func (a *Art) Lines() []string {
	out := make([]string, len(a.lines))
	for i, l := range a.lines {
		out[i] = string(l)
	}
	return out
}

// Paint draws the art with its top-left corner at x, y
// Leading spaces of each row are transparent so the background shows around the outline
func (a *Art) Paint(p terminal.Painter, x, y int, fg terminal.RGB) {
	for row, line := range a.lines {
		col := 0
		opaque := false
		for _, r := range line {
			if r != ' ' {
				opaque = true
			}
			if opaque {
				p.Paint(x+col, y+row, r, fg)
			}
			col += runewidth.RuneWidth(r)
		}
	}
}

var builtin = map[string]string{
	"cat":   asset.CatArt,
	"bunny": asset.BunnyArt,
}

// Cat returns the default actor
func Cat() *Art {
	return New(asset.CatArt, "cat")
}

// Named resolves a built-in art by name
func Named(name string) (*Art, error) {
	text, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown art %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return New(text, name), nil
}

// Names lists the built-in art names in sorted order
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
