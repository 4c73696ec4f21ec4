package terminal

import (
	"time"
	"unicode/utf8"
)

// EscapeTimeout is how long a lone ESC is held waiting for the rest of a sequence
const EscapeTimeout = 50 * time.Millisecond

// maxCSILen bounds the scan for a CSI final byte
const maxCSILen = 16

// Decoder turns raw input fragments into key events
// Input is not guaranteed to arrive one keystroke per read: incomplete sequences are kept
// in a persistent buffer and completed by the next Feed
type Decoder struct {
	buf []byte
}

// NewDecoder creates a decoder with a small persistent buffer
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 64)}
}

// Feed parses data, emitting each complete key in order
func (d *Decoder) Feed(data []byte, emit func(Event)) {
	if len(d.buf) == 0 {
		// Fast path: nothing pending, parse in place and keep only the incomplete tail
		consumed := parseInput(data, emit)
		d.buf = append(d.buf, data[consumed:]...)
		return
	}

	d.buf = append(d.buf, data...)
	consumed := parseInput(d.buf, emit)
	if consumed > 0 {
		n := copy(d.buf, d.buf[consumed:])
		d.buf = d.buf[:n]
	}
}

// Pending reports whether an incomplete sequence is held
func (d *Decoder) Pending() bool {
	return len(d.buf) > 0
}

// Flush resolves held bytes after EscapeTimeout with no further input
// Only a lone ESC becomes KeyEscape; a stalled partial sequence is discarded as one KeySequence
func (d *Decoder) Flush(emit func(Event)) {
	if len(d.buf) == 0 {
		return
	}
	if len(d.buf) == 1 && d.buf[0] == 0x1b {
		emit(Event{Key: KeyEscape})
	} else {
		emit(Event{Key: KeySequence})
	}
	d.buf = d.buf[:0]
}

// Reset drops any held bytes
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// parseInput parses raw bytes into events and returns bytes consumed (stop on incomplete sequence)
func parseInput(data []byte, emit func(Event)) int {
	i := 0
	n := len(data)

	for i < n {
		b := data[i]

		// Fast path: printable ASCII
		if b >= 0x20 && b < 0x7f {
			emit(Event{Key: KeyRune, Rune: rune(b)})
			i++
			continue
		}

		// Escape sequence
		if b == 0x1b {
			// Need at least 2 bytes to determine sequence type
			if i+1 >= n {
				return i
			}

			consumed, ev := parseEscape(data[i:])
			if consumed == 0 {
				return i
			}
			emit(ev)
			i += consumed
			continue
		}

		if b == 0x03 {
			emit(Event{Key: KeyCtrlC})
			i++
			continue
		}

		// Other control characters and DEL
		if b < 0x20 || b == 0x7f {
			emit(Event{Key: KeyControl, Rune: rune(b)})
			i++
			continue
		}

		// UTF-8 multibyte
		seqLen := utf8SeqLen(b)
		if seqLen == 0 {
			// Invalid start byte, skip
			emit(Event{Key: KeyControl, Rune: utf8.RuneError})
			i++
			continue
		}
		if i+seqLen > n {
			return i
		}
		r, size := utf8.DecodeRune(data[i:])
		emit(Event{Key: KeyRune, Rune: r})
		i += size
	}
	return i
}

// utf8SeqLen returns expected UTF-8 sequence length from start byte, 0 if invalid
func utf8SeqLen(b byte) int {
	if b < 0x80 {
		return 1
	}
	if b&0xe0 == 0xc0 {
		return 2
	}
	if b&0xf0 == 0xe0 {
		return 3
	}
	if b&0xf8 == 0xf0 {
		return 4
	}
	return 0
}

// parseEscape parses a sequence starting with ESC, returns 0 on incomplete
func parseEscape(data []byte) (int, Event) {
	switch data[1] {
	case '[':
		return parseCSI(data)
	case 'O':
		return parseSS3(data)
	}
	// ESC followed by anything else: the ESC stands alone, the next byte is parsed on its own
	return 1, Event{Key: KeyEscape}
}

// parseCSI parses CSI sequence without allocation
func parseCSI(data []byte) (int, Event) {
	end := 2
	for end < len(data) {
		b := data[end]
		// Final byte
		if b >= 0x40 && b <= 0x7e {
			end++
			if key, ok := lookupCSI(data[2:end]); ok {
				return end, Event{Key: key}
			}
			return end, Event{Key: KeySequence}
		}
		// Anything that cannot be a parameter/intermediate byte ends a malformed sequence
		if b < 0x20 || b > 0x3f {
			return end, Event{Key: KeySequence}
		}
		end++
		if end >= maxCSILen {
			return end, Event{Key: KeySequence}
		}
	}
	return 0, Event{} // Incomplete
}

// parseSS3 parses SS3 sequence, returns length even for unknown sequences
func parseSS3(data []byte) (int, Event) {
	if len(data) < 3 {
		return 0, Event{}
	}
	if key, ok := lookupSS3(data[2:3]); ok {
		return 3, Event{Key: key}
	}
	return 3, Event{Key: KeySequence}
}
