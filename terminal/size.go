package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// SizeQuery asks the terminal to report its text area size in characters (XTWINOPS 18)
var SizeQuery = []byte("\x1b[18t")

// Size report framing: ESC [ 8 ; rows ; cols t
var (
	sizeReportPrefix = []byte("\x1b[8;")
	sizeReportEnd    = byte('t')
)

// MaxSizeReportLen bounds how many bytes a reader should wait for before giving up
const MaxSizeReportLen = 32

// Upper bound on accepted dimensions; anything larger is treated as a garbled reply
const maxDimension = 1000

// ErrHandshake reports a malformed or unusable size report
var ErrHandshake = errors.New("terminal size handshake failed")

// SizeReportComplete reports whether buf holds the report terminator
func SizeReportComplete(buf []byte) bool {
	return bytes.IndexByte(buf, sizeReportEnd) >= 0
}

// ParseSizeReport parses a single "ESC[8;{rows};{cols}t" reply
// The exchange is single-shot: anything else is an error, there is no resynchronization
func ParseSizeReport(buf []byte) (Size, error) {
	if !bytes.HasPrefix(buf, sizeReportPrefix) {
		return Size{}, fmt.Errorf("%w: unexpected reply %q", ErrHandshake, buf)
	}
	body := buf[len(sizeReportPrefix):]
	if len(body) == 0 || body[len(body)-1] != sizeReportEnd {
		return Size{}, fmt.Errorf("%w: unterminated reply %q", ErrHandshake, buf)
	}
	body = body[:len(body)-1]

	rowsField, colsField, ok := bytes.Cut(body, []byte{';'})
	if !ok {
		return Size{}, fmt.Errorf("%w: missing columns in %q", ErrHandshake, buf)
	}
	rows, err := parseDimension(rowsField)
	if err != nil {
		return Size{}, fmt.Errorf("%w: rows: %v", ErrHandshake, err)
	}
	cols, err := parseDimension(colsField)
	if err != nil {
		return Size{}, fmt.Errorf("%w: cols: %v", ErrHandshake, err)
	}
	return Size{Rows: rows, Cols: cols}, nil
}

func parseDimension(field []byte) (int, error) {
	n, err := strconv.Atoi(string(field))
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > maxDimension {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}
