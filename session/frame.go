package session

import (
	"bufio"
	"bytes"
	"io"
)

// Sentinel terminates every frame a relayed child writes
var Sentinel = []byte{0, 0, 0}

// MaxFrameSize bounds a single frame; a longer run is passed through unterminated
const MaxFrameSize = 1 << 20

// FrameReader splits a child's output on Sentinel
type FrameReader struct {
	r     *bufio.Reader
	buf   []byte
	max   int
	carry int // NULs held back from a cut run; they may open a sentinel
}

// NewFrameReader reads frames from r through a buffer of size bytes
func NewFrameReader(r io.Reader, size int) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, size), max: MaxFrameSize}
}

// Next returns the next frame without its sentinel; the slice is valid until the following call
// At end of stream the unterminated remainder is returned together with io.EOF
func (fr *FrameReader) Next() ([]byte, error) {
	dst := fr.buf[:0]
	for ; fr.carry > 0; fr.carry-- {
		dst = append(dst, 0)
	}
	defer func() { fr.buf = dst[:0] }()

	for {
		chunk, err := fr.r.ReadSlice(0)
		dst = append(dst, chunk...)
		switch {
		case err == nil:
			if bytes.HasSuffix(dst, Sentinel) {
				return dst[:len(dst)-len(Sentinel)], nil
			}
			if len(dst) >= fr.max {
				return fr.cut(dst), nil
			}
		case err == bufio.ErrBufferFull:
			if len(dst) >= fr.max {
				return fr.cut(dst), nil
			}
		case err == io.EOF && len(dst) == 0:
			return nil, io.EOF
		default:
			return dst, err
		}
	}
}

// cut ends an oversized run, keeping trailing NULs for the next frame
func (fr *FrameReader) cut(dst []byte) []byte {
	n := len(dst)
	for n > 0 && dst[n-1] == 0 && len(dst)-n < len(Sentinel)-1 {
		n--
	}
	fr.carry = len(dst) - n
	return dst[:n]
}
