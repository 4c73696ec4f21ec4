package network

// Telnet command bytes (RFC 854)
const (
	cmdSE   byte = 240
	cmdSB   byte = 250
	cmdWILL byte = 251
	cmdWONT byte = 252
	cmdDO   byte = 253
	cmdDONT byte = 254
	cmdIAC  byte = 255
)

// Telnet options
const (
	optEcho byte = 1
	optSGA  byte = 3
)

// negotiation puts the client in character mode: the server echoes (so the client does not)
// and go-ahead is suppressed in both directions
var negotiation = []byte{
	cmdIAC, cmdWILL, optEcho,
	cmdIAC, cmdWILL, optSGA,
	cmdIAC, cmdDO, optSGA,
}

// filterState tracks position inside a telnet command across reads
type filterState uint8

const (
	stateData filterState = iota
	stateIAC
	stateOption
	stateSub
	stateSubIAC
)

// iacFilter strips telnet commands from an inbound byte stream
// Commands may be split across reads; state carries over
type iacFilter struct {
	state  filterState
	lastCR bool
}

// filter compacts b in place, removing commands, and returns the data length
// IAC IAC yields a literal 0xFF; the NUL of a CR NUL pair is dropped
func (f *iacFilter) filter(b []byte) int {
	n := 0
	for _, c := range b {
		switch f.state {
		case stateData:
			if c == cmdIAC {
				f.state = stateIAC
				continue
			}
			if c == 0 && f.lastCR {
				f.lastCR = false
				continue
			}
			f.lastCR = c == '\r'
			b[n] = c
			n++

		case stateIAC:
			switch c {
			case cmdIAC:
				b[n] = cmdIAC
				n++
				f.state = stateData
			case cmdWILL, cmdWONT, cmdDO, cmdDONT:
				f.state = stateOption
			case cmdSB:
				f.state = stateSub
			default:
				// Two-byte command (NOP, GA, AYT, ...)
				f.state = stateData
			}

		case stateOption:
			f.state = stateData

		case stateSub:
			if c == cmdIAC {
				f.state = stateSubIAC
			}

		case stateSubIAC:
			if c == cmdSE {
				f.state = stateData
			} else {
				f.state = stateSub
			}
		}
	}
	return n
}

// appendEscaped appends p to dst doubling every IAC byte
func appendEscaped(dst, p []byte) []byte {
	for _, c := range p {
		if c == cmdIAC {
			dst = append(dst, cmdIAC, cmdIAC)
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

// needsEscape reports whether p contains an IAC byte
func needsEscape(p []byte) bool {
	for _, c := range p {
		if c == cmdIAC {
			return true
		}
	}
	return false
}
