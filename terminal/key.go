package terminal

// Key represents a parsed input key
type Key uint8

const (
	KeyNone    Key = iota
	KeyRune        // Printable character (check Event.Rune)
	KeyEscape      // Standalone ESC
	KeyCtrlC       // ETX, interrupt
	KeyControl     // Any other control byte
	KeySequence    // Complete but unmapped escape sequence

	// Navigation
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// Token is the scene-level meaning of a key
type Token uint8

const (
	TokenUnknown Token = iota
	TokenLeft
	TokenRight
	TokenQuit
)

var tokenNames = [...]string{
	TokenUnknown: "unknown",
	TokenLeft:    "left",
	TokenRight:   "right",
	TokenQuit:    "quit",
}

// String returns the token name
func (t Token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "invalid"
}

// Event is a single decoded key
type Event struct {
	Key  Key
	Rune rune
}

// Token maps the key to its scene meaning
// Arrows move, q/ESC/Ctrl-C quit, everything else is unknown
func (e Event) Token() Token {
	switch e.Key {
	case KeyLeft:
		return TokenLeft
	case KeyRight:
		return TokenRight
	case KeyEscape, KeyCtrlC:
		return TokenQuit
	case KeyRune:
		if e.Rune == 'q' {
			return TokenQuit
		}
	}
	return TokenUnknown
}

// escapeSequence maps escape sequences to keys
// Key: sequence after ESC [ or ESC O (e.g., "A" for up arrow)
type escapeSequence struct {
	seq string
	key Key
}

// Known CSI sequences (ESC [ ...)
var csiSequences = []escapeSequence{
	{"A", KeyUp},
	{"B", KeyDown},
	{"C", KeyRight},
	{"D", KeyLeft},
}

// Known SS3 sequences (ESC O ...), sent by terminals in application cursor mode
var ss3Sequences = []escapeSequence{
	{"A", KeyUp},
	{"B", KeyDown},
	{"C", KeyRight},
	{"D", KeyLeft},
}

var (
	csiMap = buildSequenceMap(csiSequences)
	ss3Map = buildSequenceMap(ss3Sequences)
)

func buildSequenceMap(seqs []escapeSequence) map[string]Key {
	m := make(map[string]Key, len(seqs))
	for _, s := range seqs {
		m[s.seq] = s.key
	}
	return m
}

// lookupCSI finds key for CSI sequence; string(seq) in a map index does not allocate
func lookupCSI(seq []byte) (Key, bool) {
	k, ok := csiMap[string(seq)]
	return k, ok
}

// lookupSS3 finds key for SS3 sequence
func lookupSS3(seq []byte) (Key, bool) {
	k, ok := ss3Map[string(seq)]
	return k, ok
}
