package session

import (
	"time"

	"github.com/lixenwraith/tngame/terminal"
)

// Reasons a session ended
const (
	ReasonQuit      = "quit"
	ReasonClosed    = "closed"
	ReasonShutdown  = "shutdown"
	ReasonHandshake = "handshake"
	ReasonChildExit = "child_exit"
	ReasonSpawn     = "spawn"
	ReasonError     = "error"
)

// Summary describes a finished session
type Summary struct {
	ID       string    `json:"id"`
	Mode     string    `json:"mode"`
	Remote   string    `json:"remote"`
	Rows     int       `json:"rows"`
	Cols     int       `json:"cols"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	BytesIn  int64     `json:"bytes_in"`
	BytesOut int64     `json:"bytes_out"`
	Frames   int64     `json:"frames"`
	Reason   string    `json:"reason"`
	Error    string    `json:"error,omitempty"`
}

// Duration returns the session length
func (s Summary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Size returns the negotiated terminal size
func (s Summary) Size() terminal.Size {
	return terminal.Size{Rows: s.Rows, Cols: s.Cols}
}

// Recorder persists summaries
type Recorder interface {
	Record(Summary) error
}
