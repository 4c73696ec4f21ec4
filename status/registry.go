// Package status keeps process-wide session counters for periodic and shutdown reporting
package status

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/lixenwraith/tngame/session"
)

// Counter names
const (
	SessionsTotal = "sessions"
	BytesIn       = "bytes_in"
	BytesOut      = "bytes_out"
	Frames        = "frames"
	reasonPrefix  = "reason."
)

// Registry counts finished sessions; it is a session.Recorder
type Registry struct {
	Ints *MetricMap[atomic.Int64]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{Ints: NewMetricMap[atomic.Int64]()}
}

// Record implements session.Recorder
func (r *Registry) Record(s session.Summary) error {
	r.Ints.Get(SessionsTotal).Add(1)
	r.Ints.Get(BytesIn).Add(s.BytesIn)
	r.Ints.Get(BytesOut).Add(s.BytesOut)
	r.Ints.Get(Frames).Add(s.Frames)
	r.Ints.Get(reasonPrefix + s.Reason).Add(1)
	return nil
}

// Value returns a counter, zero when never touched
func (r *Registry) Value(name string) int64 {
	return r.Ints.Get(name).Load()
}

// Reason returns how many sessions ended for reason
func (r *Registry) Reason(reason string) int64 {
	return r.Value(reasonPrefix + reason)
}

// Snapshot copies every counter
func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64, r.Ints.Count())
	r.Ints.Range(func(k string, v *atomic.Int64) {
		out[k] = v.Load()
	})
	return out
}

// String renders a one-line log summary, byte counters humanized
func (r *Registry) String() string {
	var b strings.Builder
	r.Ints.Range(func(k string, v *atomic.Int64) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		n := v.Load()
		if k == BytesIn || k == BytesOut {
			b.WriteString(humanize.Bytes(uint64(n)))
		} else {
			b.WriteString(strconv.FormatInt(n, 10))
		}
	})
	return b.String()
}
