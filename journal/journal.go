// Package journal appends one JSON line per finished session to hourly zstd-compressed files
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/lixenwraith/tngame/session"
)

// ServiceName identifies the journal in the service hub
const ServiceName = "journal"

// ErrClosed is returned by Record after Stop
var ErrClosed = errors.New("journal closed")

const hourLayout = "2006-01-02-15"

// Journal is a session.Recorder writing "{prefix}-{hour}.jsonl.zst" files under dir
type Journal struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	closed  bool
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	written int64
}

// New creates a journal rooted at dir; nothing is opened until Start
func New(dir string) *Journal {
	return &Journal{dir: dir, prefix: "sessions", now: time.Now}
}

func (j *Journal) Name() string           { return ServiceName }
func (j *Journal) Dependencies() []string { return nil }

// Start creates the journal directory
func (j *Journal) Start() error {
	if j.dir == "" {
		return errors.New("journal: empty directory")
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	j.mu.Lock()
	j.closed = false
	j.mu.Unlock()
	return nil
}

// Stop flushes and closes the current file
func (j *Journal) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return j.closeLocked()
}

// Record implements session.Recorder
func (j *Journal) Record(s session.Summary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	hour := j.now().UTC().Format(hourLayout)
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	j.written++
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.enc.Flush()
}

// Written returns the number of summaries recorded since construction
func (j *Journal) Written() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

// Path returns the file a summary recorded at t lands in
func (j *Journal) Path(t time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("%s-%s.jsonl.zst", j.prefix, t.UTC().Format(hourLayout)))
}

func (j *Journal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	t, _ := time.Parse(hourLayout, hour)
	f, err := os.OpenFile(j.Path(t), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 32*1024)
	j.curHour = hour
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		err = j.w.Flush()
	}
	if j.enc != nil {
		err = errors.Join(err, j.enc.Close())
		j.enc = nil
	}
	if j.f != nil {
		err = errors.Join(err, j.f.Close())
		j.f = nil
	}
	j.w = nil
	j.curHour = ""
	return err
}
