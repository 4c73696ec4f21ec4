// Package indexdb keeps a queryable SQLite index of finished sessions beside the journal
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lixenwraith/tngame/logging"
	"github.com/lixenwraith/tngame/session"
)

// ServiceName identifies the index in the service hub
const ServiceName = "indexdb"

const queueSize = 4096

// Index is a session.Recorder backed by a single-writer SQLite database
// Record never blocks: when the writer falls behind, rows are dropped and counted
type Index struct {
	path string
	log  *logging.Logger

	db   *sql.DB
	mu   sync.RWMutex // Guards ch against close during send
	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	running atomic.Bool
	dropped atomic.Int64
	written atomic.Int64
}

type req struct {
	sum  session.Summary
	sync chan struct{} // Barrier: closed once everything queued before it is written
}

// Stats reports writer progress
type Stats struct {
	Written       int64
	Dropped       int64
	QueueDepth    int
	QueueCapacity int
}

// New creates an index for the database at path; the file is opened on Start
func New(path string, lg *logging.Logger) *Index {
	if lg == nil {
		lg = logging.Discard()
	}
	return &Index{path: path, log: lg}
}

func (s *Index) Name() string           { return ServiceName }
func (s *Index) Dependencies() []string { return nil }

// Start opens the database, applies the schema and launches the writer
func (s *Index) Start() error {
	if s.path == "" {
		return errors.New("indexdb: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		db.Close()
		return fmt.Errorf("indexdb pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return fmt.Errorf("indexdb schema: %w", err)
	}

	s.db = db
	s.ch = make(chan req, queueSize)
	s.once = sync.Once{}
	s.running.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return nil
}

// Stop drains the queue and closes the database
func (s *Index) Stop() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		if !s.running.Swap(false) {
			s.mu.Unlock()
			return
		}
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			remote TEXT NOT NULL,
			rows INTEGER NOT NULL,
			cols INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			bytes_in INTEGER NOT NULL,
			bytes_out INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			reason TEXT NOT NULL,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_reason ON sessions(reason);`,
	}
	for _, st := range stmts {
		if _, err := db.Exec(st); err != nil {
			return err
		}
	}
	return nil
}

// Record implements session.Recorder
func (s *Index) Record(sum session.Summary) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running.Load() {
		return nil
	}
	select {
	case s.ch <- req{sum: sum}:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Sync waits until every summary queued before the call is written
func (s *Index) Sync(ctx context.Context) error {
	done := make(chan struct{})
	s.mu.RLock()
	if !s.running.Load() {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{sync: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns writer counters
func (s *Index) Stats() Stats {
	return Stats{
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

func (s *Index) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO sessions(
		id,mode,remote,rows,cols,started_at,ended_at,duration_ms,bytes_in,bytes_out,frames,reason,error
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		s.log.Printf("indexdb: prepare: %v", err)
	}
	defer func() {
		if insert != nil {
			insert.Close()
		}
	}()

	for r := range s.ch {
		if r.sync != nil {
			close(r.sync)
			continue
		}
		if insert == nil {
			s.dropped.Add(1)
			continue
		}
		sum := r.sum
		var errText any
		if sum.Error != "" {
			errText = sum.Error
		}
		_, err := insert.Exec(
			sum.ID, sum.Mode, sum.Remote, sum.Rows, sum.Cols,
			sum.Start.UTC().Format(time.RFC3339Nano), sum.End.UTC().Format(time.RFC3339Nano),
			sum.Duration().Milliseconds(), sum.BytesIn, sum.BytesOut, sum.Frames,
			sum.Reason, errText,
		)
		if err != nil {
			s.log.Printf("indexdb: insert %s: %v", sum.ID, err)
			s.dropped.Add(1)
			continue
		}
		s.written.Add(1)
	}
}

// Row is one indexed session
type Row struct {
	ID       string
	Mode     string
	Remote   string
	Rows     int
	Cols     int
	Start    time.Time
	Duration time.Duration
	BytesOut int64
	Frames   int64
	Reason   string
	Error    string
}

// Recent returns up to limit sessions, newest first
func (s *Index) Recent(ctx context.Context, limit int) ([]Row, error) {
	if !s.running.Load() {
		return nil, errors.New("indexdb: not running")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,mode,remote,rows,cols,started_at,duration_ms,bytes_out,frames,reason,COALESCE(error,'')
		FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r       Row
			started string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.Remote, &r.Rows, &r.Cols, &started, &ms, &r.BytesOut, &r.Frames, &r.Reason, &r.Error); err != nil {
			return nil, err
		}
		r.Start, _ = time.Parse(time.RFC3339Nano, started)
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByReason tallies indexed sessions per end reason
func (s *Index) CountByReason(ctx context.Context) (map[string]int, error) {
	if !s.running.Load() {
		return nil, errors.New("indexdb: not running")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM sessions GROUP BY reason`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[reason] = n
	}
	return out, rows.Err()
}
