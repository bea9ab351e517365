// Package transcript writes per-session chat transcripts as NDJSON.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

// Directions.
const (
	Inbound  = "inbound"
	Outbound = "outbound"
)

// Event is one transcript line.
type Event struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	RequestID string    `json:"request_id,omitempty"`
	Channel   string    `json:"channel"`
	Direction string    `json:"direction"`
	Branch    string    `json:"branch,omitempty"`
	Text      string    `json:"text"`
	URLs      []string  `json:"urls,omitempty"`
}

// Config controls the logger.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Logger appends events to <dir>/<session>.ndjson from a single background
// writer. A nil *Logger or a disabled one discards everything.
type Logger struct {
	dir    string
	queue  chan Event
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	wg      sync.WaitGroup
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// New creates a logger and starts its writer. It returns nil when cfg is
// disabled.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	l := &Logger{
		dir:    cfg.Dir,
		queue:  make(chan Event, cfg.QueueSize),
		logger: logger,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log queues ev. It never blocks; when the queue is full the event is dropped.
func (l *Logger) Log(ev Event) {
	if l == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- ev:
	default:
		l.dropped.Add(1)
		l.logger.Warn("Transcript queue full, dropping event", "session_id", ev.SessionID, "queue_len", len(l.queue))
	}
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

// Dropped returns the number of events discarded because the queue was full.
func (l *Logger) Dropped() int64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Path returns the transcript file for a session.
func (l *Logger) Path(sessionID string) string {
	return filepath.Join(l.dir, fileName(sessionID))
}

func (l *Logger) run() {
	defer l.wg.Done()
	for ev := range l.queue {
		if err := l.write(ev); err != nil {
			l.logger.Error("Failed to write transcript", "session_id", ev.SessionID, "error", err)
		}
	}
}

func (l *Logger) write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	f, err := os.OpenFile(l.Path(ev.SessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append transcript: %w", err)
	}
	return f.Close()
}

func fileName(sessionID string) string {
	name := unsafeName.ReplaceAllString(sessionID, "_")
	if name == "" || name == "." || name == ".." {
		name = "default"
	}
	return name + ".ndjson"
}
