package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger appends one JSON event per line. A nil or pathless logger
// drops events, so call sites never need to guard.
type Logger struct {
	path  string
	runID string
	mu    sync.Mutex
}

type Event struct {
	Timestamp string            `json:"timestamp"`
	RunID     string            `json:"runId,omitempty"`
	Operation string            `json:"operation"`
	Phase     string            `json:"phase"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// New returns a logger appending to path. Every event is stamped with
// runID so one process execution can be reconstructed from the log.
func New(path, runID string) *Logger {
	return &Logger{path: path, runID: runID}
}

// NewRunID mints the identifier shared by all events of one process
// execution. V7 keeps the log sortable by mint time.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	if ev.RunID == "" {
		ev.RunID = l.runID
	}
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(blob, '\n')); err != nil {
		return err
	}
	return nil
}
