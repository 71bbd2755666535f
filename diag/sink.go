// Package diag appends diagnostic records for failed operations to a plain
// text file. Records are never read back.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DefaultPath is used when no log path is configured.
const DefaultPath = "gsql_logs.txt"

// Sink is an append-only diagnostics file. The file is opened lazily on the
// first record and never truncated.
type Sink struct {
	path   string
	logger log.Logger

	mu   sync.Mutex
	file *os.File
}

// NewSink returns a sink writing to path. Problems writing the file are
// reported to logger and otherwise ignored.
func NewSink(path string, logger log.Logger) *Sink {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Sink{path: path, logger: logger}
}

// Path returns the file the sink appends to.
func (s *Sink) Path() string {
	return s.path
}

// Open reports whether the sink currently holds the file open.
func (s *Sink) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

// Touch creates the file if it does not exist yet.
func (s *Sink) Touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open()
}

// Record appends "[gsql][component] : message".
func (s *Sink) Record(component, message string) {
	level.Error(s.logger).Log("component", component, "msg", message)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		level.Warn(s.logger).Log("msg", "diagnostics file unavailable", "path", s.path, "err", err)
		return
	}
	if _, err := fmt.Fprintf(s.file, "[gsql][%s] : %s\n", component, message); err != nil {
		level.Warn(s.logger).Log("msg", "failed to write diagnostics record", "path", s.path, "err", err)
	}
}

// Close releases the file handle. A later Record reopens it.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Sink) open() error {
	if s.file != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}
