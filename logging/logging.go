package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const (
	DefaultMaxSize = 2 * 1024 * 1024 // 2MB
	DefaultBackups = 1
)

// RotatingWriter is an append-only log file that shifts itself to
// path.1 .. path.N once it grows past maxSize.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
	backups int
}

// Setup sends the standard logger to stdout and a size-rotated file.
func Setup(logPath string, maxSize int64, backups int) (*RotatingWriter, error) {
	rw, err := NewRotatingWriter(logPath, maxSize, backups)
	if err != nil {
		return nil, err
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

func NewRotatingWriter(logPath string, maxSize int64, backups int) (*RotatingWriter, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if backups < 1 {
		backups = DefaultBackups
	}

	w := &RotatingWriter{path: logPath, maxSize: maxSize, backups: backups}

	// An oversized file left by a previous process is shifted out, not appended to.
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxSize {
		w.shift()
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	if info, err := f.Stat(); err == nil {
		w.size = info.Size()
	}
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, err
	}

	if w.size > w.maxSize {
		if err := w.rotate(); err != nil {
			return n, fmt.Errorf("rotate %s: %w", w.path, err)
		}
	}
	return n, nil
}

func (w *RotatingWriter) rotate() error {
	w.file.Close()
	w.file = nil
	w.shift()
	return w.open()
}

// shift renames path.(N-1) to path.N and so on down to path -> path.1.
// The oldest backup is overwritten.
func (w *RotatingWriter) shift() {
	for i := w.backups - 1; i >= 1; i-- {
		os.Rename(backupName(w.path, i), backupName(w.path, i+1))
	}
	os.Rename(w.path, backupName(w.path, 1))
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// ForRun returns a logger that tags every line with the ingestion run id.
// It writes wherever the standard logger currently writes.
func ForRun(runID string) *log.Logger {
	return log.New(log.Writer(), "[run "+runID+"] ", log.Flags()|log.Lmsgprefix)
}
