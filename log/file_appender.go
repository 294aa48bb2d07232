package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileAppender writes events to a log file and rotates it by size and by a
// daily split hour. Rotation renames the active file with a timestamp suffix
// and reopens a fresh one at the configured path.
type FileAppender struct {
	mu         sync.Mutex
	fd         *os.File
	path       string
	splitBytes int64
	splitHour  int
	size       int64
	openedAt   time.Time
}

// NewFileAppender opens (creating if needed) the configured log file.
func NewFileAppender(cfg *LogCfg) (*FileAppender, error) {
	a := &FileAppender{
		path:       cfg.LogPath,
		splitBytes: int64(cfg.FileSplitMB) * 1024 * 1024,
		splitHour:  cfg.FileSplitHour,
	}
	if err := a.open(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *FileAppender) open() error {
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	fd, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", a.path, err)
	}
	st, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return err
	}
	a.fd = fd
	a.size = st.Size()
	a.openedAt = time.Now()
	return nil
}

// Write appends the event to the file, rotating first when a threshold is hit.
func (a *FileAppender) Write(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shouldRotate(time.Now()) {
		if err := a.rotate(); err != nil {
			// Rotation failure must not lose the event; keep writing to
			// the oversized file.
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}

	n, err := a.fd.Write(buf)
	a.size += int64(n)
	return n, err
}

func (a *FileAppender) shouldRotate(now time.Time) bool {
	if a.splitBytes > 0 && a.size >= a.splitBytes {
		return true
	}
	// Daily split: rotate on the first write after splitHour on a new day.
	boundary := time.Date(now.Year(), now.Month(), now.Day(), a.splitHour, 0, 0, 0, now.Location())
	return a.openedAt.Before(boundary) && !now.Before(boundary)
}

func (a *FileAppender) rotate() error {
	if err := a.fd.Close(); err != nil {
		return err
	}
	backup := fmt.Sprintf("%s.%s", a.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(a.path, backup); err != nil && !os.IsNotExist(err) {
		return err
	}
	return a.open()
}

// Refresh syncs the file to stable storage.
func (a *FileAppender) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fd.Sync()
}

// Close flushes and closes the file.
func (a *FileAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.fd.Sync()
	return a.fd.Close()
}
