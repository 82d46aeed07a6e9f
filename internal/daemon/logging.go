package daemon

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// DefaultMaxLogSize is the size at which the daemon log is rotated on start.
const DefaultMaxLogSize = 5 * 1024 * 1024

// GetLogDir returns the directory containing the daemon log and state.
func GetLogDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// GetLogPath returns the path to the daemon log file.
func GetLogPath() string {
	return filepath.Join(GetLogDir(), "daemon.log")
}

// LogFile is the daemon's append-only log. It is handed to logging.Init as
// the slog output.
type LogFile struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenLog opens (creating if needed) the log at path for appending.
func OpenLog(path string) (*LogFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &LogFile{path: path, file: file}, nil
}

// Write appends p to the log.
func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return 0, os.ErrClosed
	}
	return l.file.Write(p)
}

// Close closes the log file.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Rotate moves the log to <path>.old once it reaches maxSize bytes.
func (l *LogFile) Rotate(maxSize int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	l.file.Close()
	backup := l.path + ".old"
	os.Remove(backup)
	if err := os.Rename(l.path, backup); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	return nil
}

// TailLog returns up to n trailing lines of the log at path.
func TailLog(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}
