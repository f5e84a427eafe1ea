package slogutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
)

// RotatingFile is an append-only log file that is moved aside once it would
// grow past maxSize. Backups are named <path>.1 (newest) to <path>.<maxBackups>.
type RotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

// OpenRotatingFile opens path for appending. maxSize 0 disables rotation;
// maxBackups 0 discards the old file on rotation.
func OpenRotatingFile(path string, maxSize int64, maxBackups int) (*RotatingFile, error) {
	rf := &RotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (r *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	f, err := openAppend(r.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file, r.size = f, info.Size()
	return nil
}

// Write appends p, rotating first when p would not fit. A failed rotation
// does not lose the record; it is appended to the current file.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.maxSize > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil && r.file == nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	if r.maxBackups > 0 {
		_ = os.Remove(r.backup(r.maxBackups))
		for n := r.maxBackups - 1; n >= 1; n-- {
			_ = os.Rename(r.backup(n), r.backup(n+1))
		}
		_ = os.Rename(r.path, r.backup(1))
	} else {
		_ = os.Remove(r.path)
	}
	return r.open()
}

func (r *RotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", r.path, n)
}

// ParseSize parses sizes like "10MB" or "512 KiB" into bytes. Empty or
// malformed sizes give 0.
func ParseSize(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return int64(n)
}
