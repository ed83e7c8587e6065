package persistence

import (
	"fmt"
	"os"
)

// scratchLimit caps the batch buffer kept between appends.
const scratchLimit = 1 << 20

// LogFile is the on-disk command log. Every batch of frames reaches the file
// in one write. It tracks its own size so callers never stat the file on
// the write path.
//
// LogFile is not safe for concurrent use; LazyAOFWriter serializes access.
type LogFile struct {
	path    string
	file    *os.File
	size    int64
	scratch []byte
}

// OpenLogFile opens the log at path for appending, creating it if needed.
func OpenLogFile(path string) (*LogFile, error) {
	l := &LogFile{path: path}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LogFile) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open command log %s: %w", l.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat command log %s: %w", l.path, err)
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// Append writes frames back to back.
func (l *LogFile) Append(frames [][]byte) error {
	if len(frames) == 0 {
		return nil
	}
	batch := l.scratch[:0]
	for _, frame := range frames {
		batch = append(batch, frame...)
	}
	n, err := l.file.Write(batch)
	l.size += int64(n)
	if cap(batch) <= scratchLimit {
		l.scratch = batch[:0]
	} else {
		l.scratch = nil
	}
	return err
}

// Sync fsyncs the file.
func (l *LogFile) Sync() error {
	return l.file.Sync()
}

// Close closes the file.
func (l *LogFile) Close() error {
	return l.file.Close()
}

// Size returns the number of bytes in the log.
func (l *LogFile) Size() int64 { return l.size }

// Path returns the file path.
func (l *LogFile) Path() string { return l.path }

// TruncateTo cuts the log to size bytes. Appends continue at the new end
// because the file is opened with O_APPEND.
func (l *LogFile) TruncateTo(size int64) error {
	if err := l.file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate command log to %d bytes: %w", size, err)
	}
	l.size = size
	return nil
}

// Swap renames replacement over the log and reopens it. The old file is
// closed first, so on error the LogFile is unusable.
func (l *LogFile) Swap(replacement string) error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close command log before swap: %w", err)
	}
	if err := os.Rename(replacement, l.path); err != nil {
		return fmt.Errorf("failed to replace command log: %w", err)
	}
	return l.open()
}
