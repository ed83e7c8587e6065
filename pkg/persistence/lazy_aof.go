package persistence

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrWriterClosed is returned by writes after Close.
var ErrWriterClosed = errors.New("AOF writer is closed")

// LazyAOFWriter batches frames in memory and hands them to a LogFile
// periodically instead of on every mutation.
//
// Durability: frames reach the OS every FlushInterval (or as soon as
// MaxBufferSize frames are pending) and are fsynced every SyncInterval.
// Close flushes and syncs everything. A crash can lose up to SyncInterval of
// writes.
type LazyAOFWriter struct {
	file *LogFile

	mu      sync.Mutex
	buffer  [][]byte
	stopped bool

	stopCh chan struct{}
	wg     sync.WaitGroup

	cfg LazyConfig
}

// LazyConfig tunes the batching of a LazyAOFWriter.
type LazyConfig struct {
	FlushInterval time.Duration
	SyncInterval  time.Duration
	MaxBufferSize int
}

// Default batching parameters.
const (
	DefaultLazyFlushInterval = 100 * time.Millisecond
	DefaultForceSyncInterval = 1 * time.Second
	DefaultMaxBufferSize     = 1000
)

// DefaultLazyConfig returns the default batching parameters.
func DefaultLazyConfig() LazyConfig {
	return LazyConfig{
		FlushInterval: DefaultLazyFlushInterval,
		SyncInterval:  DefaultForceSyncInterval,
		MaxBufferSize: DefaultMaxBufferSize,
	}
}

// NewLazyAOFWriter wraps file, which must not be used directly afterwards.
// Zero fields in cfg take their defaults.
func NewLazyAOFWriter(file *LogFile, cfg LazyConfig) *LazyAOFWriter {
	def := DefaultLazyConfig()
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = def.MaxBufferSize
	}

	lw := &LazyAOFWriter{
		file:   file,
		buffer: make([][]byte, 0, cfg.MaxBufferSize),
		stopCh: make(chan struct{}),
		cfg:    cfg,
	}

	lw.wg.Add(1)
	go lw.loop()

	slog.Debug("LazyAOFWriter initialized",
		"path", file.Path(),
		"flush_interval", cfg.FlushInterval,
		"sync_interval", cfg.SyncInterval,
		"max_buffer_size", cfg.MaxBufferSize,
	)
	return lw
}

// Write queues a frame. When the buffer is full it is flushed inline.
func (lw *LazyAOFWriter) Write(frame []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.stopped {
		return ErrWriterClosed
	}
	lw.buffer = append(lw.buffer, frame)
	if len(lw.buffer) >= lw.cfg.MaxBufferSize {
		return lw.flushLocked()
	}
	return nil
}

// Flush hands every queued frame to the OS.
func (lw *LazyAOFWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.flushLocked()
}

func (lw *LazyAOFWriter) flushLocked() error {
	if len(lw.buffer) == 0 {
		return nil
	}
	if err := lw.file.Append(lw.buffer); err != nil {
		return err
	}
	clear(lw.buffer)
	lw.buffer = lw.buffer[:0]
	return nil
}

// Sync flushes queued frames and fsyncs the file.
func (lw *LazyAOFWriter) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.flushLocked(); err != nil {
		return err
	}
	return lw.file.Sync()
}

// Close stops the background loop, then flushes, syncs and closes the file.
func (lw *LazyAOFWriter) Close() error {
	lw.mu.Lock()
	if lw.stopped {
		lw.mu.Unlock()
		return ErrWriterClosed
	}
	lw.stopped = true
	lw.mu.Unlock()

	close(lw.stopCh)
	lw.wg.Wait()

	lw.mu.Lock()
	defer lw.mu.Unlock()
	if err := lw.flushLocked(); err != nil {
		slog.Error("Failed to flush AOF during close", "error", err)
	}
	if err := lw.file.Sync(); err != nil {
		slog.Error("Failed to sync AOF during close", "error", err)
	}
	return lw.file.Close()
}

// Size returns the on-disk size after flushing queued frames.
func (lw *LazyAOFWriter) Size() (int64, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.flushLocked(); err != nil {
		return 0, err
	}
	return lw.file.Size(), nil
}

// Path returns the log file path.
func (lw *LazyAOFWriter) Path() string {
	return lw.file.Path()
}

// Truncate drops queued frames and cuts the file to size bytes.
func (lw *LazyAOFWriter) Truncate(size int64) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	clear(lw.buffer)
	lw.buffer = lw.buffer[:0]
	return lw.file.TruncateTo(size)
}

// ReplaceWith flushes queued frames and swaps in newFilePath.
func (lw *LazyAOFWriter) ReplaceWith(newFilePath string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.flushLocked(); err != nil {
		return err
	}
	return lw.file.Swap(newFilePath)
}

func (lw *LazyAOFWriter) loop() {
	defer lw.wg.Done()

	flushTicker := time.NewTicker(lw.cfg.FlushInterval)
	defer flushTicker.Stop()
	syncTicker := time.NewTicker(lw.cfg.SyncInterval)
	defer syncTicker.Stop()

	for {
		select {
		case <-flushTicker.C:
			if err := lw.Flush(); err != nil {
				slog.Error("Periodic AOF flush failed", "error", err)
			}
		case <-syncTicker.C:
			if err := lw.Sync(); err != nil {
				slog.Error("Periodic AOF sync failed", "error", err)
			}
		case <-lw.stopCh:
			return
		}
	}
}
