// Package engine provides the high-level, embedded interface for KektorNav.
//
// It keeps named waypoint graphs and tile grids in memory, answers A* path
// queries against them and logs every mutation to an Append-Only File so the
// state survives restarts. An Engine can be used directly from Go programs
// without network overhead.
//
// Basic usage:
//
//	opts := engine.DefaultOptions("./data")
//	nav, err := engine.Open(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer nav.Close()
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/persistence"
)

var (
	// ErrGraphNotFound is returned when a waypoint graph does not exist.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrGraphExists is returned when creating a graph or grid whose name is taken.
	ErrGraphExists = errors.New("graph already exists")
	// ErrGridNotFound is returned when a grid does not exist.
	ErrGridNotFound = errors.New("grid not found")
	// ErrInvalidName is returned for empty graph or grid names.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidArgument is returned for out of range options.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is returned by mutations after Close.
	ErrClosed = errors.New("engine is closed")
)

// Options configures persistence and search behaviour of the Engine.
type Options struct {
	// DataDir is the directory holding the AOF. It is created if missing.
	// An empty DataDir runs the engine purely in memory.
	DataDir string

	// AofFilename is the name of the Append-Only File (default: "kektornav.aof").
	AofFilename string

	// Policy configures every search object the engine creates.
	Policy astar.Policy

	// AutoFlushInterval is how often buffered AOF frames are handed to the OS.
	AutoFlushInterval time.Duration

	// AofRewritePercentage triggers an automatic AOF compaction when the file
	// grows by this percentage over its size after the last rewrite.
	// E.g., 100 means rewrite when size doubles. Set to 0 to disable.
	AofRewritePercentage int

	// MaintenanceInterval is how often the rewrite policy is evaluated.
	MaintenanceInterval time.Duration
}

// DefaultOptions returns a standard configuration.
//
// Defaults:
//   - AofFilename: "kektornav.aof"
//   - Policy: astar.DefaultPolicy()
//   - AutoFlush: every 100ms
//   - AofRewrite: at 100% growth, checked every 5s
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:              dataDir,
		AofFilename:          "kektornav.aof",
		Policy:               astar.DefaultPolicy(),
		AutoFlushInterval:    persistence.DefaultLazyFlushInterval,
		AofRewritePercentage: 100,
		MaintenanceInterval:  5 * time.Second,
	}
}

// minRewriteSize keeps tiny logs from being rewritten constantly.
const minRewriteSize = 1024 * 1024

// Engine is the main entry point for KektorNav.
//
// Use Open() to initialize an Engine and Close() to shut it down gracefully.
// All methods are safe for concurrent use.
type Engine struct {
	opts    Options
	aofPath string

	// aof is nil for in-memory engines and while the log is being replayed.
	aof         *persistence.LazyAOFWriter
	aofBaseSize atomic.Int64

	// mu guards the registries. Mutations of a single graph hold it for
	// reading plus the graph's own lock; creating or dropping graphs holds
	// it for writing. Either way the AOF sees commands in apply order.
	mu     sync.RWMutex
	graphs map[string]*graphEntry
	grids  map[string]*gridEntry

	// adminMu serializes rewrites.
	adminMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open initializes a new Engine using the provided options.
//
// It creates DataDir if missing, replays the AOF to rebuild every graph and
// grid, and starts the background maintenance loop. It blocks until the
// state is fully loaded.
func Open(opts Options) (*Engine, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.AofFilename == "" {
		opts.AofFilename = "kektornav.aof"
	}

	e := &Engine{
		opts:   opts,
		graphs: make(map[string]*graphEntry),
		grids:  make(map[string]*gridEntry),
		closed: make(chan struct{}),
	}

	if opts.DataDir == "" {
		slog.Debug("Engine running in memory, persistence disabled")
		return e, nil
	}

	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	e.aofPath = filepath.Join(opts.DataDir, opts.AofFilename)

	logFile, err := persistence.OpenLogFile(e.aofPath)
	if err != nil {
		return nil, err
	}
	aof := persistence.NewLazyAOFWriter(logFile, persistence.LazyConfig{
		FlushInterval: opts.AutoFlushInterval,
	})

	// Replay before attaching the writer so replayed operations are not
	// logged a second time.
	if err := e.replayAOF(aof); err != nil {
		aof.Close()
		return nil, fmt.Errorf("failed to replay AOF: %w", err)
	}
	e.aof = aof

	size, err := aof.Size()
	if err != nil {
		aof.Close()
		return nil, err
	}
	e.aofBaseSize.Store(size)

	e.wg.Add(1)
	go e.backgroundTasks()

	slog.Info("Engine opened",
		"aof", e.aofPath,
		"graphs", len(e.graphs),
		"grids", len(e.grids),
	)
	return e, nil
}

// Close stops background maintenance and closes the AOF, flushing and
// syncing any pending frames. It is safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closed)
		e.wg.Wait()

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.aof != nil {
			err = e.aof.Close()
			e.aof = nil
		}
	})
	return err
}

// isClosed reports whether Close has been called.
func (e *Engine) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}

// logCommand appends a mutation to the AOF. Callers hold the locks that
// serialize the mutation so log order matches apply order.
func (e *Engine) logCommand(op string, args any) error {
	if e.aof == nil {
		return nil
	}
	frame, err := persistence.FormatCommand(op, args)
	if err != nil {
		return err
	}
	if err := e.aof.Write(frame); err != nil {
		return fmt.Errorf("failed to log %s: %w", op, err)
	}
	return nil
}

// backgroundTasks evaluates the AOF rewrite policy periodically.
func (e *Engine) backgroundTasks() {
	defer e.wg.Done()

	interval := e.opts.MaintenanceInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.closed:
			return
		case <-ticker.C:
			e.checkMaintenance()
		}
	}
}

// checkMaintenance rewrites the AOF once it outgrows the configured ratio.
func (e *Engine) checkMaintenance() {
	if e.opts.AofRewritePercentage <= 0 {
		return
	}
	e.mu.RLock()
	aof := e.aof
	e.mu.RUnlock()
	if aof == nil {
		return
	}

	currentSize, err := aof.Size()
	if err != nil {
		slog.Error("Failed to stat AOF", "error", err)
		return
	}
	base := e.aofBaseSize.Load()
	threshold := base + base*int64(e.opts.AofRewritePercentage)/100
	if threshold < minRewriteSize {
		threshold = minRewriteSize
	}
	if currentSize > threshold {
		slog.Info("AOF grew past rewrite threshold", "size", currentSize, "threshold", threshold)
		if err := e.RewriteAOF(); err != nil {
			slog.Error("Background AOF rewrite failed", "error", err)
		}
	}
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	return nil
}
