package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sanonone/kektornav/pkg/persistence"
)

// replayAOF rebuilds the registries from the log. A damaged tail (torn
// write, checksum mismatch) ends the replay and is cut off so new frames
// are appended after the last good one. Commands that no longer apply are
// skipped with a warning.
func (e *Engine) replayAOF(aof *persistence.LazyAOFWriter) error {
	file, err := os.Open(aof.Path())
	if err != nil {
		return err
	}
	defer file.Close()

	reader := persistence.NewCommandReader(file)
	applied, skipped := 0, 0
	for {
		cmd, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !isFrameDamage(err) {
				return err
			}
			slog.Warn("AOF has a damaged tail, truncating",
				"error", err,
				"offset", reader.Offset(),
			)
			if err := aof.Truncate(reader.Offset()); err != nil {
				return fmt.Errorf("failed to truncate damaged AOF: %w", err)
			}
			break
		}

		if err := e.apply(cmd); err != nil {
			slog.Warn("Skipping AOF command", "op", cmd.Op, "error", err)
			skipped++
			continue
		}
		applied++
	}

	slog.Debug("AOF replay complete", "applied", applied, "skipped", skipped)
	return nil
}

func isFrameDamage(err error) bool {
	return errors.Is(err, persistence.ErrIncompleteFrame) ||
		errors.Is(err, persistence.ErrChecksumMismatch) ||
		errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrFrameTooLarge)
}

// apply executes one logged command through the public API. It is only
// called while e.aof is nil, so nothing is logged twice.
func (e *Engine) apply(cmd persistence.Command) error {
	switch cmd.Op {
	case opCreateGraph:
		var args createGraphArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.CreateGraph(args.Graph, args.Dimension)
	case opDropGraph:
		var args nameArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.DropGraph(args.Name)
	case opAddNode:
		var args addNodeArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.AddNode(args.Graph, args.ID, args.Pos, args.Area)
	case opRemoveNode:
		var args removeNodeArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.RemoveNode(args.Graph, args.ID)
	case opLink:
		var args linkArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.Link(args.Graph, args.Src, args.Dst, args.Cost, args.Bidirectional)
	case opUnlink:
		var args linkArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.Unlink(args.Graph, args.Src, args.Dst, args.Bidirectional)
	case opCreateGrid:
		var args createGridArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.CreateGrid(args.Grid, args.Width, args.Height, args.Diagonal)
	case opDropGrid:
		var args nameArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.DropGrid(args.Name)
	case opSetCell:
		var args setCellArgs
		if err := cmd.Decode(&args); err != nil {
			return err
		}
		return e.SetCell(args.Grid, args.Cell)
	default:
		return fmt.Errorf("unknown command %q", cmd.Op)
	}
}

// RewriteAOF compacts the log: the current state is written as a fresh
// sequence of commands to a temporary file that atomically replaces the
// AOF. Writers are blocked for the duration.
func (e *Engine) RewriteAOF() error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.aof == nil {
		return nil
	}

	tempAof := filepath.Join(e.opts.DataDir, "rewrite.tmp")
	f, err := os.Create(tempAof)
	if err != nil {
		return err
	}
	defer os.Remove(tempAof)

	w := bufio.NewWriter(f)
	cw := persistence.NewCommandWriter(w)
	emit := cw.Append

	for _, ge := range e.graphs {
		if err := emitGraph(ge, emit); err != nil {
			f.Close()
			return fmt.Errorf("failed to rewrite graph %q: %w", ge.name, err)
		}
	}
	for _, ge := range e.grids {
		if err := emitGrid(ge, emit); err != nil {
			f.Close()
			return fmt.Errorf("failed to rewrite grid %q: %w", ge.name, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := e.aof.ReplaceWith(tempAof); err != nil {
		return err
	}
	size, err := e.aof.Size()
	if err != nil {
		return err
	}
	e.aofBaseSize.Store(size)
	slog.Info("AOF rewrite complete",
		"size", size,
		"commands", cw.Count(),
		"graphs", len(e.graphs),
		"grids", len(e.grids),
	)
	return nil
}
