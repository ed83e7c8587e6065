package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Command is one logged mutation. Args holds the operation-specific
// arguments as raw JSON so the log can be decoded without knowing every
// operation up front.
type Command struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FormatCommand encodes op and args into a ready-to-append frame.
func FormatCommand(op string, args any) ([]byte, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s arguments: %w", op, err)
	}
	payload, err := json.Marshal(Command{Op: op, Args: raw})
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %s command is %d bytes", ErrFrameTooLarge, op, len(payload))
	}
	return EncodeFrame(OpCodeCommand, payload), nil
}

// CommandWriter streams formatted commands to w. It is the write side of
// CommandReader and is used to build a compacted log from scratch.
type CommandWriter struct {
	w     io.Writer
	count int
	bytes int64
}

// NewCommandWriter wraps w. Callers own buffering and flushing.
func NewCommandWriter(w io.Writer) *CommandWriter {
	return &CommandWriter{w: w}
}

// Append formats one command and writes its frame.
func (cw *CommandWriter) Append(op string, args any) error {
	frame, err := FormatCommand(op, args)
	if err != nil {
		return err
	}
	n, err := cw.w.Write(frame)
	cw.bytes += int64(n)
	if err != nil {
		return err
	}
	cw.count++
	return nil
}

// Count returns the number of commands written.
func (cw *CommandWriter) Count() int { return cw.count }

// Bytes returns the number of bytes written, partial frames included.
func (cw *CommandWriter) Bytes() int64 { return cw.bytes }

// Decode unmarshals the command arguments into v.
func (c Command) Decode(v any) error {
	if err := json.Unmarshal(c.Args, v); err != nil {
		return fmt.Errorf("malformed %s arguments: %w", c.Op, err)
	}
	return nil
}

// CommandReader decodes commands from an AOF stream and tracks the offset of
// the last complete frame.
type CommandReader struct {
	r      *bufio.Reader
	offset int64
}

// NewCommandReader wraps r.
func NewCommandReader(r io.Reader) *CommandReader {
	return &CommandReader{r: bufio.NewReader(r)}
}

// Offset returns the number of bytes consumed by complete, valid frames.
// After a torn tail this is the size the file should be truncated to.
func (cr *CommandReader) Offset() int64 { return cr.offset }

// Next returns the next command. It returns io.EOF at a clean end of stream
// and a frame error (ErrIncompleteFrame, ErrChecksumMismatch, ...) when the
// stream is damaged; Offset is not advanced past a damaged frame.
func (cr *CommandReader) Next() (Command, error) {
	op, payload, n, err := ReadFrame(cr.r)
	if err != nil {
		return Command{}, err
	}
	if op != OpCodeCommand {
		return Command{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpCode, op)
	}
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("malformed command payload: %w", err)
	}
	cr.offset += int64(n)
	return cmd, nil
}
