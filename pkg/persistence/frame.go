package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the AOF binary protocol.
const (
	// MagicByte marks the start of a frame.
	MagicByte = 0xA5

	// HeaderSize is the fixed size of the frame metadata:
	// 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10

	// OpCodeCommand is a JSON encoded mutation (see Command).
	OpCodeCommand = 0x01

	// MaxFrameSize bounds the payload length a frame may declare.
	MaxFrameSize = 64 << 20
)

var (
	// ErrInvalidMagic indicates the file stream lost synchronization or is not a valid AOF.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended abruptly (e.g., power loss during write).
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrUnknownOpCode indicates a frame type this version cannot decode.
	ErrUnknownOpCode = errors.New("unknown frame opcode")
	// ErrFrameTooLarge indicates a length field above MaxFrameSize, usually a
	// damaged header.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// EncodeFrame wraps payload into a single binary frame.
// Frame Format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)]
//
// Header and payload share one buffer so the frame reaches the file with a
// single write.
func EncodeFrame(op byte, payload []byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	frame[0] = MagicByte
	frame[1] = op
	binary.LittleEndian.PutUint32(frame[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(frame[6:10], crc32.ChecksumIEEE(payload))
	copy(frame[HeaderSize:], payload)
	return frame
}

// ReadFrame reads the next frame from the reader.
// It validates the Magic Byte and the CRC32 Checksum.
// Returns the opcode, the payload, the total bytes read (header + payload)
// and an error. A clean end of stream is io.EOF.
func ReadFrame(r io.Reader) (byte, []byte, int, error) {
	header := make([]byte, HeaderSize)

	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return 0, nil, 0, io.EOF
		}
		// Partial header (ErrUnexpectedEOF) means a torn write.
		return 0, nil, 0, ErrIncompleteFrame
	}

	if header[0] != MagicByte {
		return 0, nil, HeaderSize, ErrInvalidMagic
	}

	op := header[1]
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])
	if length > MaxFrameSize {
		return op, nil, HeaderSize, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return op, nil, HeaderSize, ErrIncompleteFrame
	}

	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return op, nil, HeaderSize + int(length), ErrChecksumMismatch
	}

	return op, payload, HeaderSize + int(length), nil
}
