package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameBytes bounds a single stream frame. A frame larger than this is a
// protocol violation, not a legitimate payload.
const MaxFrameBytes = 4 << 20

// FrameWriter writes length-prefixed message frames to a stream.
// The prefix is a protobuf uvarint holding the encoded message length.
type FrameWriter struct {
	w *bufio.Writer
}

// NewFrameWriter creates a FrameWriter on top of w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriter(w)}
}

// WriteFrame encodes msg and writes it as one frame.
func (fw *FrameWriter) WriteFrame(msg *Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	if len(data) > MaxFrameBytes {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(data), MaxFrameBytes)
	}
	header := protowire.AppendVarint(nil, uint64(len(data)))
	if _, err := fw.w.Write(header); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := fw.w.Write(data); err != nil {
		return fmt.Errorf("failed to write frame body: %w", err)
	}
	return fw.w.Flush()
}

// FrameReader reads length-prefixed message frames from a stream.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader creates a FrameReader on top of r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame reads and decodes the next frame.
// Returns io.EOF when the stream ends cleanly on a frame boundary.
func (fr *FrameReader) ReadFrame() (*Message, error) {
	size, err := binary.ReadUvarint(fr.r)
	if err != nil {
		return nil, err
	}
	if size > MaxFrameBytes {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", size, MaxFrameBytes)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	var msg Message
	if err := msg.Decode(buf); err != nil {
		return nil, err
	}
	return &msg, nil
}
