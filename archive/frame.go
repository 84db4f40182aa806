// Package archive stores a prediction aggregate as a portable binary file.
//
// An archive is a sequence of length-prefixed frames. Each frame is a 4-byte
// big-endian payload length followed by a msgpack map carrying a "type"
// discriminant. A well-formed archive is one header frame, one entry frame
// per aggregate entry, and one trailer frame holding the entry count.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	FrameTypeHeader  = "header"
	FrameTypeEntry   = "entry"
	FrameTypeTrailer = "trailer"
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind string

const (
	// FrameErrorEOF means the stream ended before the trailer frame.
	FrameErrorEOF FrameErrorKind = "eof"
	// FrameErrorTruncated means a frame was cut short, or the frame
	// sequence does not match the trailer.
	FrameErrorTruncated FrameErrorKind = "truncated"
	// FrameErrorOversize means a length prefix exceeds MaxPayloadSize.
	FrameErrorOversize FrameErrorKind = "oversize"
	// FrameErrorDecode means a payload is not the msgpack shape expected.
	FrameErrorDecode FrameErrorKind = "decode"
)

// FrameError represents a frame read or decode failure.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("archive %s: %s", e.Kind, e.Msg)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the stream can no longer be read. Only a decode
// error leaves the frame boundary intact.
func (e *FrameError) IsFatal() bool {
	return e.Kind != FrameErrorDecode
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder reads length-prefixed frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads one frame and returns its raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly on a frame boundary
//   - *FrameError with Kind=FrameErrorTruncated: incomplete frame
//   - *FrameError with Kind=FrameErrorOversize: frame exceeds limit
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorTruncated,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorOversize,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorTruncated,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// FrameEncoder writes length-prefixed frames to a stream.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame writes payload behind its length prefix.
func (e *FrameEncoder) WriteFrame(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorOversize,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := e.writer.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err := e.writer.Write(payload)
	return err
}
