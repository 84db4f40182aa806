package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/knotfold/iox"
	"github.com/justapithecus/knotfold/types"
)

// Header opens an archive and describes the folded sequence.
type Header struct {
	Type           string       `msgpack:"type"`
	ArchiveVersion string       `msgpack:"archive_version"`
	Version        string       `msgpack:"version"`
	RunID          string       `msgpack:"run_id,omitempty"`
	Label          string       `msgpack:"label"`
	Sequence       string       `msgpack:"sequence"`
	Alphabet       string       `msgpack:"alphabet"`
	Temperature    float64      `msgpack:"temperature"`
	E0             types.Energy `msgpack:"e0"`
}

type entryFrame struct {
	Type  string      `msgpack:"type"`
	Index int         `msgpack:"index"`
	Entry types.Entry `msgpack:"entry"`
}

// Trailer closes an archive.
type Trailer struct {
	Type          string `msgpack:"type"`
	Count         int    `msgpack:"count"`
	Pseudoknotted int    `msgpack:"pseudoknotted"`
}

// Archive is a decoded archive file.
type Archive struct {
	Header    Header
	Aggregate types.Aggregate
	Trailer   Trailer
}

// frameTypeProbe peeks at the type field without a full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

var errWriterState = errors.New("archive: frames out of order")

// Writer encodes an aggregate frame by frame.
type Writer struct {
	enc           *FrameEncoder
	headerWritten bool
	closed        bool
	count         int
	pseudoknotted int
}

// NewWriter returns a writer over w. The caller owns w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: NewFrameEncoder(w)}
}

// WriteHeader writes the header frame. It must come first.
func (w *Writer) WriteHeader(h Header) error {
	if w.headerWritten || w.closed {
		return errWriterState
	}
	h.Type = FrameTypeHeader
	if h.ArchiveVersion == "" {
		h.ArchiveVersion = types.ArchiveVersion
	}
	if h.Version == "" {
		h.Version = types.Version
	}
	if err := w.encode(h); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

// WriteEntry appends one aggregate entry.
func (w *Writer) WriteEntry(e types.Entry) error {
	if !w.headerWritten || w.closed {
		return errWriterState
	}
	if err := w.encode(entryFrame{Type: FrameTypeEntry, Index: w.count, Entry: e}); err != nil {
		return err
	}
	w.count++
	if e.Pseudoknotted {
		w.pseudoknotted++
	}
	return nil
}

// Close writes the trailer frame. It does not close the underlying writer.
func (w *Writer) Close() error {
	if !w.headerWritten || w.closed {
		return errWriterState
	}
	w.closed = true
	return w.encode(Trailer{Type: FrameTypeTrailer, Count: w.count, Pseudoknotted: w.pseudoknotted})
}

func (w *Writer) encode(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("archive: encode frame: %w", err)
	}
	return w.enc.WriteFrame(payload)
}

// Write encodes a complete archive of agg.
func Write(out io.Writer, h Header, agg *types.Aggregate) error {
	w := NewWriter(out)
	if err := w.WriteHeader(h); err != nil {
		return err
	}
	if agg != nil {
		for _, e := range agg.Entries {
			if err := w.WriteEntry(e); err != nil {
				return err
			}
		}
	}
	return w.Close()
}

// WriteFile writes a complete archive to path, replacing any existing file.
func WriteFile(path string, h Header, agg *types.Aggregate) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer iox.CloseInto(&err, f)

	bw := bufio.NewWriter(f)
	if err := Write(bw, h, agg); err != nil {
		return err
	}
	return bw.Flush()
}

// Read decodes a complete archive. A stream that ends before the trailer,
// or whose trailer count disagrees with the entries read, is an error.
func Read(r io.Reader) (*Archive, error) {
	dec := NewFrameDecoder(r)
	out := &Archive{}

	payload, err := dec.ReadFrame()
	if err != nil {
		return nil, endOfStream(err, "missing header frame")
	}
	kind, err := probe(payload)
	if err != nil {
		return nil, err
	}
	if kind != FrameTypeHeader {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("first frame is %q, want header", kind)}
	}
	if err := decode(payload, &out.Header); err != nil {
		return nil, err
	}
	if out.Header.ArchiveVersion != types.ArchiveVersion {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("archive version %q, want %q", out.Header.ArchiveVersion, types.ArchiveVersion),
		}
	}

	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			return nil, endOfStream(err, "missing trailer frame")
		}
		kind, err := probe(payload)
		if err != nil {
			return nil, err
		}

		switch kind {
		case FrameTypeEntry:
			var ef entryFrame
			if err := decode(payload, &ef); err != nil {
				return nil, err
			}
			if ef.Index != len(out.Aggregate.Entries) {
				return nil, &FrameError{
					Kind: FrameErrorTruncated,
					Msg:  fmt.Sprintf("entry index %d, want %d", ef.Index, len(out.Aggregate.Entries)),
				}
			}
			out.Aggregate.Entries = append(out.Aggregate.Entries, ef.Entry)
		case FrameTypeTrailer:
			if err := decode(payload, &out.Trailer); err != nil {
				return nil, err
			}
			if out.Trailer.Count != len(out.Aggregate.Entries) {
				return nil, &FrameError{
					Kind: FrameErrorTruncated,
					Msg:  fmt.Sprintf("trailer count %d, read %d entries", out.Trailer.Count, len(out.Aggregate.Entries)),
				}
			}
			return out, nil
		default:
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unexpected frame type %q", kind)}
		}
	}
}

// ReadFile decodes the archive at path.
func ReadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(f)
	return Read(bufio.NewReader(f))
}

func endOfStream(err error, msg string) error {
	if err == io.EOF {
		return &FrameError{Kind: FrameErrorEOF, Msg: msg}
	}
	return err
}

func probe(payload []byte) (string, error) {
	var p frameTypeProbe
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return "", &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}
	return p.Type, nil
}

func decode(payload []byte, v any) error {
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame", Err: err}
	}
	return nil
}
