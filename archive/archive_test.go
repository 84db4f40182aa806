package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/knotfold/types"
)

func testAggregate(t *testing.T) *types.Aggregate {
	t.Helper()
	base, err := types.StructureFromPairs(24, [2]int{1, 15}, [2]int{2, 14}, [2]int{3, 13})
	if err != nil {
		t.Fatal(err)
	}
	base.Energy = -42

	knot := base.Clone()
	for _, p := range [][2]int{{8, 22}, {9, 21}, {10, 20}} {
		if err := knot.Pair(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}
	knot.Energy = -51
	src := types.NewHelix(8, 22, 3, -30)

	return &types.Aggregate{Entries: []types.Entry{
		{Structure: base, Baseline: true},
		{Structure: knot, Source: &src, Pseudoknotted: true},
	}}
}

func testHeader() Header {
	return Header{
		RunID:       "run-1",
		Label:       "kissing",
		Sequence:    "GGGAAAACCCAACCCAAAAGGGAA",
		Alphabet:    "rna",
		Temperature: 310.15,
		E0:          -42,
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	agg := testAggregate(t)
	var buf bytes.Buffer
	if err := Write(&buf, testHeader(), agg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got.Header.Label != "kissing" || got.Header.E0 != -42 {
		t.Errorf("header = %+v", got.Header)
	}
	if got.Header.Version != types.Version || got.Header.ArchiveVersion != types.ArchiveVersion {
		t.Errorf("versions = %q/%q", got.Header.Version, got.Header.ArchiveVersion)
	}
	if got.Trailer.Count != 2 || got.Trailer.Pseudoknotted != 1 {
		t.Errorf("trailer = %+v", got.Trailer)
	}
	if got.Aggregate.Len() != 2 {
		t.Fatalf("entries = %d, want 2", got.Aggregate.Len())
	}
	for i, e := range got.Aggregate.Entries {
		want := agg.Entries[i]
		if !e.Structure.Equal(want.Structure) || e.Structure.Energy != want.Structure.Energy {
			t.Errorf("entry %d structure mismatch", i)
		}
		if e.Baseline != want.Baseline || e.Pseudoknotted != want.Pseudoknotted {
			t.Errorf("entry %d flags = %v/%v", i, e.Baseline, e.Pseudoknotted)
		}
	}
	if src := got.Aggregate.Entries[1].Source; src == nil || !src.SameStrands(*agg.Entries[1].Source) {
		t.Errorf("entry 1 source = %v", src)
	}
	if got.Aggregate.Entries[0].Source != nil {
		t.Error("baseline should carry no source helix")
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.kfa")
	if err := WriteFile(path, testHeader(), testAggregate(t)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got.Aggregate.Len() != 2 {
		t.Errorf("entries = %d, want 2", got.Aggregate.Len())
	}
}

func TestRead_Errors(t *testing.T) {
	var full bytes.Buffer
	if err := Write(&full, testHeader(), testAggregate(t)); err != nil {
		t.Fatal(err)
	}
	data := full.Bytes()

	// Header frame only: the stream ends cleanly on a boundary.
	headerLen := LengthPrefixSize + int(binary.BigEndian.Uint32(data[:LengthPrefixSize]))

	oversize := make([]byte, LengthPrefixSize)
	binary.BigEndian.PutUint32(oversize, MaxPayloadSize+1)

	garbage := []byte{0, 0, 0, 2, 0xc1, 0xc1}

	tests := []struct {
		name  string
		input []byte
		want  FrameErrorKind
		fatal bool
	}{
		{name: "empty", input: nil, want: FrameErrorEOF, fatal: true},
		{name: "no trailer", input: data[:headerLen], want: FrameErrorEOF, fatal: true},
		{name: "cut mid frame", input: data[:len(data)-3], want: FrameErrorTruncated, fatal: true},
		{name: "cut in prefix", input: data[:2], want: FrameErrorTruncated, fatal: true},
		{name: "oversize", input: oversize, want: FrameErrorOversize, fatal: true},
		{name: "not msgpack", input: garbage, want: FrameErrorDecode, fatal: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.input))
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want *FrameError", err)
			}
			if fe.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", fe.Kind, tt.want)
			}
			if IsFatalFrameError(err) != tt.fatal {
				t.Errorf("IsFatalFrameError = %v, want %v", !tt.fatal, tt.fatal)
			}
		})
	}
}

func TestRead_TrailerCountMismatch(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	for _, v := range []any{
		Header{Type: FrameTypeHeader, ArchiveVersion: types.ArchiveVersion, Label: "x"},
		entryFrame{Type: FrameTypeEntry, Index: 0},
		Trailer{Type: FrameTypeTrailer, Count: 3},
	} {
		payload, err := msgpack.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if err := enc.WriteFrame(payload); err != nil {
			t.Fatal(err)
		}
	}

	_, err := Read(&buf)
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Kind != FrameErrorTruncated {
		t.Errorf("error = %v, want truncated", err)
	}
}

func TestRead_RejectsOtherArchiveVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Header{ArchiveVersion: "0", Label: "old"}, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, err := Read(&buf)
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Kind != FrameErrorDecode {
		t.Errorf("error = %v, want decode error", err)
	}
}

func TestWriter_FrameOrder(t *testing.T) {
	w := NewWriter(io.Discard)
	if err := w.WriteEntry(types.Entry{}); err == nil {
		t.Error("entry before header should fail")
	}
	if err := w.WriteHeader(testHeader()); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteHeader(testHeader()); err == nil {
		t.Error("second header should fail")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteEntry(types.Entry{}); err == nil {
		t.Error("entry after close should fail")
	}
}

func TestFrameDecoder_CleanEOF(t *testing.T) {
	dec := NewFrameDecoder(bytes.NewReader(nil))
	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}
