package rna

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"

	"github.com/justapithecus/knotfold/iox"
	"github.com/justapithecus/knotfold/types"
)

// Record is one named sequence text read from a file.
type Record struct {
	Label string
	Text  string
}

// Load reads the first sequence in path. FASTA, .seq and plain text
// files are accepted.
func Load(path string, alphabet Alphabet) (*Sequence, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	return NewSequence(records[0].Label, records[0].Text, alphabet)
}

// LoadAll reads every sequence in path, in file order.
func LoadAll(path string, alphabet Alphabet) ([]*Sequence, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	out := make([]*Sequence, 0, len(records))
	for _, r := range records {
		s, err := NewSequence(r.Label, r.Text, alphabet)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// readRecords maps the file read-only and splits it into records.
func readRecords(path string) ([]Record, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, types.WrapError(types.CodeInvalidSequence, path, err)
	}
	defer iox.DiscardClose(fp)

	info, err := fp.Stat()
	if err != nil {
		return nil, types.WrapError(types.CodeInvalidSequence, path, err)
	}
	if info.Size() == 0 {
		return nil, types.NewError(types.CodeInvalidSequence, path, "file is empty")
	}

	mm, err := mmap.Map(fp, mmap.RDONLY, 0)
	if err != nil {
		return nil, types.WrapError(types.CodeInvalidSequence, path, err)
	}
	defer iox.DiscardErr(mm.Unmap)

	records, err := ParseRecords(mm, defaultLabel(path))
	if err != nil {
		return nil, types.WrapError(types.CodeInvalidSequence, path, err)
	}
	return records, nil
}

// ParseRecords splits file contents into records. The format is chosen by
// the first non-blank character: '>' for FASTA, ';' for .seq, anything
// else for a single plain sequence labelled fallback.
func ParseRecords(data []byte, fallback string) ([]Record, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no sequence data")
	}
	switch trimmed[0] {
	case '>':
		return parseFASTA(trimmed)
	case ';':
		return parseSeq(trimmed)
	default:
		return []Record{{Label: fallback, Text: string(trimmed)}}, nil
	}
}

func parseFASTA(data []byte) ([]Record, error) {
	var out []Record
	var cur *Record
	var text strings.Builder
	flush := func() {
		if cur != nil {
			cur.Text = text.String()
			out = append(out, *cur)
			text.Reset()
		}
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) > 0 && line[0] == '>' {
			flush()
			label := strings.TrimSpace(string(line[1:]))
			if fields := strings.Fields(label); len(fields) > 0 {
				label = fields[0]
			}
			cur = &Record{Label: label}
			continue
		}
		text.Write(line)
	}
	flush()
	for i, r := range out {
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("record %d (%s) has no sequence", i+1, r.Label)
		}
	}
	return out, nil
}

// parseSeq reads the .seq layout: ';' comment lines, one title line, then
// sequence text terminated by '1'.
func parseSeq(data []byte) ([]Record, error) {
	lines := bytes.Split(data, []byte("\n"))
	idx := 0
	for idx < len(lines) && bytes.HasPrefix(bytes.TrimSpace(lines[idx]), []byte(";")) {
		idx++
	}
	if idx >= len(lines) {
		return nil, fmt.Errorf("missing title line")
	}
	label := strings.TrimSpace(string(lines[idx]))
	var text strings.Builder
	terminated := false
	for _, line := range lines[idx+1:] {
		if end := bytes.IndexByte(line, '1'); end >= 0 {
			text.Write(line[:end])
			terminated = true
			break
		}
		text.Write(line)
	}
	if !terminated {
		return nil, fmt.Errorf("sequence not terminated by '1'")
	}
	return []Record{{Label: label, Text: text.String()}}, nil
}

func defaultLabel(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
