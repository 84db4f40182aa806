// Package render prints CLI payloads as json, yaml or a table.
//
// Without --format, a terminal gets a table and anything else gets json.
// --no-color only changes tables; TUI views style themselves.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/knotfold/cli/tui"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// Tabular payloads choose their own table columns.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))

// ParseFormat is case-insensitive. An empty string parses to "" so the
// caller can pick a default.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
}

type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer reads --format and --no-color and writes to the app writer.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(os.Stdout) {
			format = FormatTable
		}
	}
	return New(format, c.Bool("no-color"), c.App.Writer), nil
}

func New(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

func (r *Renderer) Format() Format {
	return r.format
}

func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	}
	return fmt.Errorf("unknown format: %s", r.format)
}

// RenderTUI runs an interactive view. Only the inspect and stats views
// have one.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// renderTable prints Tabular payloads as aligned rows. Anything else goes
// through its YAML form: a sequence becomes one row per item and a mapping
// becomes "key: value" lines, so column names follow the yaml tags.
func (r *Renderer) renderTable(data any) error {
	if t, ok := data.(Tabular); ok {
		return r.renderRows(t.Headers(), t.Rows())
	}

	var n yaml.Node
	if err := n.Encode(data); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	switch n.Kind {
	case yaml.SequenceNode:
		return r.renderRows(sequenceRows(&n))
	case yaml.MappingNode:
		return r.renderFields(&n)
	default:
		_, err := fmt.Fprintln(r.out, cell(&n))
		return err
	}
}

// renderRows writes an aligned table and styles the header line.
func (r *Renderer) renderRows(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	head, body, _ := strings.Cut(buf.String(), "\n")
	if !r.noColor {
		head = headerStyle.Render(head)
	}
	_, err := fmt.Fprintf(r.out, "%s\n%s", head, body)
	return err
}

func (r *Renderer) renderFields(m *yaml.Node) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for i := 0; i+1 < len(m.Content); i += 2 {
		fmt.Fprintf(w, "%s:\t%s\n", m.Content[i].Value, cell(m.Content[i+1]))
	}
	return w.Flush()
}

// sequenceRows takes column names from the first item. Later items may
// omit keys; their cells stay empty.
func sequenceRows(seq *yaml.Node) ([]string, [][]string) {
	if len(seq.Content) == 0 {
		return nil, nil
	}
	first := seq.Content[0]
	if first.Kind != yaml.MappingNode {
		rows := make([][]string, 0, len(seq.Content))
		for _, item := range seq.Content {
			rows = append(rows, []string{cell(item)})
		}
		return []string{"value"}, rows
	}

	var headers []string
	for i := 0; i < len(first.Content); i += 2 {
		headers = append(headers, first.Content[i].Value)
	}
	rows := make([][]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		row := make([]string, len(headers))
		for j, h := range headers {
			if v := lookup(item, h); v != nil {
				row[j] = cell(v)
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// cell flattens a value into one table cell. Flat maps print as
// "k=v" pairs; deeper values print their size.
func cell(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return ""
		}
		return n.Value
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", len(n.Content))
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			return "{}"
		}
		parts := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i+1].Kind != yaml.ScalarNode {
				return fmt.Sprintf("{%d keys}", len(n.Content)/2)
			}
			parts = append(parts, n.Content[i].Value+"="+cell(n.Content[i+1]))
		}
		return strings.Join(parts, " ")
	case yaml.AliasNode:
		return cell(n.Alias)
	}
	return ""
}

// isTTY reports whether f is a character device.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
