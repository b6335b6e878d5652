// Package parser loads task sets from plain text, JSON, and YAML files.
package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/schedkit/pkg/model"
	"gopkg.in/yaml.v3"
)

// Format names a task set file type.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatPlain, FormatJSON, FormatYAML:
		return f, nil
	case "txt":
		return FormatPlain, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown task set format %q (want auto, plain, json or yaml)", s)
}

// DetectFormat picks a format from a file extension. Unknown extensions
// are read as plain text.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatPlain
}

// Options controls how a task set is read.
type Options struct {
	Format Format
	// Scale converts decimal input into integer ticks; 1000 reads
	// milliseconds as microseconds. Zero means 1.
	Scale int64
}

// ParseError locates a malformed value.
type ParseError struct {
	Source string
	Line   int // 1-based, 0 when unknown
	Task   int // index into the task set, -1 when unknown
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Task >= 0 {
		fmt.Fprintf(&b, ": task %d", e.Task)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser converts task set documents into model.TaskSet values.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger.With("component", "parser")}
}

// LoadFile reads and parses the task set at path. FormatAuto selects the
// format from the extension.
func (p *Parser) LoadFile(path string, opts Options) (model.TaskSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task set: %w", err)
	}
	if opts.Format == "" || opts.Format == FormatAuto {
		opts.Format = DetectFormat(path)
	}
	return p.Parse(data, path, opts)
}

// Parse reads a task set document. source names the input in errors.
// FormatAuto sniffs the content: '[' or '{' is JSON, a leading "- " or a
// "tasks:" key is YAML, anything else plain text.
func (p *Parser) Parse(data []byte, source string, opts Options) (model.TaskSet, error) {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 0 {
		return nil, fmt.Errorf("scale must be positive, got %d", scale)
	}
	format := opts.Format
	if format == "" || format == FormatAuto {
		format = sniff(data)
	}

	var (
		ts  model.TaskSet
		err error
	)
	switch format {
	case FormatPlain:
		ts, err = parsePlain(data, source, scale)
	case FormatJSON:
		ts, err = parseJSON(data, source, scale)
	case FormatYAML:
		ts, err = parseYAML(data, source, scale)
	default:
		return nil, fmt.Errorf("unknown task set format %q", format)
	}
	if err != nil {
		return nil, err
	}
	p.logger.Debug("task set loaded", "source", source, "format", format, "tasks", len(ts), "scale", scale)
	return ts, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	for len(trimmed) > 0 && trimmed[0] == '#' {
		if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
			trimmed = bytes.TrimSpace(trimmed[i+1:])
		} else {
			trimmed = nil
		}
	}
	switch {
	case len(trimmed) == 0:
		return FormatPlain
	case trimmed[0] == '[' || trimmed[0] == '{':
		return FormatJSON
	case bytes.HasPrefix(trimmed, []byte("- ")) || bytes.HasPrefix(trimmed, []byte("tasks:")):
		return FormatYAML
	}
	return FormatPlain
}

var fieldNames = [3]string{"wcet", "deadline", "period"}

// parsePlain reads one task per line as "wcet deadline period". Blank lines
// and lines starting with '#' are skipped.
func parsePlain(data []byte, source string, scale int64) (model.TaskSet, error) {
	var ts model.TaskSet
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, &ParseError{Source: source, Line: line, Task: len(ts),
				Err: fmt.Errorf("want three fields (wcet deadline period), got %d", len(fields))}
		}
		var vals [3]model.Time
		for i, f := range fields {
			v, err := toTicks(f, scale)
			if err != nil {
				return nil, &ParseError{Source: source, Line: line, Task: len(ts), Field: fieldNames[i], Err: err}
			}
			vals[i] = v
		}
		ts = append(ts, model.NewTask(vals[0], vals[1], vals[2]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return ts, nil
}

// number keeps the literal text of a numeric field so it can be scaled
// exactly.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	var v json.Number
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

func (n *number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	*n = number(node.Value)
	return nil
}

type rawTask struct {
	WCET     *number `json:"wcet" yaml:"wcet"`
	Deadline *number `json:"deadline" yaml:"deadline"`
	Period   *number `json:"period" yaml:"period"`
}

type rawDocument struct {
	Tasks []rawTask `json:"tasks" yaml:"tasks"`
}

func parseJSON(data []byte, source string, scale int64) (model.TaskSet, error) {
	var raw []rawTask
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc rawDocument
		if err := strictJSON(trimmed, &doc); err != nil {
			return nil, &ParseError{Source: source, Task: -1, Err: err}
		}
		raw = doc.Tasks
	} else if err := strictJSON(trimmed, &raw); err != nil {
		return nil, &ParseError{Source: source, Task: -1, Err: err}
	}
	return convert(raw, source, scale)
}

func strictJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after task set")
	}
	return nil
}

func parseYAML(data []byte, source string, scale int64) (model.TaskSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Source: source, Task: -1, Err: err}
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	var raw []rawTask
	doc := root.Content[0]
	if doc.Kind == yaml.MappingNode {
		var d rawDocument
		if err := doc.Decode(&d); err != nil {
			return nil, &ParseError{Source: source, Line: doc.Line, Task: -1, Err: err}
		}
		raw = d.Tasks
	} else if err := doc.Decode(&raw); err != nil {
		return nil, &ParseError{Source: source, Line: doc.Line, Task: -1, Err: err}
	}
	return convert(raw, source, scale)
}

func convert(raw []rawTask, source string, scale int64) (model.TaskSet, error) {
	ts := make(model.TaskSet, 0, len(raw))
	for i, r := range raw {
		var vals [3]model.Time
		for j, n := range []*number{r.WCET, r.Deadline, r.Period} {
			if n == nil {
				return nil, &ParseError{Source: source, Task: i, Field: fieldNames[j], Err: errors.New("missing")}
			}
			v, err := toTicks(string(*n), scale)
			if err != nil {
				return nil, &ParseError{Source: source, Task: i, Field: fieldNames[j], Err: err}
			}
			vals[j] = v
		}
		ts = append(ts, model.NewTask(vals[0], vals[1], vals[2]))
	}
	return ts, nil
}

// toTicks parses a decimal literal and multiplies it by scale. The product
// must be a whole number that fits in a Time.
func toTicks(s string, scale int64) (model.Time, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	r.Mul(r, new(big.Rat).SetInt64(scale))
	if !r.IsInt() {
		return 0, fmt.Errorf("%s is not a whole number of ticks at scale %d", s, scale)
	}
	if !r.Num().IsInt64() {
		return 0, fmt.Errorf("%s overflows at scale %d", s, scale)
	}
	return model.Time(r.Num().Int64()), nil
}

// WritePlain writes ts in the plain format, one "wcet deadline period" line
// per task.
func WritePlain(w io.Writer, ts model.TaskSet) error {
	bw := bufio.NewWriter(w)
	for _, t := range ts {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", t.WCET, t.Deadline, t.Period); err != nil {
			return err
		}
	}
	return bw.Flush()
}
