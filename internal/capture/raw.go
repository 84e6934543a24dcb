package capture

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muurk/starline/internal/starline"
	"github.com/muurk/starline/internal/version"
)

// RAW file header values
const (
	RawFiletype = "Flipper SubGhz RAW File"
	RawPrefix   = "RAW_Data:"

	// valuesPerLine bounds RAW_Data line length when writing
	valuesPerLine = 512
)

// Source supplies radio edges. Next returns io.EOF when the source is
// exhausted.
type Source interface {
	Next() (starline.Edge, error)
}

// RawReader reads edges from RAW notation text
type RawReader struct {
	scanner *bufio.Scanner
	pending []starline.Edge
	lineNum int
}

// NewRawReader creates a reader over r
func NewRawReader(r io.Reader) *RawReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &RawReader{scanner: scanner}
}

// Next returns the next edge
func (r *RawReader) Next() (starline.Edge, error) {
	for len(r.pending) == 0 {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return starline.Edge{}, fmt.Errorf("failed to read edges: %w", err)
			}
			return starline.Edge{}, io.EOF
		}
		r.lineNum++

		edges, err := ParseLine(r.scanner.Text())
		if err != nil {
			return starline.Edge{}, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		r.pending = edges
	}

	e := r.pending[0]
	r.pending = r.pending[1:]
	return e, nil
}

// ParseLine parses one line of RAW notation. Header lines ("Name: value")
// and comments yield no edges. Zero durations are dropped.
func ParseLine(line string) ([]starline.Edge, error) {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, RawPrefix); ok {
		line = rest
	} else if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, ":") {
		return nil, nil
	}

	fields := strings.Fields(line)
	durations := make([]int32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", f, err)
		}
		durations = append(durations, int32(v))
	}
	return EdgesFromDurations(durations), nil
}

// EdgesFromDurations converts signed RAW durations to edges: positive
// values are high, negative values are low and zeros are dropped.
func EdgesFromDurations(durations []int32) []starline.Edge {
	edges := make([]starline.Edge, 0, len(durations))
	for _, v := range durations {
		switch {
		case v > 0:
			edges = append(edges, starline.Edge{Level: true, Duration: uint32(v)})
		case v < 0:
			edges = append(edges, starline.Edge{Level: false, Duration: uint32(-int64(v))})
		}
	}
	return edges
}

// ReadAll drains a source
func ReadAll(src Source) ([]starline.Edge, error) {
	var edges []starline.Edge
	for {
		e, err := src.Next()
		if err == io.EOF {
			return edges, nil
		}
		if err != nil {
			return edges, err
		}
		edges = append(edges, e)
	}
}

// Drain collects every edge of a transmission
func Drain(tx *starline.EncoderSession) []starline.Edge {
	var edges []starline.Edge
	for e, ok := tx.Next(); ok; e, ok = tx.Next() {
		edges = append(edges, e)
	}
	return edges
}

// FormatLine renders edges as one RAW_Data line without the prefix
func FormatLine(edges []starline.Edge) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// RawHeader describes the radio settings written ahead of RAW data
type RawHeader struct {
	Frequency uint32
	Preset    string
}

// WriteRaw writes a RAW file with the given header
func WriteRaw(w io.Writer, header RawHeader, edges []starline.Edge) error {
	if header.Frequency == 0 {
		header.Frequency = starline.DefaultFrequency
	}
	if header.Preset == "" {
		header.Preset = starline.DefaultPreset
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Filetype: %s\n", RawFiletype)
	fmt.Fprintf(bw, "Version: %d\n", version.RecordFormat)
	fmt.Fprintf(bw, "Frequency: %d\n", header.Frequency)
	fmt.Fprintf(bw, "Preset: %s\n", header.Preset)
	fmt.Fprintf(bw, "Protocol: RAW\n")

	if err := writeLines(bw, edges); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write RAW file: %w", err)
	}
	return nil
}

func writeLines(w io.Writer, edges []starline.Edge) error {
	for start := 0; start < len(edges); start += valuesPerLine {
		end := start + valuesPerLine
		if end > len(edges) {
			end = len(edges)
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", RawPrefix, FormatLine(edges[start:end])); err != nil {
			return fmt.Errorf("failed to write edges: %w", err)
		}
	}
	return nil
}
