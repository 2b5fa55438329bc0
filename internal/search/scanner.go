package search

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/edsrzf/mmap-go"
)

const (
	// mmapScanThreshold is the size above which a candidate is scanned
	// through a memory map instead of buffered reads.
	mmapScanThreshold = 256 << 10

	// contextRadius is how many bytes of line context surround the
	// match on each side.
	contextRadius = 60

	scanBufferSize = 64 << 10
)

// lineMatch is the first content match found in a file.
type lineMatch struct {
	line    int
	context string
}

// scanFile reads the file line by line and reports the first query
// match, or nil when there is none. Unreadable files are "no match",
// never an error; only cancellation aborts. Cancellation is polled on
// every line so a huge single-line file cannot stall the abort.
func (s *Searcher) scanFile(path string, size int64, q Query, opID string) (*lineMatch, error) {
	if size >= mmapScanThreshold {
		if m, handled, err := s.scanMapped(path, q, opID); handled {
			return m, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, scanBufferSize)
	lineNo := 0
	for {
		if err := s.Registry.Check(opID); err != nil {
			return nil, err
		}
		line, readErr := r.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			trimmed := strings.TrimRight(line, "\r\n")
			if start, end, ok := q.FindInLine(trimmed); ok {
				return &lineMatch{line: lineNo, context: matchContext(trimmed, start, end)}, nil
			}
		}
		if readErr == io.EOF {
			return nil, nil
		}
		if readErr != nil {
			return nil, nil
		}
	}
}

// scanMapped is the mmap fast path. handled is false when the map
// could not be established and the caller should fall back to
// buffered reads.
func (s *Searcher) scanMapped(path string, q Query, opID string) (*lineMatch, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, true, nil
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, false, nil
	}
	defer m.Unmap()

	lineNo := 0
	rest := []byte(m)
	for len(rest) > 0 {
		if err := s.Registry.Check(opID); err != nil {
			return nil, true, err
		}
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		lineNo++
		trimmed := strings.TrimRight(string(line), "\r")
		if start, end, ok := q.FindInLine(trimmed); ok {
			return &lineMatch{line: lineNo, context: matchContext(trimmed, start, end)}, true, nil
		}
	}
	return nil, true, nil
}

// matchContext builds a trimmed context string of up to contextRadius
// bytes on each side of the match, with an ellipsis marking each end
// that was truncated relative to the full line.
func matchContext(line string, start, end int) string {
	// Offsets must index line itself; clamp so a bad pair can never
	// slice out of range.
	if start < 0 {
		start = 0
	}
	if end > len(line) {
		end = len(line)
	}
	if start > end {
		start = end
	}

	from := start - contextRadius
	if from < 0 {
		from = 0
	}
	to := end + contextRadius
	if to > len(line) {
		to = len(line)
	}
	// Do not slice a UTF-8 sequence in half.
	for from > 0 && from < len(line) && !utf8.RuneStart(line[from]) {
		from++
	}
	for to < len(line) && !utf8.RuneStart(line[to]) {
		to++
	}

	ctx := strings.TrimSpace(line[from:to])
	if from > 0 {
		ctx = "…" + ctx
	}
	if to < len(line) {
		ctx += "…"
	}
	return ctx
}
