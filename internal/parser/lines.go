package parser

import (
	"sort"
	"strings"
)

// LineIndex maps byte offsets to 1-based line numbers. It holds the
// sorted start offsets of every line.
type LineIndex []int

// NewLineIndex scans src once for line breaks.
func NewLineIndex(src string) LineIndex {
	idx := LineIndex{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// Line returns the 1-based line containing offset: the entry with the
// greatest start offset not exceeding it.
func (idx LineIndex) Line(offset int) int {
	i := sort.Search(len(idx), func(i int) bool { return idx[i] > offset })
	if i == 0 {
		return 1
	}
	return i
}

// SplitLines splits content into lines. A trailing "\r" is dropped from each
// line and a final line terminator does not produce an empty last line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseHeader splits a heading payload of the form `id - title` at the
// first '-' and trims both sides. ok is false when there is no separator or
// the id is empty.
func ParseHeader(payload string) (id, title string, ok bool) {
	id, title, found := strings.Cut(payload, "-")
	if !found {
		return "", "", false
	}
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return "", "", false
	}
	return id, title, true
}
