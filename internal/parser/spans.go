package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Span is an inline link within one line. Start and End are byte offsets
// of the whole `[label](destination ...)` text, End exclusive. Address is
// the destination as the markdown parser reads it.
type Span struct {
	Start   int
	End     int
	Label   string
	Address string
}

// Contains reports whether column falls inside the span.
func (s Span) Contains(column int) bool {
	return column >= s.Start && column < s.End
}

// LineSpans returns the inline links of a single line in order.
//
// The markdown parser decides which links exist and what their
// destinations are, so titles, nested label brackets, code spans and
// images are treated as in the indexer. Byte ranges come from a bracket
// scan of the raw line, which keeps emphasis and heading markers in place
// so offsets match the editor buffer.
func LineSpans(line string) []Span {
	dests := lineDestinations(line)
	if len(dests) == 0 {
		return nil
	}
	cands := scanLinks(line)

	out := make([]Span, 0, len(dests))
	next, floor := 0, 0
	for _, d := range dests {
		for i := next; i < len(cands); i++ {
			c := cands[i]
			if c.Start < floor || (c.Address != d && unescapePunct(c.Address) != d) {
				continue
			}
			c.Address = d
			out = append(out, c)
			next, floor = i+1, c.End
			break
		}
	}
	return out
}

// SelectSpan picks the span the cursor refers to: the only span on the line
// regardless of column, otherwise the first span containing column.
func SelectSpan(spans []Span, column int) (Span, bool) {
	if len(spans) == 1 {
		return spans[0], true
	}
	for _, s := range spans {
		if s.Contains(column) {
			return s, true
		}
	}
	return Span{}, false
}

// lineDestinations parses line on its own and returns its link
// destinations in document order. Leading indentation is dropped so an
// indented continuation line is not read as a code block.
func lineDestinations(line string) []string {
	src := []byte(strings.TrimLeft(line, " \t"))
	doc := md.Parser().Parse(text.NewReader(src))

	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if l, ok := n.(*ast.Link); ok && entering {
			out = append(out, string(l.Destination))
		}
		return ast.WalkContinue, nil
	})
	return out
}

// scanLinks finds every `[label](...)` candidate outside code spans. Scanning
// resumes right after each opening bracket, so candidates may nest.
func scanLinks(line string) []Span {
	var out []Span
	for i := 0; i < len(line); {
		switch line[i] {
		case '\\':
			i += 2
		case '`':
			i = skipCodeSpan(line, i)
		case '!':
			if i+1 < len(line) && line[i+1] == '[' {
				// Image: its bracket never opens a link.
				i += 2
				continue
			}
			i++
		case '[':
			if sp, ok := linkAt(line, i); ok {
				out = append(out, sp)
			}
			i++
		default:
			i++
		}
	}
	return out
}

// linkAt reads an inline link whose label opens at line[open].
func linkAt(line string, open int) (Span, bool) {
	depth, closeAt := 0, -1
scan:
	for j := open; j < len(line); {
		switch line[j] {
		case '\\':
			j += 2
			continue
		case '`':
			j = skipCodeSpan(line, j)
			continue
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				closeAt = j
				break scan
			}
		}
		j++
	}
	if closeAt < 0 || closeAt+1 >= len(line) || line[closeAt+1] != '(' {
		return Span{}, false
	}
	dest, end, ok := scanDestination(line, closeAt+2)
	if !ok {
		return Span{}, false
	}
	return Span{Start: open, End: end, Label: line[open+1 : closeAt], Address: dest}, true
}

// scanDestination reads `destination [title])` starting after the opening
// parenthesis and returns the destination and the offset past `)`.
func scanDestination(line string, k int) (string, int, bool) {
	k = skipBlanks(line, k)

	var dest string
	if k < len(line) && line[k] == '<' {
		e := k + 1
		for e < len(line) && line[e] != '>' && line[e] != '<' {
			if line[e] == '\\' {
				e++
			}
			e++
		}
		if e >= len(line) || line[e] != '>' {
			return "", 0, false
		}
		dest, k = line[k+1:e], e+1
	} else {
		start, depth := k, 0
	scanDest:
		for k < len(line) {
			switch line[k] {
			case '\\':
				if k+1 < len(line) {
					k += 2
					continue
				}
			case ' ', '\t':
				break scanDest
			case '(':
				depth++
			case ')':
				if depth == 0 {
					break scanDest
				}
				depth--
			}
			k++
		}
		dest = line[start:k]
	}

	if n := skipBlanks(line, k); n > k && n < len(line) && isTitleOpen(line[n]) {
		closer := line[n]
		if closer == '(' {
			closer = ')'
		}
		e := n + 1
		for e < len(line) && line[e] != closer {
			if line[e] == '\\' {
				e++
			}
			e++
		}
		if e >= len(line) {
			return "", 0, false
		}
		k = e + 1
	}

	k = skipBlanks(line, k)
	if k >= len(line) || line[k] != ')' {
		return "", 0, false
	}
	return dest, k + 1, true
}

func isTitleOpen(c byte) bool { return c == '"' || c == '\'' || c == '(' }

func skipBlanks(line string, k int) int {
	for k < len(line) && (line[k] == ' ' || line[k] == '\t') {
		k++
	}
	return k
}

// skipCodeSpan returns the offset past the code span opening at line[i], or
// past the backtick run when it is never closed.
func skipCodeSpan(line string, i int) int {
	n := backtickRun(line, i)
	for j := i + n; j < len(line); {
		if line[j] != '`' {
			j++
			continue
		}
		m := backtickRun(line, j)
		if m == n {
			return j + m
		}
		j += m
	}
	return i + n
}

func backtickRun(line string, i int) int {
	n := 0
	for i+n < len(line) && line[i+n] == '`' {
		n++
	}
	return n
}

// unescapePunct drops backslashes that escape ASCII punctuation.
func unescapePunct(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", s[i+1]) >= 0 {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
