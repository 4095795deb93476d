// Package parser turns markdown note text into a stream of positioned
// tokens, maps byte offsets to lines, and scans single lines for links.
package parser

import (
	"bytes"
	"iter"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Kind identifies a token.
type Kind int

const (
	KindHeading Kind = iota + 1
	KindLink
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindLink:
		return "link"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Token is one event of the markdown stream.
//
// Offset is the byte offset in the source where the token starts (for a
// heading, the start of its content). Level is set for headings,
// Destination for links, and Text for text tokens. InHeading marks text that
// is a direct child of a heading.
type Token struct {
	Kind        Kind
	Offset      int
	Level       int
	Destination string
	Text        string
	InHeading   bool
}

var md = goldmark.New()

// Tokens parses src and returns a single-use sequence of heading, link and
// text tokens in document order. Adjacent text nodes are merged into one
// token.
func Tokens(src []byte) iter.Seq[Token] {
	doc := md.Parser().Parse(text.NewReader(src))

	return func(yield func(Token) bool) {
		_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}

			var tok Token
			switch node := n.(type) {
			case *ast.Heading:
				tok = Token{Kind: KindHeading, Level: node.Level, Offset: offsetOf(node)}
			case *ast.Link:
				tok = Token{Kind: KindLink, Destination: string(node.Destination), Offset: linkOffset(node, src)}
			case *ast.Text:
				if _, merged := node.PreviousSibling().(*ast.Text); merged {
					return ast.WalkContinue, nil
				}
				_, inHeading := node.Parent().(*ast.Heading)
				tok = Token{Kind: KindText, Text: textRun(node, src), Offset: node.Segment.Start, InHeading: inHeading}
			default:
				return ast.WalkContinue, nil
			}

			if !yield(tok) {
				return ast.WalkStop, nil
			}
			return ast.WalkContinue, nil
		})
	}
}

// textRun concatenates n and every directly following text sibling.
func textRun(n *ast.Text, src []byte) string {
	var b strings.Builder
	for cur := ast.Node(n); cur != nil; cur = cur.NextSibling() {
		t, ok := cur.(*ast.Text)
		if !ok {
			break
		}
		b.Write(t.Segment.Value(src))
		if t.SoftLineBreak() || t.HardLineBreak() {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// offsetOf finds the first source offset attributable to n: its own lines
// for blocks, the first descendant text segment for inlines, and the
// enclosing block otherwise.
func offsetOf(n ast.Node) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() == ast.TypeBlock {
			if lines := cur.Lines(); lines != nil && lines.Len() > 0 {
				return lines.At(0).Start
			}
			continue
		}
		if off, ok := firstTextOffset(cur); ok {
			return off
		}
	}
	return 0
}

func firstTextOffset(n ast.Node) (int, bool) {
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start, true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off, ok := firstTextOffset(c); ok {
			return off, true
		}
	}
	return 0, false
}

var labelClose = []byte("](")

// linkOffset finds where link n sits in src. A label with text starts at
// its first text segment. A label without text is located by the `](` that
// closes it, searched from the end of the inline content before the link.
func linkOffset(n *ast.Link, src []byte) int {
	if off, ok := firstTextOffset(n); ok {
		return off
	}

	from := blockStart(n)
search:
	for cur := ast.Node(n); cur != nil && cur.Type() == ast.TypeInline; cur = cur.Parent() {
		for prev := cur.PreviousSibling(); prev != nil; prev = prev.PreviousSibling() {
			if l, ok := prev.(*ast.Link); ok {
				from = linkEnd(l, src)
				break search
			}
			if end, ok := lastTextEnd(prev); ok {
				from = end
				break search
			}
		}
	}
	if from < len(src) {
		if i := bytes.Index(src[from:], labelClose); i >= 0 {
			return from + i
		}
	}
	return from
}

// linkEnd returns an offset just past the destination of l.
func linkEnd(l *ast.Link, src []byte) int {
	at := linkOffset(l, src)
	if end, ok := lastTextEnd(l); ok {
		at = end
	}
	if at < len(src) {
		if i := bytes.Index(src[at:], labelClose); i >= 0 {
			at += i + len(labelClose) + len(l.Destination)
		}
	}
	return min(at, len(src))
}

// blockStart returns the first source offset of the block holding n.
func blockStart(n ast.Node) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() != ast.TypeBlock {
			continue
		}
		if lines := cur.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start
		}
	}
	return 0
}

func lastTextEnd(n ast.Node) (int, bool) {
	for c := n.LastChild(); c != nil; c = c.PreviousSibling() {
		if end, ok := lastTextEnd(c); ok {
			return end, true
		}
	}
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Stop, true
	}
	return 0, false
}
