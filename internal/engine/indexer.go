package engine

import (
	"iter"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/parser"
)

// build scans content into a fresh snapshot. The current note is local to
// one call: it is set by each valid level one heading and links seen before
// the first heading are dropped.
func build(content string) (*snapshot, error) {
	s := &snapshot{
		notes:     make(map[string]*models.Note),
		backlinks: make(map[address.Address][]string),
	}
	lineIdx := parser.NewLineIndex(content)

	next, stop := iter.Pull(parser.Tokens([]byte(content)))
	defer stop()

	var current *models.Note
	var pending *parser.Token

	read := func() (parser.Token, bool) {
		if pending != nil {
			tok := *pending
			pending = nil
			return tok, true
		}
		return next()
	}

	for {
		tok, ok := read()
		if !ok {
			break
		}

		switch tok.Kind {
		case parser.KindHeading:
			if tok.Level != 1 {
				continue
			}
			payload, ok := read()
			if !ok {
				break
			}
			if payload.Kind != parser.KindText || !payload.InHeading {
				pending = &payload
				continue
			}
			line := lineIdx.Line(tok.Offset)
			id, title, ok := parser.ParseHeader(payload.Text)
			if !ok {
				return nil, &apperr.InvalidHeaderError{Line: line, Raw: payload.Text}
			}
			current = &models.Note{ID: id, Title: title, Line: line - 1, Links: []address.Address{}}
			s.notes[id] = current

		case parser.KindLink:
			if current == nil {
				continue
			}
			addr, err := address.ParseLine(tok.Destination, lineIdx.Line(tok.Offset))
			if err != nil {
				return nil, err
			}
			current.Links = append(current.Links, addr)
			key := addr.WithoutText()
			s.backlinks[key] = append(s.backlinks[key], current.ID)
		}
	}

	s.lines = parser.SplitLines(content)
	return s, nil
}
