package engine

import (
	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/parser"
)

// Resolve maps a cursor to a jump target. A cursor with no link under it
// yields the empty target and a nil error.
func (e *Engine) Resolve(req models.JumpRequest) (models.Target, error) {
	s := e.current()
	line, column := req.Cursor.Line(), req.Cursor.Column()

	if line < 1 || line > len(s.lines) {
		return models.Target{}, apperr.Other("content not completely parsed")
	}

	span, ok := parser.SelectSpan(parser.LineSpans(s.lines[line-1]), column)
	if !ok {
		return models.Target{}, nil
	}

	addr, err := address.ParseLine(span.Address, line)
	if err != nil {
		return models.Target{}, err
	}
	return s.dispatch(req.Mode, addr)
}

// dispatch applies the jump precedence: a note id always wins over a path
// or text in the same address.
func (s *snapshot) dispatch(mode models.Mode, addr address.Address) (models.Target, error) {
	if mode == models.ModeForward {
		path, hasPath := addr.Path.Get()
		note, hasNote := addr.Note.Get()
		text, hasText := addr.Text.Get()

		switch {
		case hasPath && !hasNote && !hasText:
			return models.PathTarget(path), nil
		case hasNote:
			n, ok := s.notes[note]
			if !ok {
				return models.Target{}, &apperr.MissingNoteError{ID: note}
			}
			return models.LineTarget(n.Line + 1), nil
		case hasPath && hasText:
			return models.PathTextTarget(path, text), nil
		}
	}
	return models.Target{}, apperr.Other("mode %s not supported with %s %s %s",
		mode, addr.Path, addr.Note, addr.Text)
}
