// Package apperr defines the error taxonomy shared by the engine and its hosts.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidLink   = errors.New("invalid link")
	ErrInvalidHeader = errors.New("invalid header")
	ErrMissingNote   = errors.New("missing note")
	ErrOther         = errors.New("other")
)

// InvalidLinkError reports malformed address syntax.
// Line is 1-based; zero means the source line is unknown.
type InvalidLinkError struct {
	Line   int
	Raw    string
	Reason string
}

func (e *InvalidLinkError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("invalid link %q: %s", e.Raw, e.Reason)
	}
	return fmt.Sprintf("invalid link %q on line %d: %s", e.Raw, e.Line, e.Reason)
}

func (e *InvalidLinkError) Is(target error) bool { return target == ErrInvalidLink }

// InvalidHeaderError reports a level one heading that is not `id - title`.
type InvalidHeaderError struct {
	Line int
	Raw  string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid header %q on line %d: expected `id - title`", e.Raw, e.Line)
}

func (e *InvalidHeaderError) Is(target error) bool { return target == ErrInvalidHeader }

// MissingNoteError reports a note id that does not resolve in the current graph.
type MissingNoteError struct {
	ID string
}

func (e *MissingNoteError) Error() string {
	return fmt.Sprintf("note %q not found", e.ID)
}

func (e *MissingNoteError) Is(target error) bool { return target == ErrMissingNote }

// OtherError is the catch-all for stale cursors and unsupported requests.
type OtherError struct {
	Msg string
}

func (e *OtherError) Error() string { return e.Msg }

func (e *OtherError) Is(target error) bool { return target == ErrOther }

// Other returns an *OtherError with a formatted message.
func Other(format string, args ...any) error {
	return &OtherError{Msg: fmt.Sprintf(format, args...)}
}

// Kind names the taxonomy bucket of err, or "internal" when none applies.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidLink):
		return "invalid_link"
	case errors.Is(err, ErrInvalidHeader):
		return "invalid_header"
	case errors.Is(err, ErrMissingNote):
		return "missing_note"
	case errors.Is(err, ErrOther):
		return "other"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
