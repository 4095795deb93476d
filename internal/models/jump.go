package models

import (
	"encoding/json"
	"fmt"
)

// Mode selects the jump direction requested by the editor.
type Mode int

const (
	ModeForward Mode = iota
	ModeBackward
	ModeForwardEnd
	ModeBackwardEnd
)

var modeNames = [...]string{
	ModeForward:     "Forward",
	ModeBackward:    "Backward",
	ModeForwardEnd:  "ForwardEnd",
	ModeBackwardEnd: "BackwardEnd",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode parses the wire name of a mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown jump mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("unknown jump mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(data []byte) error {
	parsed, err := ParseMode(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Cursor is [reserved, line, column]: a 1-based line and a 0-based byte column.
type Cursor [3]int

// Line returns the 1-based line.
func (c Cursor) Line() int { return c[1] }

// Column returns the 0-based byte column.
func (c Cursor) Column() int { return c[2] }

// JumpRequest is the editor's cursor query.
type JumpRequest struct {
	Mode   Mode   `json:"mode"`
	Cursor Cursor `json:"cursor"`
}

// NewJumpRequest builds a request for the given line and column.
func NewJumpRequest(mode Mode, line, column int) JumpRequest {
	return JumpRequest{Mode: mode, Cursor: Cursor{0, line, column}}
}

// TargetKind tells which fields of a Target are meaningful.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetLine
	TargetPath
	TargetPathText
)

func (k TargetKind) String() string {
	switch k {
	case TargetLine:
		return "line"
	case TargetPath:
		return "path"
	case TargetPathText:
		return "path_text"
	default:
		return "none"
	}
}

// Target is where a jump lands. The zero value is the empty target
// ("no link under cursor").
type Target struct {
	Kind TargetKind
	Line int
	Path string
	Text string
}

// LineTarget jumps to a 1-based line in the corpus.
func LineTarget(line int) Target { return Target{Kind: TargetLine, Line: line} }

// PathTarget opens a file.
func PathTarget(path string) Target { return Target{Kind: TargetPath, Path: path} }

// PathTextTarget opens a file and searches for text.
func PathTextTarget(path, text string) Target {
	return Target{Kind: TargetPathText, Path: path, Text: text}
}

// IsEmpty reports whether t is the empty target.
func (t Target) IsEmpty() bool { return t.Kind == TargetNone }

type wireTarget struct {
	Line *int    `json:"line,omitempty"`
	Path *string `json:"path,omitempty"`
	Text *string `json:"text,omitempty"`
}

// MarshalJSON encodes {}, {"line"}, {"path"} or {"path","text"}.
func (t Target) MarshalJSON() ([]byte, error) {
	var w wireTarget
	switch t.Kind {
	case TargetLine:
		w.Line = &t.Line
	case TargetPath:
		w.Path = &t.Path
	case TargetPathText:
		w.Path = &t.Path
		w.Text = &t.Text
	}
	return json.Marshal(w)
}

// UnmarshalJSON infers the kind from the fields present.
func (t *Target) UnmarshalJSON(data []byte) error {
	var w wireTarget
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Line != nil:
		*t = LineTarget(*w.Line)
	case w.Path != nil && w.Text != nil:
		*t = PathTextTarget(*w.Path, *w.Text)
	case w.Path != nil:
		*t = PathTarget(*w.Path)
	default:
		*t = Target{}
	}
	return nil
}
