// Package address parses the link addressing mini-format used inside
// markdown link targets: an optional file path, `@` introducing a note id
// and `#` introducing free search text.
package address

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/starford/zettelnav/internal/apperr"
)

const (
	noteSep = "@"
	textSep = "#"
)

// Slot is an optional string. The zero value is empty.
type Slot struct {
	value string
	ok    bool
}

// Some returns a populated slot.
func Some(v string) Slot { return Slot{value: v, ok: true} }

// None returns an empty slot.
func None() Slot { return Slot{} }

// Get returns the value and whether the slot is populated.
func (s Slot) Get() (string, bool) { return s.value, s.ok }

// IsSet reports whether the slot is populated.
func (s Slot) IsSet() bool { return s.ok }

// Value returns the value, or "" for an empty slot.
func (s Slot) Value() string { return s.value }

// String renders the slot as Some("value") or None. Resolver error
// messages embed this form and hosts match on it.
func (s Slot) String() string {
	if !s.ok {
		return "None"
	}
	return "Some(" + strconv.Quote(s.value) + ")"
}

// Address is a parsed link target. Equality is structural, so Address
// values can be used directly as map keys.
type Address struct {
	Path Slot
	Note Slot
	Text Slot
}

// WithoutText returns a copy of a with the text slot cleared. Backlinks
// are aggregated under this key.
func (a Address) WithoutText() Address {
	a.Text = None()
	return a
}

// IsZero reports whether no slot is populated.
func (a Address) IsZero() bool {
	return !a.Path.ok && !a.Note.ok && !a.Text.ok
}

// String renders a back in link syntax.
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(a.Path.value)
	if a.Note.ok {
		b.WriteString(noteSep)
		b.WriteString(a.Note.value)
	}
	if a.Text.ok {
		b.WriteString(textSep)
		b.WriteString(a.Text.value)
	}
	return b.String()
}

type wireAddress struct {
	Path *string `json:"path,omitempty"`
	Note *string `json:"note,omitempty"`
	Text *string `json:"text,omitempty"`
}

func slotPtr(s Slot) *string {
	if !s.ok {
		return nil
	}
	v := s.value
	return &v
}

func ptrSlot(p *string) Slot {
	if p == nil {
		return None()
	}
	return Some(*p)
}

// MarshalJSON encodes populated slots only.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAddress{
		Path: slotPtr(a.Path),
		Note: slotPtr(a.Note),
		Text: slotPtr(a.Text),
	})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (a *Address) UnmarshalJSON(data []byte) error {
	var w wireAddress
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Address{Path: ptrSlot(w.Path), Note: ptrSlot(w.Note), Text: ptrSlot(w.Text)}
	return nil
}

// Parse parses raw with no source line attached to errors.
func Parse(raw string) (Address, error) {
	return ParseLine(raw, 0)
}

// ParseLine parses raw into an Address. Errors are *apperr.InvalidLinkError
// tagged with the given 1-based line.
func ParseLine(raw string, line int) (Address, error) {
	invalid := func(reason string) error {
		return &apperr.InvalidLinkError{Line: line, Raw: raw, Reason: reason}
	}

	if raw == "" {
		return Address{}, invalid("empty query")
	}
	if strings.Count(raw, noteSep) > 1 {
		return Address{}, invalid("more than one `@` separator")
	}
	if strings.Count(raw, textSep) > 1 {
		return Address{}, invalid("more than one `#` separator")
	}

	var a Address
	if pre, post, ok := strings.Cut(raw, noteSep); ok {
		if pre != "" {
			a.Path = Some(pre)
		}
		if note, text, ok := strings.Cut(post, textSep); ok {
			a.Note = Some(note)
			a.Text = Some(text)
		} else {
			a.Note = Some(post)
		}
		return a, nil
	}

	if pre, text, ok := strings.Cut(raw, textSep); ok {
		if pre != "" {
			a.Path = Some(pre)
		}
		a.Text = Some(text)
		return a, nil
	}

	a.Path = Some(raw)
	return a, nil
}
