package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/zettelnav/internal/address"
	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/models"
)

const corpus = "# asdf - First\n" + // 1
	"\n" + // 2
	"This [links](@asdf) back\n" + // 3
	"[file](notes/other.md) [search](notes/other.md#needle)\n" + // 4
	"[both](x.md@asdf#t) [ghost](@ghost)\n" + // 5
	"[only text](#needle)\n" + // 6
	"no links here\n" + // 7
	"[a](@asdf) [b](@asdf)\n" // 8

func forward(line, col int) models.JumpRequest {
	return models.NewJumpRequest(models.ModeForward, line, col)
}

func TestResolve_NoteLink(t *testing.T) {
	e := rebuilt(t, corpus)
	got, err := e.Resolve(forward(3, 7))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != models.LineTarget(1) {
		t.Errorf("target = %+v, want line 1", got)
	}
}

func TestResolve_SampleScenario(t *testing.T) {
	e := rebuilt(t, sample)
	col := strings.Index("This [links](@asdf) to first one", "[links]")
	got, err := e.Resolve(forward(7, col))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != models.LineTarget(1) {
		t.Errorf("target = %+v, want {line: 1}", got)
	}
}

func TestResolve_SingleLinkWinsRegardlessOfColumn(t *testing.T) {
	e := rebuilt(t, corpus)
	got, err := e.Resolve(forward(3, 0))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != models.LineTarget(1) {
		t.Errorf("target = %+v", got)
	}
}

func TestResolve_PathAndPathText(t *testing.T) {
	e := rebuilt(t, corpus)
	line := "[file](notes/other.md) [search](notes/other.md#needle)"

	got, err := e.Resolve(forward(4, 1))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != models.PathTarget("notes/other.md") {
		t.Errorf("target = %+v", got)
	}

	got, err = e.Resolve(forward(4, strings.Index(line, "[search]")+3))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != models.PathTextTarget("notes/other.md", "needle") {
		t.Errorf("target = %+v", got)
	}
}

func TestResolve_NoteIDWinsOverPathAndText(t *testing.T) {
	e := rebuilt(t, corpus)
	got, err := e.Resolve(forward(5, 2))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != models.LineTarget(1) {
		t.Errorf("target = %+v, want line 1", got)
	}
}

func TestResolve_MissingNote(t *testing.T) {
	e := rebuilt(t, corpus)
	col := strings.Index("[both](x.md@asdf#t) [ghost](@ghost)", "[ghost]")
	_, err := e.Resolve(forward(5, col))
	if !errors.Is(err, apperr.ErrMissingNote) {
		t.Fatalf("err = %v, want MissingNote", err)
	}
	var me *apperr.MissingNoteError
	if !errors.As(err, &me) || me.ID != "ghost" {
		t.Errorf("missing note error = %v", err)
	}
}

func TestResolve_UnsupportedModes(t *testing.T) {
	e := rebuilt(t, corpus)
	for _, mode := range []models.Mode{models.ModeBackward, models.ModeForwardEnd, models.ModeBackwardEnd} {
		_, err := e.Resolve(models.NewJumpRequest(mode, 3, 7))
		if !errors.Is(err, apperr.ErrOther) {
			t.Errorf("mode %v: err = %v, want Other", mode, err)
			continue
		}
		want := "mode " + mode.String() + ` not supported with None Some("asdf") None`
		if err.Error() != want {
			t.Errorf("mode %v: message = %q, want %q", mode, err.Error(), want)
		}
	}
}

func TestResolve_ForwardTextOnlyUnsupported(t *testing.T) {
	e := rebuilt(t, corpus)
	_, err := e.Resolve(forward(6, 0))
	if !errors.Is(err, apperr.ErrOther) {
		t.Fatalf("err = %v, want Other", err)
	}
	if err.Error() != `mode Forward not supported with None None Some("needle")` {
		t.Errorf("message = %q", err.Error())
	}
}

func TestResolve_NoLinkUnderCursor(t *testing.T) {
	e := rebuilt(t, corpus)

	got, err := e.Resolve(forward(7, 3))
	if err != nil || !got.IsEmpty() {
		t.Errorf("line without links = %+v, %v", got, err)
	}

	// Two links and the cursor on the space between them.
	got, err = e.Resolve(forward(8, 10))
	if err != nil || !got.IsEmpty() {
		t.Errorf("cursor between links = %+v, %v", got, err)
	}
}

func TestResolve_LineOutOfRange(t *testing.T) {
	e := rebuilt(t, corpus)
	for _, line := range []int{0, -1, e.LineCount() + 1} {
		_, err := e.Resolve(forward(line, 0))
		if !errors.Is(err, apperr.ErrOther) || err.Error() != "content not completely parsed" {
			t.Errorf("line %d: err = %v", line, err)
		}
	}

	if _, err := New().Resolve(forward(1, 0)); !errors.Is(err, apperr.ErrOther) {
		t.Errorf("empty engine: err = %v", err)
	}
}

func TestResolve_InvalidLinkTaggedWithLine(t *testing.T) {
	e := New()
	// Built directly so the malformed link does not abort the rebuild:
	// it sits before any heading and is ignored by the indexer.
	if err := e.Rebuild("[bad](a#b#c)\n# n - N\n"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	_, err := e.Resolve(forward(1, 0))
	var le *apperr.InvalidLinkError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *InvalidLinkError", err)
	}
	if le.Line != 1 || le.Reason != "more than one `#` separator" {
		t.Errorf("link error = %+v", le)
	}
}

func TestResolve_SeesOnlyLatestSuccessfulRebuild(t *testing.T) {
	e := rebuilt(t, corpus)
	_ = e.Rebuild("# broken\n")
	got, err := e.Resolve(forward(3, 7))
	if err != nil || got != models.LineTarget(1) {
		t.Errorf("after failed rebuild = %+v, %v", got, err)
	}

	if err := e.Rebuild("# asdf - moved\n"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if _, err := e.Resolve(forward(3, 7)); !errors.Is(err, apperr.ErrOther) {
		t.Errorf("stale cursor err = %v, want Other", err)
	}
}

func TestResolve_ReadsLinksLikeIndexer(t *testing.T) {
	content := "# asdf - First\n\n# b - B\n\n" +
		"see [x](@asdf \"tip\") ok\n" + // 5
		"[a [x] b](@asdf)\n" + // 6
		"`[x](@nope)` plain\n" + // 7
		"`[x](@nope)` then [y](@asdf)\n" // 8
	e := rebuilt(t, content)

	if got := e.Backlinks(address.Address{Note: address.Some("asdf")}); len(got) != 3 {
		t.Errorf("backlinks = %v, want three from b", got)
	}

	for _, tc := range []struct {
		line, col int
	}{{5, 6}, {6, 2}, {8, strings.Index("`[x](@nope)` then [y](@asdf)", "[y]")}} {
		got, err := e.Resolve(forward(tc.line, tc.col))
		if err != nil {
			t.Errorf("line %d: %v", tc.line, err)
			continue
		}
		if got != models.LineTarget(1) {
			t.Errorf("line %d: target = %+v, want line 1", tc.line, got)
		}
	}

	got, err := e.Resolve(forward(7, 3))
	if err != nil || !got.IsEmpty() {
		t.Errorf("link inside code span = %+v, %v, want empty target", got, err)
	}
}
