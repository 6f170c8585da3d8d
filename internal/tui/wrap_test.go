package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/neontype/internal/typing"
)

func snapshotAfter(t *testing.T, text string, keys ...string) typing.Snapshot {
	t.Helper()
	s, err := typing.NewSession(60)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Load(text); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, k := range keys {
		s.Keystroke(k)
	}
	return s.Snapshot()
}

func TestBuildStyledRunesCursor(t *testing.T) {
	runes := buildStyledRunes(snapshotAfter(t, "ab", "a"))
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != currentWordStyle.Underline(true).Render("b") {
		t.Fatalf("expected cursor style for second rune")
	}
}

func TestBuildStyledRunesKeepsTargetOnMistype(t *testing.T) {
	runes := buildStyledRunes(snapshotAfter(t, "abc", "a", "x"))
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != incorrectStyle.Render("b") {
		t.Fatalf("expected incorrect style for second rune")
	}
}

func TestBuildStyledRunesWordHighlighting(t *testing.T) {
	runes := buildStyledRunes(snapshotAfter(t, "one two", "o"))
	if runes[0].s != correctStyle.Render("o") {
		t.Fatalf("expected correct style for typed rune")
	}
	if runes[2].s != currentWordStyle.Render("e") {
		t.Fatalf("expected current word style for untyped in current word")
	}
	if runes[4].s != pendingStyle.Render("t") {
		t.Fatalf("expected pending style for next word")
	}
	if runes[6].s != pendingStyle.Render("o") {
		t.Fatalf("expected pending style for next word")
	}
}

func TestBuildStyledRunesWrongSpaceDot(t *testing.T) {
	runes := buildStyledRunes(snapshotAfter(t, "a b", "a", "x"))
	if len(runes) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(runes))
	}
	if runes[1].s != incorrectStyle.Render("•") {
		t.Fatalf("expected red dot for wrong space")
	}
}

func TestBuildStyledRunesDeleteKeepsMark(t *testing.T) {
	snap := snapshotAfter(t, "abc", "x", typing.KeyBackspace)
	if snap.Current != 0 {
		t.Fatalf("expected current 0 after delete, got %d", snap.Current)
	}
	runes := buildStyledRunes(snap)
	if runes[0].s != incorrectStyle.Underline(true).Render("a") {
		t.Fatalf("expected the deleted position to keep its mark under the cursor")
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	runes := buildStyledRunes(snapshotAfter(t, "one two three"))
	out := wrapStyledRunes(runes, 5)
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("expected 3 lines, got %d: %q", got+1, out)
	}
}
