package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Name", "WPM", "Accuracy"}
	rows := [][]string{
		{"ada", "97", "98%"},
		{"grace hopper", "8", "100%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Name         WPM Accuracy" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "ada           97      98%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "grace hopper   8     100%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableTrimsTrailingPadding(t *testing.T) {
	lines := FormatTable([]string{"A", "B"}, [][]string{{"long value"}}, nil)
	if lines[1] != "long value" {
		t.Fatalf("expected trailing padding trimmed, got %q", lines[1])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"Name", "WPM"}, [][]string{{"日本", "5"}}, nil)
	if lines[0] != "Name WPM" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "日本 5" {
		t.Fatalf("expected wide runes to count double, got %q", lines[1])
	}
}
