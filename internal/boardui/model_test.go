package boardui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/neontype/internal/model"
)

func sampleBoard() model.Leaderboard {
	return model.Leaderboard{
		Top: []model.Score{{Name: "ada", WPM: 97, Accuracy: 98, TimeLimit: 1}},
		UserRank: &model.RankedScore{
			Rank:  12,
			Score: model.Score{Name: "bob", WPM: 40, Accuracy: 90, TimeLimit: 1},
		},
	}
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPlain(&buf, "2024-05-01", sampleBoard()); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := strings.Join([]string{
		"Daily contest 2024-05-01",
		" # Name      WPM Accuracy Time",
		" 1 ada        97      98% 1m",
		"12 bob (you)  40      90% 1m",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderPlainEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPlain(&buf, "2024-05-01", model.Leaderboard{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No contest scores yet today.") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func TestModelLoadsBoard(t *testing.T) {
	calls := 0
	m := NewModel("2024-05-01", func(context.Context) (model.Leaderboard, error) {
		calls++
		return sampleBoard(), nil
	})
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected loading view before data arrives")
	}
	m.Update(m.Init()())
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}
	if got := len(m.table.Rows()); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
	view := m.View()
	if !strings.Contains(view, "ada") || !strings.Contains(view, "You: #12") {
		t.Fatalf("view missing rows: %s", view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatalf("expected refresh command")
	}
	m.Update(cmd())
	if calls != 2 {
		t.Fatalf("expected refresh to reload, got %d loads", calls)
	}
}

func TestModelShowsLoadError(t *testing.T) {
	m := NewModel("2024-05-01", func(context.Context) (model.Leaderboard, error) {
		return model.Leaderboard{}, errors.New("offline")
	})
	m.Update(m.Init()())
	if !strings.Contains(m.View(), "Failed to load leaderboard: offline") {
		t.Fatalf("expected error view, got %s", m.View())
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel("2024-05-01", nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
