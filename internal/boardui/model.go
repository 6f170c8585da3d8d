// Package boardui provides the Bubble Tea leaderboard interface.
package boardui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/stats"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF2BD6"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	youStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00E5FF")).Bold(true)
)

// LoadFunc fetches the current leaderboard.
type LoadFunc func(ctx context.Context) (model.Leaderboard, error)

type boardMsg struct {
	board model.Leaderboard
	err   error
}

// Model implements the Bubble Tea leaderboard UI.
type Model struct {
	load LoadFunc
	date string

	board  model.Leaderboard
	loaded bool
	errMsg string

	table  table.Model
	width  int
	height int
}

// NewModel constructs a leaderboard UI for the contest day date.
func NewModel(date string, load LoadFunc) *Model {
	t := table.New(
		table.WithColumns(columns()),
		table.WithHeight(12),
		table.WithFocused(true),
	)
	t.SetStyles(tableStyles())
	return &Model{load: load, date: date, table: t}
}

func columns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Name", Width: 24},
		{Title: "WPM", Width: 5},
		{Title: "Accuracy", Width: 9},
		{Title: "Time", Width: 6},
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.fetch()
}

func (m *Model) fetch() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		board, err := load(ctx)
		return boardMsg{board: board, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		if msg.Height > 6 {
			m.table.SetHeight(msg.Height - 6)
		}
		return m, nil
	case boardMsg:
		m.loaded = true
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Failed to load leaderboard: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.board = msg.board
		m.table.SetRows(Rows(msg.board))
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Daily contest · " + m.date))
	b.WriteString("\n\n")
	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case !m.loaded:
		b.WriteString(headerStyle.Render("Loading..."))
	case len(m.board.Top) == 0:
		b.WriteString(headerStyle.Render("No contest scores yet today."))
	default:
		b.WriteString(m.table.View())
		if r := m.board.UserRank; r != nil {
			b.WriteString("\n")
			b.WriteString(youStyle.Render(fmt.Sprintf("You: #%d  %s  %d WPM  %d%%", r.Rank, r.Score.Name, r.Score.WPM, r.Score.Accuracy)))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render("r refresh · q quit"))
	return b.String()
}

// Rows converts the top scores into table rows.
func Rows(board model.Leaderboard) []table.Row {
	rows := make([]table.Row, 0, len(board.Top))
	for i, s := range board.Top {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			s.Name,
			fmt.Sprintf("%d", s.WPM),
			fmt.Sprintf("%d%%", s.Accuracy),
			fmt.Sprintf("%dm", s.TimeLimit),
		})
	}
	return rows
}

// RenderPlain writes the leaderboard as an aligned text table.
func RenderPlain(w io.Writer, date string, board model.Leaderboard) error {
	if _, err := fmt.Fprintf(w, "Daily contest %s\n", date); err != nil {
		return err
	}
	if len(board.Top) == 0 {
		_, err := fmt.Fprintln(w, "No contest scores yet today.")
		return err
	}
	headers := make([]string, 0, len(columns()))
	for _, c := range columns() {
		headers = append(headers, c.Title)
	}
	rows := make([][]string, 0, len(board.Top)+1)
	for _, r := range Rows(board) {
		rows = append(rows, []string(r))
	}
	if r := board.UserRank; r != nil {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Rank),
			r.Score.Name + " (you)",
			fmt.Sprintf("%d", r.Score.WPM),
			fmt.Sprintf("%d%%", r.Score.Accuracy),
			fmt.Sprintf("%dm", r.Score.TimeLimit),
		})
	}
	lines := stats.FormatTable(headers, rows, map[int]bool{0: true, 2: true, 3: true})
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
