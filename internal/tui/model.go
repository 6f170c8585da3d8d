// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neontype/internal/model"
	statsPkg "github.com/verte-zerg/neontype/internal/stats"
	"github.com/verte-zerg/neontype/internal/store"
	"github.com/verte-zerg/neontype/internal/typing"
)

// TextFunc produces the reference text for a new session.
type TextFunc func(ctx context.Context) (string, error)

// Options configures a Model.
type Options struct {
	Config model.Config
	Text   TextFunc
	// Store receives finished sessions. Nil disables history.
	Store store.Store
	// Sink also receives every final result, after the history sink.
	Sink  typing.Sink
	Clock typing.Clock
}

type tickMsg struct{ gen int }

type textMsg struct {
	gen  int
	text string
	err  error
}

type savedMsg struct{ err error }

// Model implements the Bubble Tea typing UI.
type Model struct {
	config model.Config
	text   TextFunc
	store  store.Store
	sink   typing.Sink
	clock  typing.Clock

	width  int
	height int

	// gen tags ticks and texts so stale ones are dropped after a restart.
	gen     int
	session *typing.Session
	ticking bool
	loadErr error

	result  *typing.Result
	saveErr error
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00E5FF"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF2BD6"))
	certificateStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#00E5FF")).Padding(1, 4)
)

var levelColors = map[string]lipgloss.Color{
	"yellow": lipgloss.Color("#FFE45E"),
	"green":  lipgloss.Color("#39FF14"),
	"cyan":   lipgloss.Color("#00E5FF"),
}

// NewModel constructs a typing TUI model.
func NewModel(opts Options) *Model {
	clock := opts.Clock
	if clock == nil {
		clock = typing.SystemClock
	}
	return &Model{
		config: opts.Config,
		text:   opts.Text,
		store:  opts.Store,
		sink:   opts.Sink,
		clock:  clock,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadText()
}

func (m *Model) loadText() tea.Cmd {
	gen := m.gen
	next := m.text
	return func() tea.Msg {
		text, err := next(context.Background())
		return textMsg{gen: gen, text: text, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(typing.TickInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case textMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.startSession(msg.text, msg.err)
		return m, nil
	case tickMsg:
		if msg.gen != m.gen || m.session == nil || !m.session.Active() {
			return m, nil
		}
		m.session.Tick()
		if m.session.State() == typing.StateFinished {
			m.ticking = false
			return m, m.saveResult()
		}
		return m, m.tick()
	case savedMsg:
		m.saveErr = msg.err
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit
	case tea.KeyTab:
		return m.restart()
	}
	if m.session == nil {
		return nil
	}
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete:
		m.session.Keystroke(typing.KeyBackspace)
	case tea.KeySpace:
		m.session.Keystroke(" ")
	case tea.KeyRunes:
		// Pasted text is not typing.
		if msg.Paste {
			return nil
		}
		for _, r := range msg.Runes {
			m.session.Keystroke(string(r))
		}
	default:
		return nil
	}
	return m.afterEvent()
}

// afterEvent starts the tick loop on the first keystroke and saves the
// result once the session finishes. Only one tick is in flight at a time.
func (m *Model) afterEvent() tea.Cmd {
	switch m.session.State() {
	case typing.StateActive:
		if m.ticking {
			return nil
		}
		m.ticking = true
		return m.tick()
	case typing.StateFinished:
		m.ticking = false
		return m.saveResult()
	}
	return nil
}

func (m *Model) restart() tea.Cmd {
	m.gen++
	m.session = nil
	m.ticking = false
	m.loadErr = nil
	m.result = nil
	m.saveErr = nil
	return m.loadText()
}

func (m *Model) startSession(text string, err error) {
	if err != nil {
		m.loadErr = err
		return
	}
	session, err := typing.NewSession(m.config.TimeLimitSeconds(),
		typing.WithClock(m.clock),
		typing.WithSink(typing.SinkFunc(m.report)))
	if err == nil {
		err = session.Load(text)
	}
	if err != nil {
		m.loadErr = err
		return
	}
	m.session = session
}

func (m *Model) report(r typing.Result) {
	m.result = &r
	if m.sink != nil {
		m.sink.Report(r)
	}
}

func (m *Model) saveResult() tea.Cmd {
	if m.result == nil || m.store == nil {
		return nil
	}
	r := *m.result
	started := m.session.StartedAt()
	ps := model.PracticeSession{
		StartedAt: started,
		EndedAt:   started.Add(time.Duration(r.TimeLimitSeconds-m.session.Remaining()) * time.Second),
		Mode:      m.config.Mode,
		TimeLimit: r.TimeLimitSeconds,
		Cursor:    r.Cursor,
		Errors:    r.ErrorCount,
		NetWPM:    r.NetWPM,
		Accuracy:  r.Accuracy,
	}
	st := m.store
	return func() tea.Msg {
		_, err := st.InsertSession(context.Background(), ps)
		if err != nil {
			logErrf("failed to save session: %v\n", err)
		}
		return savedMsg{err: err}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	switch {
	case m.loadErr != nil:
		return m.place(incorrectStyle.Render(fmt.Sprintf("failed to load text: %v", m.loadErr)) +
			"\n\n" + footerStyle.Render("tab retry · esc quit"))
	case m.session == nil:
		return m.place(footerStyle.Render("Loading text..."))
	case m.session.State() == typing.StateFinished:
		return m.place(m.renderResult())
	}

	styledRunes := buildStyledRunes(m.session.Snapshot())
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styledRunes) + "\n" + m.renderFooter()
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styledRunes, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderFooter() string {
	if m.session == nil {
		return ""
	}
	live := m.session.Live()
	remaining := m.session.Remaining()
	segments := []string{
		strings.ToUpper(string(m.config.Mode)),
		fmt.Sprintf("%d:%02d", remaining/60, remaining%60),
		fmt.Sprintf("%d WPM", live.GrossWPM),
		fmt.Sprintf("%d%%", live.Accuracy),
	}
	if !m.session.Active() {
		segments = append(segments, "start typing")
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func (m *Model) renderResult() string {
	if m.result == nil {
		return footerStyle.Render("Time's up before any typing.") + "\n\n" +
			footerStyle.Render("tab restart · esc quit")
	}
	r := *m.result
	if m.config.Mode == model.ModeTest {
		return m.renderCertificate(r)
	}
	level := statsPkg.PerformanceLevel(r.NetWPM)
	levelStyle := lipgloss.NewStyle().Bold(true).Foreground(levelColors[level.Color])
	lines := []string{
		titleStyle.Render("Results"),
		"",
		fmt.Sprintf("Net WPM   %d", r.NetWPM),
		fmt.Sprintf("Accuracy  %d%%", r.Accuracy),
		fmt.Sprintf("Errors    %d", r.ErrorCount),
		"Level     " + levelStyle.Render(level.Name),
	}
	if m.saveErr != nil {
		lines = append(lines, "", incorrectStyle.Render("history not saved"))
	}
	lines = append(lines, "", footerStyle.Render("tab restart · esc quit"))
	return strings.Join(lines, "\n")
}

// renderCertificate shows a finished test run as a certificate card.
func (m *Model) renderCertificate(r typing.Result) string {
	name := m.config.Name
	if name == "" {
		name = "Anonymous"
	}
	card := strings.Join([]string{
		titleStyle.Render("Certificate of Typing Speed"),
		"",
		"Awarded to " + lipgloss.NewStyle().Bold(true).Render(name),
		"",
		fmt.Sprintf("%d WPM", r.NetWPM),
		fmt.Sprintf("%d%% accuracy", r.Accuracy),
		m.session.StartedAt().Format("02/01/2006"),
	}, "\n")
	lines := []string{certificateStyle.Render(card)}
	if m.saveErr != nil {
		lines = append(lines, "", incorrectStyle.Render("history not saved"))
	}
	lines = append(lines, "", footerStyle.Render("tab restart · esc quit"))
	return strings.Join(lines, "\n")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
