// Package typing implements the typing test session engine.
package typing

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/neontype/internal/stats"
)

// KeyBackspace is the deletion key name, as reported by KeyboardEvent.key.
const KeyBackspace = "Backspace"

// State is the lifecycle state of a session.
type State int

const (
	// StateIdle means no reference text is loaded.
	StateIdle State = iota
	// StateReady means text is loaded and the timer has not started.
	StateReady
	// StateActive means the timer is running and input is accepted.
	StateActive
	// StateFinished is terminal.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mark is the typed state of a single reference character.
type Mark uint8

const (
	MarkUntyped Mark = iota
	MarkCorrect
	MarkIncorrect
)

func (m Mark) String() string {
	switch m {
	case MarkCorrect:
		return "correct"
	case MarkIncorrect:
		return "incorrect"
	default:
		return "untyped"
	}
}

// MarshalText renders the mark name in JSON payloads.
func (m Mark) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

var (
	// ErrEmptyText is wrapped by LoadError when the reference text is blank.
	ErrEmptyText = errors.New("reference text is empty")
	// ErrAlreadyLoaded is returned when Load is called on a used session.
	ErrAlreadyLoaded = errors.New("session already loaded")
)

// LoadError reports a reference text that cannot start a session.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load reference text: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Result is the final record emitted when a session finishes.
type Result struct {
	NetWPM           int `json:"netWPM"`
	Accuracy         int `json:"accuracy"`
	ErrorCount       int `json:"errorCount"`
	Cursor           int `json:"cursor"`
	TimeLimitSeconds int `json:"timeLimitSeconds"`
}

// Sink receives the final result of a session.
type Sink interface {
	Report(Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Result)

// Report implements Sink.
func (f SinkFunc) Report(r Result) { f(r) }

// Live holds statistics that are refreshed while the session runs.
type Live struct {
	GrossWPM       int     `json:"wpm"`
	Accuracy       int     `json:"accuracy"`
	ElapsedMinutes float64 `json:"elapsedMinutes"`
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithSink registers the receiver of the final result.
func WithSink(sink Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// Session is a single typing test. It is not safe for concurrent use; the
// goroutine driving it owns it.
type Session struct {
	clock Clock
	sink  Sink

	state     State
	text      []rune
	marks     []Mark
	cursor    int
	errors    int
	typed     int
	startedAt  time.Time
	finishedAt time.Time
	limit      int
	remaining  int

	result   Result
	resultOK bool
}

// NewSession creates an idle session with the given time limit in seconds.
// Non-positive limits are rejected.
func NewSession(timeLimitSeconds int, opts ...Option) (*Session, error) {
	if timeLimitSeconds <= 0 {
		return nil, fmt.Errorf("time limit must be positive, got %d", timeLimitSeconds)
	}
	s := &Session{
		clock:     SystemClock,
		limit:     timeLimitSeconds,
		remaining: timeLimitSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load installs the reference text and moves the session to Ready.
func (s *Session) Load(text string) error {
	if s.state != StateIdle {
		return ErrAlreadyLoaded
	}
	if strings.TrimSpace(text) == "" {
		return &LoadError{Err: ErrEmptyText}
	}
	s.text = []rune(text)
	s.marks = make([]Mark, len(s.text))
	s.state = StateReady
	return nil
}

// Keystroke applies one key event. Keys that cannot be typed are ignored.
func (s *Session) Keystroke(key string) {
	if s.state != StateReady && s.state != StateActive {
		return
	}
	if s.remaining == 0 {
		return
	}
	r, displayable := displayableRune(key)
	if key != KeyBackspace && !displayable {
		return
	}
	if s.state == StateReady {
		s.state = StateActive
		s.startedAt = s.clock.Now()
	}

	if key == KeyBackspace {
		if s.cursor > 0 {
			s.cursor--
		}
		return
	}

	if s.cursor >= len(s.text) {
		return
	}
	if r == s.text[s.cursor] {
		s.marks[s.cursor] = MarkCorrect
	} else {
		s.marks[s.cursor] = MarkIncorrect
		s.errors++
	}
	s.typed++
	s.cursor++
	if s.cursor == len(s.text) {
		s.finish()
	}
}

// Tick consumes one second of the time limit.
func (s *Session) Tick() {
	if s.state != StateActive {
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.finish()
	}
}

func (s *Session) finish() {
	s.state = StateFinished
	s.finishedAt = s.clock.Now()
	elapsedSeconds := s.limit - s.remaining
	if elapsedSeconds == 0 {
		return
	}
	minutes := float64(elapsedSeconds) / 60
	s.result = Result{
		NetWPM:           stats.NetWPM(s.cursor, s.errors, minutes),
		Accuracy:         stats.Accuracy(s.cursor, s.errors, 0),
		ErrorCount:       s.errors,
		Cursor:           s.cursor,
		TimeLimitSeconds: s.limit,
	}
	s.resultOK = true
	if s.sink != nil {
		s.sink.Report(s.result)
	}
}

// Live returns gross WPM and accuracy as of now, or as of the finish once
// the session is over.
func (s *Session) Live() Live {
	if s.startedAt.IsZero() {
		return Live{Accuracy: 100}
	}
	now := s.clock.Now()
	if s.state == StateFinished {
		now = s.finishedAt
	}
	minutes := now.Sub(s.startedAt).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return Live{
		GrossWPM:       stats.GrossWPM(s.cursor, minutes),
		Accuracy:       stats.Accuracy(s.cursor, s.errors, 100),
		ElapsedMinutes: minutes,
	}
}

// Result returns the final record. ok is false until the session finishes,
// and stays false when it finished with zero elapsed time.
func (s *Session) Result() (Result, bool) {
	return s.result, s.resultOK
}

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Active reports whether the timer is running.
func (s *Session) Active() bool { return s.state == StateActive }

// Cursor returns the index of the next expected character.
func (s *Session) Cursor() int { return s.cursor }

// ErrorCount returns the number of incorrect keystrokes so far.
func (s *Session) ErrorCount() int { return s.errors }

// Typed returns the number of displayable keystrokes accepted so far.
func (s *Session) Typed() int { return s.typed }

// Remaining returns the seconds left on the timer.
func (s *Session) Remaining() int { return s.remaining }

// TimeLimit returns the configured limit in seconds.
func (s *Session) TimeLimit() int { return s.limit }

// StartedAt returns the time of the first accepted keystroke, or the zero time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Len returns the reference text length in characters.
func (s *Session) Len() int { return len(s.text) }

// Text returns the reference text.
func (s *Session) Text() string { return string(s.text) }

// MarkAt returns the mark of the character at index i.
func (s *Session) MarkAt(i int) Mark {
	if i < 0 || i >= len(s.marks) {
		return MarkUntyped
	}
	return s.marks[i]
}

// Current returns the index marked current, or -1 when the cursor is past the end.
func (s *Session) Current() int {
	if s.state == StateIdle || s.cursor >= len(s.text) {
		return -1
	}
	return s.cursor
}

func displayableRune(key string) (rune, bool) {
	if key == "" || utf8.RuneCountInString(key) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError || !unicode.IsPrint(r) {
		return 0, false
	}
	return r, true
}
