package typing

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 128)}
	c.tickers = append(c.tickers, t)
	return t
}

func clockTickers(c *fakeClock) []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTicker(nil), c.tickers...)
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func newLoaded(t *testing.T, text string, limit int, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(limit, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Load(text); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func typeString(s *Session, text string) {
	for _, r := range text {
		s.Keystroke(string(r))
	}
}

func TestNewSessionRejectsNonPositiveLimit(t *testing.T) {
	if _, err := NewSession(0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestLoadEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		s, _ := NewSession(60)
		err := s.Load(text)
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected LoadError for %q, got %v", text, err)
		}
		if !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText for %q", text)
		}
		if s.State() != StateIdle {
			t.Fatalf("expected idle after failed load, got %s", s.State())
		}
	}
}

func TestLoadTwice(t *testing.T) {
	s := newLoaded(t, "abc", 60)
	if err := s.Load("def"); !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
}

func TestKeystrokeIgnoredWhenIdle(t *testing.T) {
	s, _ := NewSession(60)
	s.Keystroke("a")
	if s.State() != StateIdle || s.Cursor() != 0 {
		t.Fatalf("expected idle untouched session")
	}
}

func TestFirstKeystrokeStartsSession(t *testing.T) {
	clock := newFakeClock()
	s := newLoaded(t, "abc", 60, WithClock(clock))
	if s.State() != StateReady {
		t.Fatalf("expected ready, got %s", s.State())
	}
	if s.Active() {
		t.Fatalf("ready session must not be active")
	}
	s.Keystroke("a")
	if s.State() != StateActive {
		t.Fatalf("expected active, got %s", s.State())
	}
	if !s.StartedAt().Equal(clock.Now()) {
		t.Fatalf("expected start timestamp to be recorded")
	}
	started := s.StartedAt()
	clock.Advance(time.Second)
	s.Keystroke("b")
	if !s.StartedAt().Equal(started) {
		t.Fatalf("start timestamp must not be reset")
	}
}

func TestIgnoredKeysDoNotStartSession(t *testing.T) {
	s := newLoaded(t, "abc", 60)
	for _, key := range []string{"Shift", "Control", "ab", "", "\t", "Enter"} {
		s.Keystroke(key)
	}
	if s.State() != StateReady {
		t.Fatalf("expected ready after ignored keys, got %s", s.State())
	}
}

func TestAllCorrectFinishes(t *testing.T) {
	texts := []string{"a", "cat", "The quick brown fox.", strings.Repeat("xy ", 40)}
	for _, text := range texts {
		s := newLoaded(t, text, 60)
		typeString(s, text)
		if s.Cursor() != len([]rune(text)) {
			t.Fatalf("expected cursor %d, got %d", len([]rune(text)), s.Cursor())
		}
		if s.ErrorCount() != 0 {
			t.Fatalf("expected no errors, got %d", s.ErrorCount())
		}
		if s.State() != StateFinished {
			t.Fatalf("expected finished, got %s", s.State())
		}
		if s.Active() {
			t.Fatalf("finished session must not be active")
		}
	}
}

func TestCatScenario(t *testing.T) {
	s := newLoaded(t, "cat", 60)
	s.Keystroke("c")
	s.Keystroke("a")
	if s.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", s.Cursor())
	}
	if got := s.Live().Accuracy; got != 100 {
		t.Fatalf("expected live accuracy 100, got %d", got)
	}
	s.Tick()
	s.Keystroke("x")
	if s.Cursor() != 3 || s.ErrorCount() != 1 {
		t.Fatalf("expected cursor 3 errors 1, got %d %d", s.Cursor(), s.ErrorCount())
	}
	if s.State() != StateFinished {
		t.Fatalf("expected finished, got %s", s.State())
	}
	res, ok := s.Result()
	if !ok {
		t.Fatalf("expected a result after one second elapsed")
	}
	if res.Accuracy != 67 {
		t.Fatalf("expected final accuracy 67, got %d", res.Accuracy)
	}
	if s.MarkAt(2) != MarkIncorrect || s.MarkAt(0) != MarkCorrect {
		t.Fatalf("unexpected marks: %s %s", s.MarkAt(0), s.MarkAt(2))
	}
}

func TestErrorCountMonotonicAndBounded(t *testing.T) {
	s := newLoaded(t, "hello world", 60)
	keys := []string{"h", "x", "l", "Shift", "l", "q", " ", "w", "o", "r", "l", "d"}
	prev := 0
	for _, key := range keys {
		s.Keystroke(key)
		if s.ErrorCount() < prev {
			t.Fatalf("error count decreased on %q", key)
		}
		if s.ErrorCount() > s.Cursor() {
			t.Fatalf("error count %d exceeds cursor %d", s.ErrorCount(), s.Cursor())
		}
		prev = s.ErrorCount()
	}
}

func TestDeleteAfterIncorrect(t *testing.T) {
	s := newLoaded(t, "cat", 60)
	s.Keystroke("c")
	s.Keystroke("x")
	if s.Cursor() != 2 || s.ErrorCount() != 1 {
		t.Fatalf("expected cursor 2 errors 1, got %d %d", s.Cursor(), s.ErrorCount())
	}
	s.Keystroke(KeyBackspace)
	if s.Cursor() != 1 {
		t.Fatalf("expected cursor 1 after delete, got %d", s.Cursor())
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("delete must not refund errors, got %d", s.ErrorCount())
	}
	if s.Current() != 1 {
		t.Fatalf("expected current index 1, got %d", s.Current())
	}
	if s.MarkAt(1) != MarkIncorrect {
		t.Fatalf("delete must keep the prior mark, got %s", s.MarkAt(1))
	}
	s.Keystroke("a")
	if s.MarkAt(1) != MarkCorrect {
		t.Fatalf("retyping must overwrite the mark, got %s", s.MarkAt(1))
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("expected errors to stay 1, got %d", s.ErrorCount())
	}
}

func TestDeleteAtZeroIgnored(t *testing.T) {
	s := newLoaded(t, "cat", 60)
	s.Keystroke(KeyBackspace)
	if s.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", s.Cursor())
	}
	if s.State() != StateActive {
		t.Fatalf("deletion is an accepted key and starts the session, got %s", s.State())
	}
}

func TestErrorsMayExceedCursorAfterDeletion(t *testing.T) {
	s := newLoaded(t, "cat", 60)
	s.Keystroke("x")
	s.Keystroke(KeyBackspace)
	if s.Cursor() != 0 || s.ErrorCount() != 1 {
		t.Fatalf("expected cursor 0 errors 1, got %d %d", s.Cursor(), s.ErrorCount())
	}
	if s.ErrorCount() > s.Typed() {
		t.Fatalf("errors must not exceed typed keystrokes")
	}
	if s.Live().Accuracy != 100 {
		t.Fatalf("expected optimistic accuracy at cursor 0")
	}
}

func TestTickOnlyWhenActive(t *testing.T) {
	s := newLoaded(t, "abc", 3)
	s.Tick()
	if s.Remaining() != 3 {
		t.Fatalf("tick in ready must be ignored, got %d", s.Remaining())
	}
	s.Keystroke("a")
	s.Tick()
	if s.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", s.Remaining())
	}
}

func TestTimerExpiryFinishesRegardlessOfCursor(t *testing.T) {
	s := newLoaded(t, "abcdef", 3)
	s.Keystroke("a")
	for i := 0; i < 3; i++ {
		s.Tick()
	}
	if s.State() != StateFinished {
		t.Fatalf("expected finished on expiry, got %s", s.State())
	}
	if s.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", s.Remaining())
	}
	s.Keystroke("b")
	if s.Cursor() != 1 {
		t.Fatalf("keystroke after expiry must be ignored")
	}
	s.Tick()
	if s.Remaining() != 0 {
		t.Fatalf("tick after finish must be ignored")
	}
}

func TestNetWPMScenario(t *testing.T) {
	var reports []Result
	sink := SinkFunc(func(r Result) { reports = append(reports, r) })
	text := strings.Repeat("a", 100)
	s := newLoaded(t, text, 60, WithSink(sink))
	typeString(s, strings.Repeat("a", 30))
	for i := 0; i < 60; i++ {
		s.Tick()
	}
	res, ok := s.Result()
	if !ok {
		t.Fatalf("expected result")
	}
	if res.NetWPM != 6 {
		t.Fatalf("expected net WPM 6, got %d", res.NetWPM)
	}
	if res.Accuracy != 100 || res.Cursor != 30 || res.TimeLimitSeconds != 60 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one sink report, got %d", len(reports))
	}
}

func TestZeroElapsedSuppressesResult(t *testing.T) {
	called := false
	s := newLoaded(t, "cat", 60, WithSink(SinkFunc(func(Result) { called = true })))
	typeString(s, "cat")
	if s.State() != StateFinished {
		t.Fatalf("expected finished")
	}
	if _, ok := s.Result(); ok {
		t.Fatalf("instant completion must not produce a result")
	}
	if called {
		t.Fatalf("sink must not be called without a result")
	}
}

func TestEmptySessionOnExpiryIsReportable(t *testing.T) {
	s := newLoaded(t, "cat", 2)
	// Backspace at cursor 0 starts the timer without typing anything.
	s.Keystroke(KeyBackspace)
	s.Tick()
	s.Tick()
	res, ok := s.Result()
	if !ok {
		t.Fatalf("expected reportable result")
	}
	if res.Cursor != 0 || res.Accuracy != 0 || res.NetWPM != 0 {
		t.Fatalf("unexpected empty result: %+v", res)
	}
}

func TestLiveStats(t *testing.T) {
	clock := newFakeClock()
	s := newLoaded(t, strings.Repeat("a", 50), 60, WithClock(clock))
	live := s.Live()
	if live.GrossWPM != 0 || live.Accuracy != 100 || live.ElapsedMinutes != 0 {
		t.Fatalf("unexpected defaults: %+v", live)
	}
	s.Keystroke("a")
	if got := s.Live().GrossWPM; got != 0 {
		t.Fatalf("expected 0 WPM at zero elapsed, got %d", got)
	}
	typeString(s, strings.Repeat("a", 9))
	s.Keystroke("b")
	clock.Advance(30 * time.Second)
	live = s.Live()
	// 11 chars / 5 / 0.5 min = 4.4
	if live.GrossWPM != 4 {
		t.Fatalf("expected gross WPM 4, got %d", live.GrossWPM)
	}
	// (11-1)/11 = 90.9%
	if live.Accuracy != 91 {
		t.Fatalf("expected accuracy 91, got %d", live.Accuracy)
	}
}

func TestLiveFrozenAfterFinish(t *testing.T) {
	clock := newFakeClock()
	s := newLoaded(t, "abcde", 60, WithClock(clock))
	s.Keystroke("a")
	clock.Advance(30 * time.Second)
	typeString(s, "bcde")
	if s.State() != StateFinished {
		t.Fatalf("expected finished, got %s", s.State())
	}
	// 5 chars / 5 / 0.5 min = 2
	before := s.Live()
	if before.GrossWPM != 2 {
		t.Fatalf("expected gross WPM 2 at finish, got %d", before.GrossWPM)
	}
	clock.Advance(90 * time.Second)
	if after := s.Live(); after != before {
		t.Fatalf("expected live stats to stop at finish, got %+v then %+v", before, after)
	}
}

func TestSnapshotCopiesMarks(t *testing.T) {
	s := newLoaded(t, "ab", 60)
	s.Keystroke("x")
	snap := s.Snapshot()
	if snap.Marks[0] != MarkIncorrect || snap.Current != 1 || snap.State != StateActive {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	snap.Marks[0] = MarkCorrect
	if s.MarkAt(0) != MarkIncorrect {
		t.Fatalf("snapshot must not alias session marks")
	}
}

func TestUnicodeText(t *testing.T) {
	s := newLoaded(t, "héllo", 60)
	typeString(s, "héllo")
	if s.State() != StateFinished || s.ErrorCount() != 0 {
		t.Fatalf("expected clean finish on unicode text")
	}
}
