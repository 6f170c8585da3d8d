package typing

import (
	"context"
	"time"
)

// Event is emitted by a Driver after every state change.
type Event struct {
	Snapshot Snapshot
	// Result is set once, on the event that finished the session.
	Result *Result
}

// Driver serializes keystrokes and clock ticks onto one session. All session
// access happens on the goroutine running Run.
type Driver struct {
	session *Session
	clock   Clock
	keys    chan string
}

// NewDriver wraps a loaded session. buffer sizes the keystroke queue.
func NewDriver(s *Session, clock Clock, buffer int) *Driver {
	if clock == nil {
		clock = SystemClock
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Driver{session: s, clock: clock, keys: make(chan string, buffer)}
}

// Keys returns the channel keystrokes are submitted on.
func (d *Driver) Keys() chan<- string { return d.keys }

// Run processes keystrokes and ticks until the session finishes, ctx is
// cancelled, or the keys channel is closed. emit is called on the Run
// goroutine after each processed event. The ticker is started lazily once
// the session becomes active and is stopped before Run returns.
func (d *Driver) Run(ctx context.Context, emit func(Event)) {
	var ticker Ticker
	var tickC <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-d.keys:
			if !ok {
				return
			}
			d.session.Keystroke(key)
			if ticker == nil && d.session.State() == StateActive {
				ticker = d.clock.NewTicker(TickInterval)
				tickC = ticker.C()
			}
		case <-tickC:
			if ctx.Err() != nil {
				return
			}
			d.session.Tick()
		}

		ev := Event{Snapshot: d.session.Snapshot()}
		if d.session.State() == StateFinished {
			if r, ok := d.session.Result(); ok {
				ev.Result = &r
			}
		}
		if emit != nil {
			emit(ev)
		}
		if d.session.State() == StateFinished {
			return
		}
	}
}
