package typing

// Snapshot is a read-only copy of the session data model for view layers.
type Snapshot struct {
	State      State  `json:"state"`
	Text       string `json:"text"`
	Marks      []Mark `json:"marks"`
	Current    int    `json:"current"`
	Cursor     int    `json:"cursor"`
	ErrorCount int    `json:"errorCount"`
	Remaining  int    `json:"remaining"`
	TimeLimit  int    `json:"timeLimit"`
	Live       Live   `json:"live"`
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() Snapshot {
	marks := make([]Mark, len(s.marks))
	copy(marks, s.marks)
	return Snapshot{
		State:      s.state,
		Text:       string(s.text),
		Marks:      marks,
		Current:    s.Current(),
		Cursor:     s.cursor,
		ErrorCount: s.errors,
		Remaining:  s.remaining,
		TimeLimit:  s.limit,
		Live:       s.Live(),
	}
}
