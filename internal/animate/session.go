package animate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/punchcard/internal/card"
)

// State is the lifecycle position of a session. Idle describes an owner
// with no session at all.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session is one in-flight transition.
type Session struct {
	id       uint64
	engine   *Engine
	source   *card.Grid
	target   *card.Grid
	kind     Kind
	start    time.Time
	duration time.Duration
	easing   Easing

	cancelled atomic.Bool

	mu       sync.Mutex
	state    State
	progress float64
	last     *Frame
	frames   int
}

func (s *Session) ID() uint64              { return s.id }
func (s *Session) Kind() Kind              { return s.kind }
func (s *Session) Source() *card.Grid      { return s.source }
func (s *Session) Target() *card.Grid      { return s.target }
func (s *Session) Start() time.Time        { return s.start }
func (s *Session) Duration() time.Duration { return s.duration }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress is the progress of the last emitted frame.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Frames counts the frames emitted so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Current is the discrete grid last shown, or the source before the first
// frame.
func (s *Session) Current() *card.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return s.source
	}
	return s.last.grid
}

// Tick advances the session to now and returns its frame. It returns false
// once the session is no longer running; a cancel requested before the
// call is always honored.
func (s *Session) Tick(now time.Time) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled.Load() {
		s.state = Cancelled
	}
	if s.state != Running {
		return Frame{}, false
	}

	raw := 1.0
	if s.duration > 0 {
		raw = clamp01(float64(now.Sub(s.start)) / float64(s.duration))
	}
	p := clamp01(s.easing(raw))
	if raw >= 1 {
		p = 1
	}
	if p < s.progress {
		p = s.progress
	}

	f := Compose(s.source, s.target, s.kind, p)
	f.Seq = s.engine.nextSeq()
	f.Session = s.id

	s.progress = f.Progress
	s.last = &f
	s.frames++
	if f.Final {
		s.state = Completed
	}
	return f, true
}

// Cancel stops the session at the next tick boundary. It reports whether
// the session was still running.
func (s *Session) Cancel() bool {
	s.cancelled.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return false
	}
	s.state = Cancelled
	return true
}
