package animate

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/san-kum/punchcard/internal/card"
)

const (
	DefaultSlide               = 600 * time.Millisecond
	DefaultFade                = 400 * time.Millisecond
	DefaultTypewriterPerColumn = 15 * time.Millisecond
)

// Timing holds the default duration of each kind.
type Timing struct {
	Slide               time.Duration
	Fade                time.Duration
	TypewriterPerColumn time.Duration
}

// DefaultTiming returns the stock durations.
func DefaultTiming() Timing {
	return Timing{
		Slide:               DefaultSlide,
		Fade:                DefaultFade,
		TypewriterPerColumn: DefaultTypewriterPerColumn,
	}
}

// Duration is the default length of kind on a card cols wide.
func (t Timing) Duration(kind Kind, cols int) time.Duration {
	switch kind {
	case Slide:
		return t.Slide
	case Fade:
		return t.Fade
	case Typewriter:
		return t.TypewriterPerColumn * time.Duration(cols)
	default:
		return 0
	}
}

// Params describe one transition. Every kind but Instant needs a positive
// Duration; Resolve fills in the kind's default. A nil Easing is linear.
type Params struct {
	Kind     Kind
	Duration time.Duration
	Easing   Easing
}

// Engine starts sessions and numbers their frames.
type Engine struct {
	timing   Timing
	frames   atomic.Uint64
	sessions atomic.Uint64
}

func NewEngine(timing Timing) *Engine {
	return &Engine{timing: timing}
}

func (e *Engine) Timing() Timing { return e.timing }

// Resolve returns p with an unset (zero) Duration replaced by the kind's
// default on a card of layout l. Negative durations are left for Validate
// to reject.
func (t Timing) Resolve(l card.Layout, p Params) Params {
	if p.Kind != Instant && p.Duration == 0 {
		p.Duration = t.Duration(p.Kind, l.Cols)
	}
	return p
}

// Resolve applies the engine's timing to p.
func (e *Engine) Resolve(l card.Layout, p Params) Params {
	return e.timing.Resolve(l, p)
}

// Validate checks p and returns the session duration. Instant sessions
// ignore Duration; every other kind needs a positive one.
func (e *Engine) Validate(p Params) (time.Duration, error) {
	if !p.Kind.valid() {
		return 0, &ParameterError{Field: "kind", Reason: p.Kind.String()}
	}
	if p.Kind == Instant {
		return 0, nil
	}
	if p.Duration <= 0 {
		return 0, &ParameterError{Field: "duration", Reason: fmt.Sprintf("%s needs a positive duration, got %v", p.Kind, p.Duration)}
	}
	return p.Duration, nil
}

// Start begins a session from source to target at now.
func (e *Engine) Start(source, target *card.Grid, p Params, now time.Time) (*Session, error) {
	if source == nil || target == nil {
		return nil, &ParameterError{Field: "grid", Reason: "source and target are required"}
	}
	if source.Layout() != target.Layout() {
		return nil, &ParameterError{
			Field:  "grid",
			Reason: fmt.Sprintf("layout mismatch %v vs %v", source.Layout(), target.Layout()),
		}
	}
	d, err := e.Validate(p)
	if err != nil {
		return nil, err
	}

	easing := p.Easing
	if easing == nil {
		easing = Linear
	}

	return &Session{
		id:       e.sessions.Add(1),
		engine:   e,
		source:   source,
		target:   target,
		kind:     p.Kind,
		start:    now,
		duration: d,
		easing:   easing,
		state:    Running,
	}, nil
}

func (e *Engine) nextSeq() uint64 { return e.frames.Add(1) }
