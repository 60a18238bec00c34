// Package pipeline turns submitted text into animated card transitions.
//
// The pipeline owns the canonical card and the single active animation
// session. Each submission is encoded synchronously; only valid messages
// ever reach the animation engine. Ticks are produced on one goroutine and
// every frame is computed and handed to the renderer under the pipeline
// lock, so a frame of a superseded session can never follow its
// cancellation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/render"
)

var (
	// ErrSessionCancelled marks a session superseded by a newer message.
	// It is informational and never returned from Submit.
	ErrSessionCancelled = errors.New("pipeline: session cancelled")

	// ErrQueueFull rejects a submission when the queue policy is full.
	ErrQueueFull = errors.New("pipeline: queue full")

	// ErrClosed rejects submissions after Run has returned.
	ErrClosed = errors.New("pipeline: closed")
)

// Policy decides what a submission does to a running session.
type Policy int

const (
	// Supersede cancels the running session; last write wins.
	Supersede Policy = iota
	// Enqueue waits for the running session to complete.
	Enqueue
)

func (p Policy) String() string {
	if p == Enqueue {
		return "queue"
	}
	return "cancel"
}

// ParsePolicy accepts "cancel" and "queue".
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "cancel":
		return Supersede, nil
	case "queue":
		return Enqueue, nil
	default:
		return 0, fmt.Errorf("pipeline: unknown supersede policy %q", name)
	}
}

// Options configure a pipeline.
type Options struct {
	Layout        card.Layout
	Animation     animate.Params
	FrameInterval time.Duration
	Policy        Policy
	QueueLimit    int
	FoldCase      bool
}

const (
	DefaultFrameInterval = 33 * time.Millisecond
	DefaultQueueLimit    = 16
)

// DefaultOptions returns a slide on a standard card.
func DefaultOptions() Options {
	return Options{
		Layout:        card.DefaultLayout,
		Animation:     animate.Params{Kind: animate.Slide},
		FrameInterval: DefaultFrameInterval,
		Policy:        Supersede,
		QueueLimit:    DefaultQueueLimit,
		FoldCase:      true,
	}
}

// Publisher is the renderer as seen by the pipeline.
type Publisher interface {
	Publish(ctx context.Context, f animate.Frame) render.Report
	Discard(session uint64)
	Stats() []render.Stats
}

// Entry is what history receives for a completed message.
type Entry struct {
	ID         uint64        `json:"id"`
	Text       string        `json:"text"`
	At         time.Time     `json:"at"`
	Kind       string        `json:"kind"`
	Outcome    string        `json:"outcome"`
	Generation uint64        `json:"generation"`
	Frames     int           `json:"frames"`
	Elapsed    time.Duration `json:"elapsed"`
}

// OutcomeCompleted is the only outcome the pipeline records.
const OutcomeCompleted = "completed"

// History persists completed messages.
type History interface {
	Record(ctx context.Context, e Entry) error
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	ID       uint64 `json:"id"`
	Text     string `json:"text"`
	Queued   bool   `json:"queued"`
	Position int    `json:"position,omitempty"`
}

// EventType enumerates pipeline notifications.
type EventType int

const (
	EventAccepted EventType = iota
	EventRejected
	EventStarted
	EventCompleted
	EventCancelled
	EventSinkFailure
)

func (t EventType) String() string {
	switch t {
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventSinkFailure:
		return "sink_failure"
	default:
		return "unknown"
	}
}

// Event is delivered to observers in the order it happened.
type Event struct {
	Type EventType
	ID   uint64
	Text string
	At   time.Time
	Err  error
}

// Observer receives pipeline events.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Status is a point-in-time view of the pipeline.
type Status struct {
	State      string         `json:"state"`
	Text       string         `json:"text"`
	Kind       string         `json:"kind,omitempty"`
	Progress   float64        `json:"progress"`
	Generation uint64         `json:"generation"`
	Queued     int            `json:"queued"`
	Sinks      []render.Stats `json:"sinks"`
}
