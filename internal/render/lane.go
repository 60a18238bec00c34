package render

import (
	"context"
	"sync"
	"time"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
)

// Stats describe one lane. LastSeq and LastGeneration belong to the last
// frame the sink accepted.
type Stats struct {
	Sink           string        `json:"sink"`
	LastSeq        uint64        `json:"last_seq"`
	LastGeneration uint64        `json:"last_generation"`
	Delivered      uint64        `json:"delivered"`
	Failed         uint64        `json:"failed"`
	Coalesced      uint64        `json:"coalesced"`
	Discarded      uint64        `json:"discarded"`
	LastError      string        `json:"last_error,omitempty"`
	LastLatency    time.Duration `json:"last_latency"`
	Pending        bool          `json:"pending"`
	InFlight       bool          `json:"in_flight"`
}

type lane struct {
	sink Sink

	mu       sync.Mutex
	stats    Stats
	shown    *card.Grid
	pending  *animate.Frame
	inFlight bool
	wake     chan struct{}
}

func newLane(s Sink) *lane {
	return &lane{
		sink:  s,
		stats: Stats{Sink: s.Name()},
		wake:  make(chan struct{}, 1),
	}
}

// deliver writes f, diff-only when the sink supports it.
func (l *lane) deliver(ctx context.Context, f animate.Frame) error {
	l.mu.Lock()
	prev := l.shown
	l.mu.Unlock()

	start := time.Now()
	var err error
	if cs, ok := l.sink.(ColumnSink); ok && prev != nil {
		if cols := f.Grid().Diff(prev); len(cols) > 0 {
			err = cs.RenderColumns(ctx, f, cols)
		}
	} else {
		err = l.sink.Render(ctx, f)
	}
	elapsed := time.Since(start)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.LastLatency = elapsed
	if err != nil {
		l.stats.Failed++
		l.stats.LastError = err.Error()
		// The physical state is unknown after a failed write; force a full
		// rewrite next time.
		l.shown = nil
		return &SinkWriteError{Sink: l.sink.Name(), Seq: f.Seq, Err: err}
	}
	l.stats.Delivered++
	l.stats.LastSeq = f.Seq
	l.stats.LastGeneration = f.Grid().Generation()
	l.stats.LastError = ""
	l.shown = f.Grid()
	return nil
}

// offer parks f in the mailbox and reports whether it replaced a frame.
func (l *lane) offer(f animate.Frame) bool {
	l.mu.Lock()
	replaced := l.pending != nil
	if replaced {
		l.stats.Coalesced++
	}
	l.pending = &f
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return replaced
}

func (l *lane) take() (animate.Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return animate.Frame{}, false
	}
	f := *l.pending
	l.pending = nil
	l.inFlight = true
	return f, true
}

func (l *lane) done() {
	l.mu.Lock()
	l.inFlight = false
	l.mu.Unlock()
}

func (l *lane) discard(session uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil || l.pending.Session != session {
		return false
	}
	l.pending = nil
	l.stats.Discarded++
	return true
}

func (l *lane) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending == nil && !l.inFlight
}

func (l *lane) snapshot() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.Pending = l.pending != nil
	s.InFlight = l.inFlight
	return s
}
