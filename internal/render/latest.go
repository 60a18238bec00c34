package render

import (
	"context"
	"sync/atomic"

	"github.com/san-kum/punchcard/internal/animate"
)

// Latest is a GUI sink that keeps only the newest frame. Widgets that
// redraw on their own clock poll it; Render never blocks the pipeline.
type Latest struct {
	name   string
	frame  atomic.Pointer[animate.Frame]
	frames atomic.Uint64
}

func NewLatest(name string) *Latest { return &Latest{name: name} }

func (l *Latest) Name() string { return l.name }

func (l *Latest) Render(_ context.Context, f animate.Frame) error {
	l.frame.Store(&f)
	l.frames.Add(1)
	return nil
}

// Frame returns the newest frame, if any has arrived.
func (l *Latest) Frame() (animate.Frame, bool) {
	f := l.frame.Load()
	if f == nil {
		return animate.Frame{}, false
	}
	return *f, true
}

// Count is the number of frames received.
func (l *Latest) Count() uint64 { return l.frames.Load() }
