// Package render fans animation frames out to the GUI and hardware sinks.
//
// The GUI lane is synchronous and sees every frame. The hardware lane runs
// on its own goroutine behind a mailbox of depth one: a frame that arrives
// while a write is in flight replaces whatever was waiting, so a slow panel
// only ever catches up to the newest frame and never builds a backlog.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/punchcard/internal/animate"
)

// Sink is a rendering target.
type Sink interface {
	Name() string
	Render(ctx context.Context, f animate.Frame) error
}

// ColumnSink can rewrite a subset of columns. The renderer passes only the
// columns that changed since the sink's last successful write.
type ColumnSink interface {
	Sink
	RenderColumns(ctx context.Context, f animate.Frame, cols []int) error
}

// ErrSinkWrite indicates a failed sink write.
var ErrSinkWrite = errors.New("render: sink write failed")

// SinkWriteError identifies the sink and frame of a failed write.
type SinkWriteError struct {
	Sink string
	Seq  uint64
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("render: sink %s failed on frame %d: %v", e.Sink, e.Seq, e.Err)
}

func (e *SinkWriteError) Unwrap() []error { return []error{ErrSinkWrite, e.Err} }

// Status is the result of handing a frame to one sink.
type Status int

const (
	// Skipped means the lane has no sink.
	Skipped Status = iota
	Delivered
	Failed
	// Queued means the frame waits for the hardware worker.
	Queued
	// Coalesced means the frame was queued and replaced an older pending one.
	Coalesced
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Queued:
		return "queued"
	case Coalesced:
		return "coalesced"
	default:
		return "skipped"
	}
}

// Outcome is the per-sink result of Publish.
type Outcome struct {
	Sink   string
	Seq    uint64
	Status Status
	Err    error
}

// Report holds the outcome of both lanes.
type Report struct {
	GUI      Outcome
	Hardware Outcome
}
