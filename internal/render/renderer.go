package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/punchcard/internal/animate"
)

// Options tune the renderer.
type Options struct {
	// MinInterval is the minimum spacing of hardware writes. Frames that
	// arrive faster are coalesced.
	MinInterval time.Duration
	// OnFailure is called for every failed write, from the writing goroutine.
	OnFailure func(*SinkWriteError)
	Logger    *slog.Logger
}

// Renderer publishes frames to a GUI sink and a hardware sink. Either sink
// may be nil.
type Renderer struct {
	gui  *lane
	hw   *lane
	opts Options
	log  *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	stopped   chan struct{}
}

func New(gui, hardware Sink, opts Options) *Renderer {
	r := &Renderer{
		opts:    opts,
		log:     opts.Logger,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if gui != nil {
		r.gui = newLane(gui)
	}
	if hardware != nil {
		r.hw = newLane(hardware)
	}
	return r
}

// Start launches the hardware worker. Frames published before Start wait
// in the mailbox.
func (r *Renderer) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		if r.hw == nil {
			close(r.stopped)
			return
		}
		go r.runHardware(ctx)
	})
}

// Close stops the worker after it has written the pending frame, if any.
func (r *Renderer) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.startOnce.Do(func() { close(r.stopped) })
	<-r.stopped
}

// Publish hands f to both lanes. The GUI write happens before Publish
// returns; the hardware write happens later on the worker.
func (r *Renderer) Publish(ctx context.Context, f animate.Frame) Report {
	var rep Report

	if r.gui != nil {
		rep.GUI = Outcome{Sink: r.gui.sink.Name(), Seq: f.Seq, Status: Delivered}
		if err := r.gui.deliver(ctx, f); err != nil {
			rep.GUI.Status = Failed
			rep.GUI.Err = err
			r.fail(err)
		}
	}

	if r.hw != nil {
		rep.Hardware = Outcome{Sink: r.hw.sink.Name(), Seq: f.Seq, Status: Queued}
		if r.hw.offer(f) {
			rep.Hardware.Status = Coalesced
		}
	}
	return rep
}

// Discard drops a pending hardware frame of session.
func (r *Renderer) Discard(session uint64) {
	if r.hw != nil && r.hw.discard(session) {
		r.log.Debug("render: discarded pending frame", slog.Uint64("session", session))
	}
}

// Stats returns a snapshot of every configured lane.
func (r *Renderer) Stats() []Stats {
	var out []Stats
	if r.gui != nil {
		out = append(out, r.gui.snapshot())
	}
	if r.hw != nil {
		out = append(out, r.hw.snapshot())
	}
	return out
}

// Idle reports whether the hardware lane has nothing pending or in flight.
func (r *Renderer) Idle() bool {
	return r.hw == nil || r.hw.idle()
}

// Wait blocks until the hardware lane is idle.
func (r *Renderer) Wait(ctx context.Context) error {
	t := time.NewTicker(2 * time.Millisecond)
	defer t.Stop()
	for !r.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopped:
			return nil
		case <-t.C:
		}
	}
	return nil
}

func (r *Renderer) runHardware(ctx context.Context) {
	defer close(r.stopped)

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			r.writeHardware(context.WithoutCancel(ctx), &last)
			return
		case <-r.hw.wake:
		}

		if wait := r.opts.MinInterval - time.Since(last); r.opts.MinInterval > 0 && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		r.writeHardware(ctx, &last)
	}
}

func (r *Renderer) writeHardware(ctx context.Context, last *time.Time) {
	f, ok := r.hw.take()
	if !ok {
		return
	}
	err := r.hw.deliver(ctx, f)
	r.hw.done()
	*last = time.Now()
	if err != nil {
		r.fail(err)
	}
}

func (r *Renderer) fail(err error) {
	var swe *SinkWriteError
	if !errors.As(err, &swe) {
		return
	}
	r.log.Warn("render: sink write failed",
		slog.String("sink", swe.Sink),
		slog.Uint64("seq", swe.Seq),
		slog.String("error", swe.Err.Error()))
	if r.opts.OnFailure != nil {
		r.opts.OnFailure(swe)
	}
}
