package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/render"
)

// Option customizes a Pipeline.
type Option func(*Pipeline)

func WithHistory(h History) Option { return func(p *Pipeline) { p.history = h } }

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithClock replaces time.Now, for driving the pipeline with Step.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

type submission struct {
	id     uint64
	text   string
	target *card.Grid
	params animate.Params
}

type active struct {
	submission
	session *animate.Session
}

// Pipeline accepts messages and drives their animations.
type Pipeline struct {
	engine    *animate.Engine
	out       Publisher
	opts      Options
	history   History
	observers []Observer
	log       *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	canonical *card.Grid
	displayed *card.Grid
	current   *active
	queue     []submission
	nextID    uint64
	gen       uint64
	closed    bool

	wake chan struct{}

	evMu       sync.Mutex
	outbox     []Event
	dispatchMu sync.Mutex
}

func New(engine *animate.Engine, out Publisher, opts Options, options ...Option) *Pipeline {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.QueueLimit <= 0 {
		opts.QueueLimit = DefaultQueueLimit
	}
	opts.Animation = engine.Resolve(opts.Layout, opts.Animation)
	blank := card.Blank(opts.Layout)
	p := &Pipeline{
		engine:    engine,
		out:       out,
		opts:      opts,
		log:       slog.Default(),
		now:       time.Now,
		canonical: blank,
		displayed: blank,
		wake:      make(chan struct{}, 1),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Resolve fills an unset duration in params with the engine default for
// the card. SubmitWith itself rejects a non-positive duration.
func (p *Pipeline) Resolve(params animate.Params) animate.Params {
	return p.engine.Resolve(p.opts.Layout, params)
}

// Defaults is the configured animation.
func (p *Pipeline) Defaults() animate.Params { return p.opts.Animation }

// Submit accepts text with the configured animation.
func (p *Pipeline) Submit(ctx context.Context, text string) (Receipt, error) {
	return p.SubmitWith(ctx, text, p.opts.Animation)
}

// SubmitWith accepts text with explicit animation parameters. Encoding and
// parameter errors are returned before any state changes.
func (p *Pipeline) SubmitWith(ctx context.Context, text string, params animate.Params) (Receipt, error) {
	defer p.flush()

	if p.opts.FoldCase {
		text = codec.Fold(text)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Receipt{}, ErrClosed
	}

	target, err := card.FromText(text, p.opts.Layout, 0)
	if err != nil {
		p.reject(text, err)
		return Receipt{}, err
	}

	if _, err := p.engine.Validate(params); err != nil {
		p.reject(text, err)
		return Receipt{}, err
	}

	if p.opts.Policy == Enqueue && (p.current != nil || len(p.queue) > 0) {
		if len(p.queue) >= p.opts.QueueLimit {
			p.reject(text, ErrQueueFull)
			return Receipt{}, ErrQueueFull
		}
		p.nextID++
		sub := submission{id: p.nextID, text: text, target: target, params: params}
		p.queue = append(p.queue, sub)
		p.emit(Event{Type: EventAccepted, ID: sub.id, Text: text, At: p.now()})
		p.log.Info("pipeline: message queued", slog.Uint64("id", sub.id), slog.Int("position", len(p.queue)))
		return Receipt{ID: sub.id, Text: text, Queued: true, Position: len(p.queue)}, nil
	}

	p.nextID++
	sub := submission{id: p.nextID, text: text, target: target, params: params}
	p.emit(Event{Type: EventAccepted, ID: sub.id, Text: text, At: p.now()})
	if err := p.begin(sub); err != nil {
		p.reject(text, err)
		return Receipt{}, err
	}
	p.poke()
	return Receipt{ID: sub.id, Text: text}, nil
}

// begin starts sub from whatever is on display, cancelling the running
// session. Must hold p.mu.
func (p *Pipeline) begin(sub submission) error {
	now := p.now()
	source := p.displayed
	if p.current != nil {
		source = p.current.session.Current()
	}

	target := sub.target.WithGeneration(p.gen + 1)
	s, err := p.engine.Start(source, target, sub.params, now)
	if err != nil {
		return err
	}
	p.gen++

	if prev := p.current; prev != nil && prev.session.Cancel() {
		p.out.Discard(prev.session.ID())
		p.displayed = source
		p.emit(Event{Type: EventCancelled, ID: prev.id, Text: prev.text, At: now, Err: ErrSessionCancelled})
		p.log.Info("pipeline: session superseded",
			slog.Uint64("id", prev.id),
			slog.Float64("progress", prev.session.Progress()))
	}

	p.current = &active{submission: sub, session: s}
	p.emit(Event{Type: EventStarted, ID: sub.id, Text: sub.text, At: now})
	p.log.Debug("pipeline: session started",
		slog.Uint64("id", sub.id),
		slog.String("kind", sub.params.Kind.String()),
		slog.Duration("duration", s.Duration()))
	return nil
}

func (p *Pipeline) reject(text string, err error) {
	p.emit(Event{Type: EventRejected, Text: text, At: p.now(), Err: err})
	p.log.Info("pipeline: message rejected", slog.String("text", text), slog.String("error", err.Error()))
}

// Step produces at most one frame. It is what Run calls on every tick.
func (p *Pipeline) Step(ctx context.Context) {
	defer p.flush()

	done := p.step(ctx)
	if done == nil || p.history == nil {
		return
	}
	if err := p.history.Record(ctx, *done); err != nil {
		p.log.Warn("pipeline: history record failed", slog.Uint64("id", done.ID), slog.String("error", err.Error()))
	}
}

func (p *Pipeline) step(ctx context.Context) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		p.dequeue()
	}
	if p.current == nil {
		return nil
	}

	cur := p.current
	f, ok := cur.session.Tick(p.now())
	if !ok {
		p.current = nil
		return nil
	}
	p.out.Publish(ctx, f)

	if !f.Final {
		return nil
	}

	p.canonical = f.Grid()
	p.displayed = f.Grid()
	p.current = nil

	now := p.now()
	entry := &Entry{
		ID:         cur.id,
		Text:       cur.text,
		At:         now,
		Kind:       cur.session.Kind().String(),
		Outcome:    OutcomeCompleted,
		Generation: f.Grid().Generation(),
		Frames:     cur.session.Frames(),
		Elapsed:    now.Sub(cur.session.Start()),
	}
	p.emit(Event{Type: EventCompleted, ID: cur.id, Text: cur.text, At: now})
	p.log.Info("pipeline: message completed",
		slog.Uint64("id", cur.id),
		slog.String("text", cur.text),
		slog.Int("frames", entry.Frames))

	if len(p.queue) > 0 {
		p.dequeue()
		p.poke()
	}
	return entry
}

// dequeue starts the next queued message. Must hold p.mu.
func (p *Pipeline) dequeue() {
	for len(p.queue) > 0 && p.current == nil {
		next := p.queue[0]
		p.queue = p.queue[1:]
		if err := p.begin(next); err != nil {
			p.reject(next.text, err)
		}
	}
}

// Run ticks the pipeline every frame interval, and immediately after a
// submission, until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	t := time.NewTicker(p.opts.FrameInterval)
	defer t.Stop()

	p.log.Debug("pipeline: running", slog.Duration("frame_interval", p.opts.FrameInterval))
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()
			return nil
		case <-t.C:
		case <-p.wake:
		}
		p.Step(ctx)
	}
}

// SinkFailed records a renderer failure. It is safe to call from any
// goroutine, including from inside Publish.
func (p *Pipeline) SinkFailed(err *render.SinkWriteError) {
	p.emit(Event{Type: EventSinkFailure, At: p.now(), Err: err})
}

// Canonical is the last completed card.
func (p *Pipeline) Canonical() *card.Grid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canonical
}

// Displayed is the card the next session would start from.
func (p *Pipeline) Displayed() *card.Grid {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return p.current.session.Current()
	}
	return p.displayed
}

// Idle reports whether nothing is running or queued.
func (p *Pipeline) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == nil && len(p.queue) == 0
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := Status{
		State:      animate.Idle.String(),
		Text:       p.canonical.Text(),
		Generation: p.canonical.Generation(),
		Queued:     len(p.queue),
	}
	if p.current != nil {
		st.State = animate.Running.String()
		st.Text = p.current.text
		st.Kind = p.current.session.Kind().String()
		st.Progress = p.current.session.Progress()
	}
	p.mu.Unlock()

	st.Sinks = p.out.Stats()
	return st
}

func (p *Pipeline) poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) emit(e Event) {
	p.evMu.Lock()
	p.outbox = append(p.outbox, e)
	p.evMu.Unlock()
}

// flush delivers queued events in order. Callers must not hold p.mu.
func (p *Pipeline) flush() {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	p.evMu.Lock()
	events := p.outbox
	p.outbox = nil
	p.evMu.Unlock()

	for _, e := range events {
		for _, o := range p.observers {
			o.OnEvent(e)
		}
	}
}
