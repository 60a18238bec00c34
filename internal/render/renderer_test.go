package render

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
)

type recordingSink struct {
	name string
	gate chan struct{}
	fail func(seq uint64) error

	mu      sync.Mutex
	seqs    []uint64
	columns [][]int
	started chan uint64
}

func newRecordingSink(name string) *recordingSink {
	return &recordingSink{name: name, started: make(chan uint64, 64)}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Render(ctx context.Context, f animate.Frame) error {
	s.started <- f.Seq
	if s.gate != nil {
		<-s.gate
	}
	if s.fail != nil {
		if err := s.fail(f.Seq); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.seqs = append(s.seqs, f.Seq)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) seen() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.seqs...)
}

type columnSink struct {
	*recordingSink
}

func (s columnSink) RenderColumns(ctx context.Context, f animate.Frame, cols []int) error {
	s.mu.Lock()
	s.columns = append(s.columns, cols)
	s.seqs = append(s.seqs, f.Seq)
	s.mu.Unlock()
	return nil
}

func frame(t *testing.T, seq, session uint64, text string) animate.Frame {
	t.Helper()
	g, err := card.FromText(text, card.DefaultLayout, seq)
	if err != nil {
		t.Fatal(err)
	}
	f := animate.Compose(card.Blank(card.DefaultLayout), g, animate.Instant, 1)
	f.Seq = seq
	f.Session = session
	return f
}

func TestGUIReceivesEveryFrame(t *testing.T) {
	gui := newRecordingSink("gui")
	r := New(gui, nil, Options{})
	r.Start(context.Background())
	defer r.Close()

	for i := uint64(1); i <= 5; i++ {
		rep := r.Publish(context.Background(), frame(t, i, 1, "A"))
		if rep.GUI.Status != Delivered {
			t.Fatalf("frame %d: expected delivered, got %s", i, rep.GUI.Status)
		}
		if rep.Hardware.Status != Skipped {
			t.Errorf("no hardware sink, got %s", rep.Hardware.Status)
		}
	}
	if got := gui.seen(); !reflect.DeepEqual(got, []uint64{1, 2, 3, 4, 5}) {
		t.Errorf("gui saw %v", got)
	}
}

func TestSlowHardwareCoalesces(t *testing.T) {
	gui := newRecordingSink("gui")
	hw := newRecordingSink("hardware")
	hw.gate = make(chan struct{})

	r := New(gui, hw, Options{})
	r.Start(context.Background())
	defer r.Close()

	ctx := context.Background()
	r.Publish(ctx, frame(t, 1, 1, "A"))
	select {
	case <-hw.started:
	case <-time.After(time.Second):
		t.Fatal("hardware write never started")
	}

	for i := uint64(2); i <= 10; i++ {
		rep := r.Publish(ctx, frame(t, i, 1, "A"))
		if rep.GUI.Status != Delivered {
			t.Fatalf("gui blocked by hardware at frame %d", i)
		}
		want := Coalesced
		if i == 2 {
			want = Queued
		}
		if rep.Hardware.Status != want {
			t.Errorf("frame %d: expected %s, got %s", i, want, rep.Hardware.Status)
		}
	}

	close(hw.gate)
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}

	if got := hw.seen(); !reflect.DeepEqual(got, []uint64{1, 10}) {
		t.Errorf("hardware should see first and newest frame only, got %v", got)
	}
	if got := len(gui.seen()); got != 10 {
		t.Errorf("gui should see all 10 frames, got %d", got)
	}
	for _, s := range r.Stats() {
		if s.Sink == "hardware" {
			if s.Coalesced != 8 {
				t.Errorf("expected 8 coalesced frames, got %d", s.Coalesced)
			}
			if s.LastSeq != 10 {
				t.Errorf("expected last seq 10, got %d", s.LastSeq)
			}
		}
	}
}

func TestHardwareFailureIsolated(t *testing.T) {
	gui := newRecordingSink("gui")
	hw := newRecordingSink("hardware")
	boom := errors.New("pin stuck")
	hw.fail = func(seq uint64) error {
		if seq == 1 {
			return boom
		}
		return nil
	}

	var mu sync.Mutex
	var failures []*SinkWriteError
	r := New(gui, hw, Options{OnFailure: func(e *SinkWriteError) {
		mu.Lock()
		failures = append(failures, e)
		mu.Unlock()
	}})
	r.Start(context.Background())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r.Publish(ctx, frame(t, 1, 1, "A"))
	if err := r.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	rep := r.Publish(ctx, frame(t, 2, 1, "B"))
	if rep.GUI.Status != Delivered {
		t.Errorf("gui should still receive frames, got %s", rep.GUI.Status)
	}
	if err := r.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(failures))
	}
	if !errors.Is(failures[0], ErrSinkWrite) || !errors.Is(failures[0], boom) {
		t.Errorf("failure should wrap ErrSinkWrite and cause: %v", failures[0])
	}
	if failures[0].Seq != 1 || failures[0].Sink != "hardware" {
		t.Errorf("unexpected failure context: %+v", failures[0])
	}
	if got := hw.seen(); !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("hardware should recover on the next frame, got %v", got)
	}
}

func TestGUIFailureReported(t *testing.T) {
	gui := newRecordingSink("gui")
	gui.fail = func(uint64) error { return errors.New("window closed") }
	r := New(gui, nil, Options{})
	rep := r.Publish(context.Background(), frame(t, 1, 1, "A"))
	if rep.GUI.Status != Failed || !errors.Is(rep.GUI.Err, ErrSinkWrite) {
		t.Errorf("expected failed outcome, got %+v", rep.GUI)
	}
}

func TestColumnSinkGetsDiff(t *testing.T) {
	hw := columnSink{newRecordingSink("hardware")}
	r := New(nil, hw, Options{})
	r.Start(context.Background())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r.Publish(ctx, frame(t, 1, 1, "ABC"))
	_ = r.Wait(ctx)
	r.Publish(ctx, frame(t, 2, 1, "AXC"))
	_ = r.Wait(ctx)
	r.Publish(ctx, frame(t, 3, 1, "AXC"))
	_ = r.Wait(ctx)

	hw.mu.Lock()
	defer hw.mu.Unlock()
	if !reflect.DeepEqual(hw.seqs, []uint64{1, 2}) {
		t.Errorf("first frame full render, second diff, third no-op; got %v", hw.seqs)
	}
	if len(hw.columns) != 1 || !reflect.DeepEqual(hw.columns[0], []int{1}) {
		t.Errorf("expected diff columns [[1]], got %v", hw.columns)
	}
}

func TestDiscardPending(t *testing.T) {
	hw := newRecordingSink("hardware")
	hw.gate = make(chan struct{})
	r := New(nil, hw, Options{})
	r.Start(context.Background())
	defer r.Close()

	ctx := context.Background()
	r.Publish(ctx, frame(t, 1, 1, "A"))
	<-hw.started
	r.Publish(ctx, frame(t, 2, 1, "B"))
	r.Discard(1)
	r.Publish(ctx, frame(t, 3, 2, "C"))
	r.Discard(1)
	close(hw.gate)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}
	if got := hw.seen(); !reflect.DeepEqual(got, []uint64{1, 3}) {
		t.Errorf("expected [1 3], got %v", got)
	}
}

func TestCloseFlushesPending(t *testing.T) {
	hw := newRecordingSink("hardware")
	r := New(nil, hw, Options{MinInterval: 50 * time.Millisecond})
	r.Start(context.Background())
	r.Publish(context.Background(), frame(t, 1, 1, "A"))
	r.Publish(context.Background(), frame(t, 2, 1, "B"))
	r.Close()

	got := hw.seen()
	if len(got) == 0 || got[len(got)-1] != 2 {
		t.Errorf("newest frame must be written before close, got %v", got)
	}
}

type stampSink struct {
	mu    sync.Mutex
	times []time.Time
}

func (s *stampSink) Name() string { return "hardware" }

func (s *stampSink) Render(context.Context, animate.Frame) error {
	s.mu.Lock()
	s.times = append(s.times, time.Now())
	s.mu.Unlock()
	return nil
}

func TestMinIntervalSpacesHardwareWrites(t *testing.T) {
	const (
		interval = 50 * time.Millisecond
		frames   = 20
	)
	hw := &stampSink{}
	r := New(nil, hw, Options{MinInterval: interval})
	ctx := context.Background()
	r.Start(ctx)
	defer r.Close()

	for i := uint64(1); i <= frames; i++ {
		r.Publish(ctx, frame(t, i, 1, "A"))
		time.Sleep(10 * time.Millisecond)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}

	hw.mu.Lock()
	times := append([]time.Time(nil), hw.times...)
	hw.mu.Unlock()
	if len(times) < 2 || len(times) >= frames {
		t.Fatalf("expected a few spaced writes, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval-5*time.Millisecond {
			t.Errorf("writes %d and %d only %v apart", i-1, i, gap)
		}
	}

	s := r.Stats()[0]
	if s.Coalesced == 0 {
		t.Error("frames published faster than the interval should coalesce")
	}
	if s.Delivered+s.Coalesced != frames {
		t.Errorf("delivered %d + coalesced %d, want %d", s.Delivered, s.Coalesced, frames)
	}
	if s.LastSeq != frames {
		t.Errorf("newest frame should be written last, got seq %d", s.LastSeq)
	}
}

func TestStatsCarryGeneration(t *testing.T) {
	hw := newRecordingSink("hardware")
	r := New(nil, hw, Options{})
	ctx := context.Background()
	r.Start(ctx)
	defer r.Close()

	g, err := card.FromText("GEN", card.DefaultLayout, 7)
	if err != nil {
		t.Fatal(err)
	}
	f := animate.Compose(card.Blank(card.DefaultLayout), g, animate.Instant, 1)
	f.Seq = 3
	r.Publish(ctx, f)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}
	s := r.Stats()[0]
	if s.LastSeq != 3 || s.LastGeneration != 7 {
		t.Errorf("expected seq 3 generation 7, got seq %d generation %d", s.LastSeq, s.LastGeneration)
	}
}

func TestLatestKeepsNewestFrame(t *testing.T) {
	l := NewLatest("tui")
	if _, ok := l.Frame(); ok {
		t.Fatal("no frame expected before Render")
	}

	lay := card.Layout{Rows: 12, Cols: 4}
	for i := 1; i <= 3; i++ {
		f := animate.Compose(card.Blank(lay), card.Blank(lay), animate.Instant, 1)
		f.Seq = uint64(i)
		if err := l.Render(context.Background(), f); err != nil {
			t.Fatal(err)
		}
	}
	f, ok := l.Frame()
	if !ok || f.Seq != 3 {
		t.Errorf("expected frame 3, got %d (ok=%v)", f.Seq, ok)
	}
	if l.Count() != 3 {
		t.Errorf("expected count 3, got %d", l.Count())
	}
}
