package hardware

import (
	"context"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
)

type probe struct {
	gpiotest.Pin
	levels []gpio.Level
}

func newProbe(name string) *probe { return &probe{Pin: gpiotest.Pin{N: name}} }

func (p *probe) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.Pin.Out(l)
}

func (p *probe) rises() int {
	n := 0
	for i := 1; i < len(p.levels); i++ {
		if p.levels[i-1] == gpio.Low && p.levels[i] == gpio.High {
			n++
		}
	}
	return n
}

func frameOf(t *testing.T, text string, l card.Layout) animate.Frame {
	t.Helper()
	g, err := card.FromText(text, l, 1)
	if err != nil {
		t.Fatal(err)
	}
	return animate.Compose(card.Blank(l), g, animate.Instant, 1)
}

func TestPanelShowsStagedColumns(t *testing.T) {
	p := NewPanel(12, 4, 0)
	col := make([]bool, 12)
	col[0] = true

	if err := p.SetColumn(2, col); err != nil {
		t.Fatal(err)
	}
	if p.Lit(0, 2) {
		t.Error("staged column should not be visible before Show")
	}
	if err := p.Show(); err != nil {
		t.Fatal(err)
	}
	if !p.Lit(0, 2) {
		t.Error("column should be visible after Show")
	}
	if p.Shows() != 1 {
		t.Errorf("expected 1 show, got %d", p.Shows())
	}
}

func TestPanelErrors(t *testing.T) {
	p := NewPanel(12, 4, 0)

	if err := p.SetColumn(4, make([]bool, 12)); !errors.Is(err, ErrColumnRange) {
		t.Errorf("expected ErrColumnRange, got %v", err)
	}
	if err := p.SetColumn(0, make([]bool, 3)); !errors.Is(err, ErrDimensions) {
		t.Errorf("expected ErrDimensions, got %v", err)
	}

	p.FailNext(1)
	if err := p.Show(); !errors.Is(err, ErrPanelFault) {
		t.Errorf("expected ErrPanelFault, got %v", err)
	}
	if err := p.Show(); err != nil {
		t.Errorf("fault should clear: %v", err)
	}

	p.Close()
	if err := p.Show(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestPanelLatency(t *testing.T) {
	p := NewPanel(12, 1, 20*time.Millisecond)
	start := time.Now()
	if err := p.Show(); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Show should honour latency")
	}
}

func TestSinkRender(t *testing.T) {
	l := card.Layout{Rows: 12, Cols: 3}
	p := NewPanel(12, 3, 0)
	s := NewSink("panel", p)

	f := frameOf(t, "A1", l)
	if err := s.Render(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 12; r++ {
		for c := 0; c < 3; c++ {
			if p.Lit(r, c) != f.Punched(r, c) {
				t.Fatalf("cell (%d,%d) mismatch", r, c)
			}
		}
	}
	if s.Name() != "panel" {
		t.Errorf("unexpected name %s", s.Name())
	}
}

func TestSinkRenderColumnsTouchesOnlyGivenColumns(t *testing.T) {
	l := card.Layout{Rows: 12, Cols: 2}
	p := NewPanel(12, 2, 0)
	s := NewSink("panel", p)

	f := frameOf(t, "AA", l)
	if err := s.RenderColumns(context.Background(), f, []int{1}); err != nil {
		t.Fatal(err)
	}
	if p.Lit(0, 0) {
		t.Error("column 0 should be untouched")
	}
	if !p.Lit(0, 1) {
		t.Error("column 1 should show A's zone punch")
	}
}

func TestSinkDimensionMismatch(t *testing.T) {
	s := NewSink("panel", NewPanel(12, 10, 0))
	f := frameOf(t, "HI", card.Layout{Rows: 12, Cols: 80})

	if err := s.Render(context.Background(), f); !errors.Is(err, ErrDimensions) {
		t.Errorf("expected ErrDimensions, got %v", err)
	}
}

func TestSinkCancelled(t *testing.T) {
	l := card.Layout{Rows: 12, Cols: 4}
	p := NewPanel(12, 4, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewSink("panel", p).Render(ctx, frameOf(t, "HI", l)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if p.Shows() != 0 {
		t.Error("cancelled render should not show")
	}
}

func TestShiftRegisterClocksEveryBit(t *testing.T) {
	data, clock, latch := newProbe("DATA"), newProbe("CLK"), newProbe("LATCH")
	sr, err := NewShiftRegister(data, clock, latch, 12, 2, false)
	if err != nil {
		t.Fatal(err)
	}

	col := make([]bool, 12)
	col[0] = true
	if err := sr.SetColumn(0, col); err != nil {
		t.Fatal(err)
	}
	if err := sr.Show(); err != nil {
		t.Fatal(err)
	}

	if got := clock.rises(); got != 24 {
		t.Errorf("expected 24 clock pulses, got %d", got)
	}
	if got := latch.rises(); got != 1 {
		t.Errorf("expected 1 latch pulse, got %d", got)
	}

	// First level is the init Low; bits follow, the row-12 bit of column 0 last.
	bits := data.levels[1:]
	if len(bits) != 24 {
		t.Fatalf("expected 24 data writes, got %d", len(bits))
	}
	for i, l := range bits {
		want := gpio.Low
		if i == 23 {
			want = gpio.High
		}
		if l != want {
			t.Errorf("bit %d: got %v, want %v", i, l, want)
		}
	}
}

func TestShiftRegisterInvert(t *testing.T) {
	data := newProbe("DATA")
	sr, err := NewShiftRegister(data, newProbe("CLK"), newProbe("LATCH"), 12, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := sr.Show(); err != nil {
		t.Fatal(err)
	}
	for i, l := range data.levels[1:] {
		if l != gpio.High {
			t.Fatalf("bit %d: inverted dark LED should drive High", i)
		}
	}
}

func TestShiftRegisterClose(t *testing.T) {
	sr, err := NewShiftRegister(newProbe("DATA"), newProbe("CLK"), newProbe("LATCH"), 12, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := sr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sr.Show(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := sr.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
}

func TestPinError(t *testing.T) {
	err := error(&PinError{Role: "data", Name: "GPIO99", Err: ErrPinUnavailable})
	if !errors.Is(err, ErrPinUnavailable) {
		t.Error("PinError should unwrap to ErrPinUnavailable")
	}
}
