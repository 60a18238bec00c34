package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pins names the three shift-register lines.
type Pins struct {
	Data  string
	Clock string
	Latch string
}

// ShiftRegister drives a chain of serial-in shift registers, one bit per
// LED. Bits are clocked out last column first, bottom row first, so the
// first bit shifted ends at the far end of the chain.
type ShiftRegister struct {
	mu     sync.Mutex
	data   gpio.PinOut
	clock  gpio.PinOut
	latch  gpio.PinOut
	rows   int
	cols   int
	invert bool
	staged []bool
	closed bool
}

// OpenShiftRegister initialises the host drivers and looks the pins up by
// name.
func OpenShiftRegister(pins Pins, rows, cols int, invert bool) (*ShiftRegister, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hardware: host init: %w", err)
	}
	lookup := func(role, name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, &PinError{Role: role, Name: name, Err: ErrPinUnavailable}
		}
		return p, nil
	}
	data, err := lookup("data", pins.Data)
	if err != nil {
		return nil, err
	}
	clock, err := lookup("clock", pins.Clock)
	if err != nil {
		return nil, err
	}
	latch, err := lookup("latch", pins.Latch)
	if err != nil {
		return nil, err
	}
	return NewShiftRegister(data, clock, latch, rows, cols, invert)
}

// NewShiftRegister drives already-open pins. All three are pulled low.
func NewShiftRegister(data, clock, latch gpio.PinOut, rows, cols int, invert bool) (*ShiftRegister, error) {
	for _, p := range []gpio.PinOut{data, clock, latch} {
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("hardware: init %s: %w", p, err)
		}
	}
	return &ShiftRegister{
		data:   data,
		clock:  clock,
		latch:  latch,
		rows:   rows,
		cols:   cols,
		invert: invert,
		staged: make([]bool, rows*cols),
	}, nil
}

func (s *ShiftRegister) Dims() (int, int) { return s.rows, s.cols }

func (s *ShiftRegister) SetColumn(c int, lit []bool) error {
	if err := checkColumn(s, c, lit); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	copy(s.staged[c*s.rows:(c+1)*s.rows], lit)
	return nil
}

// Show shifts the whole staged image out and latches it.
func (s *ShiftRegister) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for i := len(s.staged) - 1; i >= 0; i-- {
		if err := s.data.Out(s.level(s.staged[i])); err != nil {
			return fmt.Errorf("hardware: data: %w", err)
		}
		if err := pulse(s.clock); err != nil {
			return fmt.Errorf("hardware: clock: %w", err)
		}
	}
	if err := pulse(s.latch); err != nil {
		return fmt.Errorf("hardware: latch: %w", err)
	}
	return nil
}

// Close blanks the matrix and releases the pins.
func (s *ShiftRegister) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	for i := range s.staged {
		s.staged[i] = false
	}
	s.mu.Unlock()

	err := s.Show()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	for _, p := range []gpio.PinOut{s.data, s.clock, s.latch} {
		_ = p.Halt()
	}
	return err
}

func (s *ShiftRegister) level(on bool) gpio.Level {
	if on != s.invert {
		return gpio.High
	}
	return gpio.Low
}

func pulse(p gpio.PinOut) error {
	if err := p.Out(gpio.High); err != nil {
		return err
	}
	return p.Out(gpio.Low)
}
