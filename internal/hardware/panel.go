package hardware

import (
	"sync"
	"time"
)

// Panel is an in-memory matrix. It stands in for real hardware on hosts
// without GPIO and in tests, with optional write latency and injected
// faults.
type Panel struct {
	mu      sync.Mutex
	rows    int
	cols    int
	latency time.Duration
	staged  []bool
	shown   []bool
	shows   int
	fail    int
	closed  bool
}

func NewPanel(rows, cols int, latency time.Duration) *Panel {
	return &Panel{
		rows:    rows,
		cols:    cols,
		latency: latency,
		staged:  make([]bool, rows*cols),
		shown:   make([]bool, rows*cols),
	}
}

func (p *Panel) Dims() (int, int) { return p.rows, p.cols }

func (p *Panel) SetColumn(c int, lit []bool) error {
	if err := checkColumn(p, c, lit); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	for r, on := range lit {
		p.staged[r*p.cols+c] = on
	}
	return nil
}

func (p *Panel) Show() error {
	if p.latency > 0 {
		time.Sleep(p.latency)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.fail > 0 {
		p.fail--
		return ErrPanelFault
	}
	copy(p.shown, p.staged)
	p.shows++
	return nil
}

func (p *Panel) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// FailNext makes the next n calls to Show fail.
func (p *Panel) FailNext(n int) {
	p.mu.Lock()
	p.fail = n
	p.mu.Unlock()
}

// Lit reports whether the LED at (r, c) is visibly on.
func (p *Panel) Lit(r, c int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown[r*p.cols+c]
}

// Shows counts successful Show calls.
func (p *Panel) Shows() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shows
}

// String renders the visible state, '#' for lit.
func (p *Panel) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := make([]byte, 0, (p.cols+1)*p.rows)
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			if p.shown[r*p.cols+c] {
				b = append(b, '#')
			} else {
				b = append(b, '.')
			}
		}
		b = append(b, '\n')
	}
	return string(b)
}
