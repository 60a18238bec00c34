package animate

import (
	"math"

	"github.com/san-kum/punchcard/internal/card"
)

// Threshold is the intensity at which a continuous cell counts as punched.
const Threshold = 0.5

// Frame is one immutable snapshot of a session. Every frame carries a
// discrete grid; fade frames also carry per-cell intensity in [0, 1].
type Frame struct {
	Seq      uint64
	Session  uint64
	Kind     Kind
	Progress float64
	Final    bool

	grid      *card.Grid
	intensity []float64
}

// Grid returns the discrete view of the frame.
func (f Frame) Grid() *card.Grid { return f.grid }

// Layout returns the frame dimensions.
func (f Frame) Layout() card.Layout { return f.grid.Layout() }

// Continuous reports whether the frame carries intensities.
func (f Frame) Continuous() bool { return f.intensity != nil }

// Intensity returns the brightness of cell (r, c).
func (f Frame) Intensity(r, c int) float64 {
	if f.intensity == nil {
		if f.grid.Punched(r, c) {
			return 1
		}
		return 0
	}
	l := f.grid.Layout()
	if r < 0 || r >= l.Rows || c < 0 || c >= l.Cols {
		return 0
	}
	return f.intensity[r*l.Cols+c]
}

// Punched is the thresholded cell value, for sinks without dimming.
func (f Frame) Punched(r, c int) bool { return f.grid.Punched(r, c) }

// SlideOffset is the number of columns the target has moved in at p.
func SlideOffset(p float64, cols int) int {
	off := int(math.Floor(clamp01(p) * float64(cols)))
	if off > cols {
		off = cols
	}
	return off
}

// Revealed reports whether a typewriter shows column c at p.
func Revealed(p float64, c, cols int) bool {
	return clamp01(p)*float64(cols) >= float64(c+1)
}

// Compose computes the frame for source -> target at progress p. Source
// and target must share a layout. Seq and Session are left zero.
func Compose(source, target *card.Grid, kind Kind, p float64) Frame {
	p = clamp01(p)
	if p >= 1 || kind == Instant {
		return Frame{Kind: kind, Progress: 1, Final: true, grid: target}
	}

	l := target.Layout()
	f := Frame{Kind: kind, Progress: p}

	switch kind {
	case Slide:
		off := SlideOffset(p, l.Cols)
		f.grid = card.Build(l, source.Text(), source.Generation(), func(r, c int) bool {
			if c+off < l.Cols {
				return source.Punched(r, c+off)
			}
			return target.Punched(r, c-(l.Cols-off))
		})

	case Fade:
		f.intensity = make([]float64, l.Cells())
		for r := 0; r < l.Rows; r++ {
			for c := 0; c < l.Cols; c++ {
				f.intensity[r*l.Cols+c] = lerp(level(source.Punched(r, c)), level(target.Punched(r, c)), p)
			}
		}
		f.grid = card.Build(l, source.Text(), source.Generation(), func(r, c int) bool {
			return f.intensity[r*l.Cols+c] >= Threshold
		})

	case Typewriter:
		f.grid = card.Build(l, source.Text(), source.Generation(), func(r, c int) bool {
			return Revealed(p, c, l.Cols) && target.Punched(r, c)
		})

	default:
		f.grid = source
	}
	return f
}

func level(punched bool) float64 {
	if punched {
		return 1
	}
	return 0
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
