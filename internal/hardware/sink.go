package hardware

import (
	"context"
	"fmt"

	"github.com/san-kum/punchcard/internal/animate"
)

// Sink adapts a Matrix to the renderer. Fade frames are thresholded by the
// frame's grid since LEDs are either on or off.
type Sink struct {
	name string
	m    Matrix
}

func NewSink(name string, m Matrix) *Sink {
	return &Sink{name: name, m: m}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Render(ctx context.Context, f animate.Frame) error {
	cols := make([]int, f.Grid().Cols())
	for i := range cols {
		cols[i] = i
	}
	return s.RenderColumns(ctx, f, cols)
}

// RenderColumns stages only cols, then shows the result.
func (s *Sink) RenderColumns(ctx context.Context, f animate.Frame, cols []int) error {
	g := f.Grid()
	rows, width := s.m.Dims()
	if g.Rows() != rows || g.Cols() != width {
		return fmt.Errorf("%w: frame %dx%d, matrix %dx%d", ErrDimensions, g.Rows(), g.Cols(), rows, width)
	}
	for _, c := range cols {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.m.SetColumn(c, g.Column(c)); err != nil {
			return err
		}
	}
	return s.m.Show()
}

func (s *Sink) Close() error { return s.m.Close() }
