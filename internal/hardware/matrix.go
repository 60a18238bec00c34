// Package hardware drives the physical punch-card LED matrix.
package hardware

import (
	"errors"
	"fmt"
)

var (
	ErrPinUnavailable = errors.New("hardware: gpio pin unavailable")
	ErrDimensions     = errors.New("hardware: frame does not fit matrix")
	ErrColumnRange    = errors.New("hardware: column out of range")
	ErrPanelFault     = errors.New("hardware: panel fault")
	ErrClosed         = errors.New("hardware: matrix closed")
)

// PinError names the pin that could not be opened.
type PinError struct {
	Role string
	Name string
	Err  error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("hardware: %s pin %q: %v", e.Role, e.Name, e.Err)
}

func (e *PinError) Unwrap() error { return e.Err }

// Matrix is a column-addressable LED grid. SetColumn stages a column;
// Show makes every staged column visible at once.
type Matrix interface {
	Dims() (rows, cols int)
	SetColumn(c int, lit []bool) error
	Show() error
	Close() error
}

func checkColumn(m Matrix, c int, lit []bool) error {
	rows, cols := m.Dims()
	if c < 0 || c >= cols {
		return fmt.Errorf("%w: %d of %d", ErrColumnRange, c, cols)
	}
	if len(lit) != rows {
		return fmt.Errorf("%w: column has %d rows, matrix %d", ErrDimensions, len(lit), rows)
	}
	return nil
}
