// Package card holds the immutable punch-card grid.
package card

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/punchcard/internal/codec"
)

// ErrLayout indicates unusable grid dimensions.
var ErrLayout = errors.New("card: invalid layout")

// Layout is the fixed card geometry.
type Layout struct {
	Rows int
	Cols int
}

// DefaultLayout is the standard 80-column card.
var DefaultLayout = Layout{Rows: codec.Rows, Cols: 80}

// Validate requires room for every code row and at least one column.
func (l Layout) Validate() error {
	if l.Rows < codec.Rows {
		return fmt.Errorf("%w: %d rows, need at least %d", ErrLayout, l.Rows, codec.Rows)
	}
	if l.Cols < 1 {
		return fmt.Errorf("%w: %d columns", ErrLayout, l.Cols)
	}
	return nil
}

// Cells returns Rows*Cols.
func (l Layout) Cells() int { return l.Rows * l.Cols }

// Grid is a rows x cols matrix of punched cells. A Grid never changes after
// construction; a new card state is always a new Grid.
type Grid struct {
	layout Layout
	cells  []bool
	text   string
	gen    uint64
}

// Blank returns an all-unpunched grid at generation 0.
func Blank(l Layout) *Grid {
	return &Grid{layout: l, cells: make([]bool, l.Cells())}
}

// FromText encodes text into a full-width grid. Columns past the text are
// unpunched.
func FromText(text string, l Layout, gen uint64) (*Grid, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	patterns, err := codec.Encode(text, l.Cols)
	if err != nil {
		return nil, err
	}
	g := &Grid{layout: l, cells: make([]bool, l.Cells()), text: text, gen: gen}
	for c, p := range patterns {
		for _, r := range p.Rows() {
			g.cells[r*l.Cols+c] = true
		}
	}
	return g, nil
}

// Build constructs a grid cell by cell.
func Build(l Layout, text string, gen uint64, punched func(r, c int) bool) *Grid {
	g := &Grid{layout: l, cells: make([]bool, l.Cells()), text: text, gen: gen}
	for r := 0; r < l.Rows; r++ {
		for c := 0; c < l.Cols; c++ {
			g.cells[r*l.Cols+c] = punched(r, c)
		}
	}
	return g
}

// WithGeneration returns a copy of g stamped with gen.
func (g *Grid) WithGeneration(gen uint64) *Grid {
	cp := *g
	cp.gen = gen
	return &cp
}

func (g *Grid) Layout() Layout     { return g.layout }
func (g *Grid) Rows() int          { return g.layout.Rows }
func (g *Grid) Cols() int          { return g.layout.Cols }
func (g *Grid) Text() string       { return g.text }
func (g *Grid) Generation() uint64 { return g.gen }

// Punched reports the cell at (r, c); out of range cells are unpunched.
func (g *Grid) Punched(r, c int) bool {
	if r < 0 || r >= g.layout.Rows || c < 0 || c >= g.layout.Cols {
		return false
	}
	return g.cells[r*g.layout.Cols+c]
}

// Column returns a copy of column c, top to bottom.
func (g *Grid) Column(c int) []bool {
	out := make([]bool, g.layout.Rows)
	for r := range out {
		out[r] = g.Punched(r, c)
	}
	return out
}

// ColumnPattern returns the code rows of column c as a pattern.
func (g *Grid) ColumnPattern(c int) codec.Pattern {
	var p codec.Pattern
	for r := 0; r < codec.Rows; r++ {
		if g.Punched(r, c) {
			p |= 1 << uint(r)
		}
	}
	return p
}

// PunchCount returns the number of punched cells.
func (g *Grid) PunchCount() int {
	n := 0
	for _, v := range g.cells {
		if v {
			n++
		}
	}
	return n
}

// Equals compares dimensions and cells; text and generation are ignored.
func (g *Grid) Equals(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.layout != other.layout {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Diff returns the sorted indices of columns that differ from other. A nil
// or differently sized other differs in every column.
func (g *Grid) Diff(other *Grid) []int {
	if other == nil || other.layout != g.layout {
		all := make([]int, g.layout.Cols)
		for c := range all {
			all[c] = c
		}
		return all
	}
	var changed []int
	for c := 0; c < g.layout.Cols; c++ {
		for r := 0; r < g.layout.Rows; r++ {
			i := r*g.layout.Cols + c
			if g.cells[i] != other.cells[i] {
				changed = append(changed, c)
				break
			}
		}
	}
	return changed
}

// Decode reads the card back as text with trailing blanks trimmed.
func (g *Grid) Decode() string {
	patterns := make([]codec.Pattern, g.layout.Cols)
	for c := range patterns {
		patterns[c] = g.ColumnPattern(c)
	}
	return strings.TrimRight(codec.Decode(patterns), " ")
}

// String renders the card as text, one line per row.
func (g *Grid) String() string {
	var sb strings.Builder
	for r := 0; r < g.layout.Rows; r++ {
		for c := 0; c < g.layout.Cols; c++ {
			if g.Punched(r, c) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
