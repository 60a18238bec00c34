package export

import (
	"strings"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
)

// Shades maps intensity to a glyph, dark to full.
var Shades = []rune(" ░▒▓█")

// Shade picks the glyph for an intensity in [0,1].
func Shade(v float64) rune {
	if v <= 0 {
		return Shades[0]
	}
	if v >= 1 {
		return Shades[len(Shades)-1]
	}
	i := int(v*float64(len(Shades)-1) + 0.5)
	return Shades[i]
}

// CardToASCII prints the card face with row labels, '█' for holes.
func CardToASCII(g *card.Grid) string {
	return ascii(g.Rows(), g.Cols(), g.Text(), func(r, c int) float64 {
		if g.Punched(r, c) {
			return 1
		}
		return 0
	})
}

func FrameToASCII(f animate.Frame) string {
	g := f.Grid()
	return ascii(g.Rows(), g.Cols(), g.Text(), f.Intensity)
}

func ascii(rows, cols int, text string, level func(r, c int) float64) string {
	var sb strings.Builder
	sb.WriteString("    ")
	printed := []rune(text)
	for c := 0; c < cols; c++ {
		if c < len(printed) {
			sb.WriteRune(printed[c])
		} else {
			sb.WriteByte(' ')
		}
	}
	sb.WriteByte('\n')
	for r := 0; r < rows; r++ {
		sb.WriteString(RowLabel(r))
		for c := 0; c < cols; c++ {
			sb.WriteRune(Shade(level(r, c)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RowLabel is the right-aligned face label of row r followed by a space.
func RowLabel(r int) string {
	labels := [...]string{" 12 ", " 11 ", "  0 ", "  1 ", "  2 ", "  3 ", "  4 ", "  5 ", "  6 ", "  7 ", "  8 ", "  9 "}
	if r < len(labels) {
		return labels[r]
	}
	return "    "
}
