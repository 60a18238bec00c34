// Package export renders cards for files and terminals.
package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
)

// SVGOptions controls card geometry, in pixels.
type SVGOptions struct {
	Cell      float64
	Margin    float64
	Printed   bool // print the text along the top edge
	Stock     string
	HoleColor string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Cell: 10, Margin: 20, Printed: true, Stock: "#f3e2b3", HoleColor: "#1a1a1a"}
}

// CardToSVG draws g as a card with rectangular holes.
func CardToSVG(g *card.Grid, opts SVGOptions) string {
	if g == nil {
		return ""
	}
	return draw(g.Rows(), g.Cols(), g.Text(), opts, func(r, c int) float64 {
		if g.Punched(r, c) {
			return 1
		}
		return 0
	})
}

// FrameToSVG draws a frame; fade intensities become hole opacity.
func FrameToSVG(f animate.Frame, opts SVGOptions) string {
	g := f.Grid()
	if g == nil {
		return ""
	}
	return draw(g.Rows(), g.Cols(), g.Text(), opts, f.Intensity)
}

func draw(rows, cols int, text string, opts SVGOptions, level func(r, c int) float64) string {
	if opts.Cell <= 0 {
		opts.Cell = DefaultSVGOptions().Cell
	}
	top := opts.Margin
	if opts.Printed {
		top += opts.Cell * 1.5
	}
	width := opts.Margin*2 + float64(cols)*opts.Cell
	height := top + opts.Margin + float64(rows)*opts.Cell*2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<path fill="%s" d="M%.1f,0 H%.0f V%.0f H0 V%.1f Z"/>
`, width, height, width, height, opts.Stock, opts.Margin, width, height, opts.Margin))

	if opts.Printed && text != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-family="monospace" font-size="%.1f" fill="#333">%s</text>
`, opts.Margin, opts.Margin+opts.Cell, opts.Cell, html.EscapeString(text)))
	}

	sb.WriteString(fmt.Sprintf(`<g fill="%s">
`, opts.HoleColor))
	hw, hh := opts.Cell*0.5, opts.Cell*1.2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := level(r, c)
			if v <= 0 {
				continue
			}
			x := opts.Margin + float64(c)*opts.Cell + (opts.Cell-hw)/2
			y := top + float64(r)*opts.Cell*2 + (opts.Cell*2-hh)/2
			if v >= 1 {
				sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>
`, x, y, hw, hh))
			} else {
				sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" opacity="%.2f"/>
`, x, y, hw, hh, v))
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
