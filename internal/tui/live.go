package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/export"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer is a plain-terminal sink for one-shot commands. It redraws
// at most frameRate times a second but always draws final frames.
type LiveRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	frameRate int
	lastFrame time.Time
	drawn     int
}

func NewLiveRenderer(out io.Writer, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{out: out, frameRate: frameRate}
}

func (r *LiveRenderer) Name() string { return "terminal" }

func (r *LiveRenderer) Render(_ context.Context, f animate.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !f.Final && time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return nil
	}
	r.lastFrame = time.Now()
	r.drawn++

	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  %3.0f%%  frame %d\n", f.Kind, f.Progress*100, f.Seq))
	b.WriteString(export.FrameToASCII(f))
	_, err := io.WriteString(r.out, b.String())
	return err
}

// Drawn counts frames actually written.
func (r *LiveRenderer) Drawn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawn
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
