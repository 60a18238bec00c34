// Package gui shows the card in a native raylib window.
package gui

import (
	"context"
	"fmt"
	"os"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/pipeline"
	"github.com/san-kum/punchcard/internal/render"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColStock   = rl.NewColor(243, 226, 179, 255)
	ColHole    = rl.NewColor(26, 26, 26, 255)
	ColPrint   = rl.NewColor(90, 70, 40, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColError   = rl.NewColor(255, 68, 68, 255)
)

const (
	winW = 1280
	winH = 720

	fontPath = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"
)

// Controller is what the window drives.
type Controller interface {
	SubmitWith(ctx context.Context, text string, params animate.Params) (pipeline.Receipt, error)
	Resolve(params animate.Params) animate.Params
	Status() pipeline.Status
}

type App struct {
	ctx    context.Context
	ctl    Controller
	sink   *render.Latest
	params animate.Params
	Font   rl.Font

	input  []rune
	notice string
	failed bool
	status pipeline.Status
	frames int
}

func initWindow() {
	rl.InitWindow(winW, winH, "punchcard")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

func loadFont() rl.Font {
	if _, err := os.Stat(fontPath); err != nil {
		return rl.GetFontDefault()
	}
	font := rl.LoadFontEx(fontPath, 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

// Run opens the window and blocks until it is closed or ctx ends. It must
// be called from the main goroutine.
func Run(ctx context.Context, ctl Controller, sink *render.Latest, params animate.Params) {
	initWindow()
	defer rl.CloseWindow()
	app := &App{ctx: ctx, ctl: ctl, sink: sink, params: params, Font: loadFont()}
	for !rl.WindowShouldClose() && !rl.IsKeyPressed(rl.KeyEscape) && ctx.Err() == nil {
		app.Update()
		app.Draw()
	}
}

func (a *App) Update() {
	for ch := rl.GetCharPressed(); ch > 0; ch = rl.GetCharPressed() {
		if len(a.input) < 256 {
			a.input = append(a.input, ch)
		}
	}
	switch {
	case rl.IsKeyPressed(rl.KeyBackspace) && len(a.input) > 0:
		a.input = a.input[:len(a.input)-1]
	case rl.IsKeyPressed(rl.KeyTab):
		a.params.Kind = nextKind(a.params.Kind)
		a.params.Duration = 0
	case rl.IsKeyPressed(rl.KeyEnter):
		a.submit()
	}

	// Status takes the pipeline lock; a few times a second is plenty.
	if a.frames%6 == 0 {
		a.status = a.ctl.Status()
	}
	a.frames++
}

func (a *App) submit() {
	text := string(a.input)
	if strings.TrimSpace(text) == "" {
		return
	}
	a.input = a.input[:0]
	r, err := a.ctl.SubmitWith(a.ctx, text, a.ctl.Resolve(a.params))
	if err != nil {
		a.notice, a.failed = err.Error(), true
		return
	}
	a.failed = false
	if r.Queued {
		a.notice = fmt.Sprintf("queued %q at %d", r.Text, r.Position)
	} else {
		a.notice = fmt.Sprintf("showing %q", r.Text)
	}
}

func nextKind(k animate.Kind) animate.Kind {
	kinds := animate.Kinds()
	for i, kk := range kinds {
		if kk == k {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return kinds[0]
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if f, ok := a.sink.Frame(); ok {
		a.drawCard(f)
	} else {
		a.drawText("waiting for first frame", 50, 200, 20, ColTextDim)
	}
	a.drawHUD()

	rl.EndDrawing()
}

func (a *App) drawCard(f animate.Frame) {
	g := f.Grid()
	cell := float32(winW-100) / float32(g.Cols())
	rowH := cell * 2.2
	x0, y0 := float32(50), float32(120)
	w := cell * float32(g.Cols())
	h := rowH*float32(g.Rows()) + cell*2

	rl.DrawRectangleRounded(rl.NewRectangle(x0-10, y0-10, w+20, h+20), 0.03, 8, ColStock)
	a.drawText(g.Text(), int(x0), int(y0), int(cell*1.2), ColPrint)

	holeW, holeH := cell*0.55, rowH*0.6
	top := y0 + cell*2
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			v := f.Intensity(r, c)
			if v <= 0 {
				continue
			}
			x := x0 + float32(c)*cell + (cell-holeW)/2
			y := top + float32(r)*rowH + (rowH-holeH)/2
			rl.DrawRectangleV(rl.NewVector2(x, y), rl.NewVector2(holeW, holeH), rl.ColorAlpha(ColHole, float32(v)))
		}
	}
}

func (a *App) drawHUD() {
	a.drawText("punchcard", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s", a.params.Kind), 180, 34, 16, ColText)

	st := a.status
	a.drawText(fmt.Sprintf("%s %3.0f%%  gen %d  queued %d", st.State, st.Progress*100, st.Generation, st.Queued), 900, 30, 16, ColText)

	y := 520
	for _, s := range st.Sinks {
		line := fmt.Sprintf("%-8s delivered %d  coalesced %d  failed %d", s.Sink, s.Delivered, s.Coalesced, s.Failed)
		col := ColTextDim
		if s.Failed > 0 {
			col = ColError
		}
		a.drawText(line, 50, y, 14, col)
		y += 20
	}

	a.drawText("> "+string(a.input)+"_", 50, 600, 20, ColSelect)
	if a.notice != "" {
		col := ColText
		if a.failed {
			col = ColError
		}
		a.drawText(a.notice, 50, 630, 16, col)
	}

	a.drawText("[ENTER] SUBMIT  [TAB] ANIMATION  [ESC] QUIT", 850, 680, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, 680, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}
