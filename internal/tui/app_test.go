package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/card"
	"github.com/san-kum/punchcard/internal/codec"
	"github.com/san-kum/punchcard/internal/pipeline"
	"github.com/san-kum/punchcard/internal/render"
)

type fakeController struct {
	texts  []string
	params []animate.Params
	err    error
	status pipeline.Status
}

func (f *fakeController) SubmitWith(_ context.Context, text string, p animate.Params) (pipeline.Receipt, error) {
	if f.err != nil {
		return pipeline.Receipt{}, f.err
	}
	f.texts = append(f.texts, text)
	f.params = append(f.params, p)
	return pipeline.Receipt{ID: uint64(len(f.texts)), Text: text}, nil
}

func (f *fakeController) Resolve(p animate.Params) animate.Params {
	if p.Kind != animate.Instant && p.Duration == 0 {
		p.Duration = fakeDefault
	}
	return p
}

func (f *fakeController) Status() pipeline.Status { return f.status }

const fakeDefault = 321 * time.Millisecond

func newModel(ctl *fakeController) (Model, *render.Latest) {
	sink := render.NewLatest("tui")
	return New(context.Background(), ctl, sink, animate.Params{Kind: animate.Slide}, ThemeManila), sink
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func TestEnterSubmitsThroughCommand(t *testing.T) {
	ctl := &fakeController{}
	m, _ := newModel(ctl)
	m = typeText(m, "HI")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("enter should return a submit command")
	}
	if len(ctl.texts) != 0 {
		t.Fatal("submit must not run inside Update")
	}
	if m.input.Value() != "" {
		t.Error("input should be cleared")
	}

	msg := cmd()
	if len(ctl.texts) != 1 || ctl.texts[0] != "HI" {
		t.Fatalf("expected HI submitted, got %v", ctl.texts)
	}
	next, _ = m.Update(msg)
	m = next.(Model)
	if !strings.Contains(m.View(), `showing "HI"`) {
		t.Error("view should confirm the submission")
	}
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	m, _ := newModel(&fakeController{})
	m = typeText(m, "   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank input should not submit")
	}
}

func TestSubmitErrorShown(t *testing.T) {
	err := &codec.UnsupportedCharacterError{Char: '~', Position: 0}
	m, _ := newModel(&fakeController{err: err})
	m = typeText(m, "~")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(cmd())
	m = next.(Model)
	if !m.failed {
		t.Error("model should flag the failure")
	}
	if !strings.Contains(m.View(), err.Error()) {
		t.Error("view should show the error")
	}
}

func TestTabCyclesAnimation(t *testing.T) {
	ctl := &fakeController{}
	m, _ := newModel(ctl)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.params.Kind != animate.Fade {
		t.Errorf("expected fade after slide, got %s", m.params.Kind)
	}

	m = typeText(m, "A")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	if ctl.params[0].Kind != animate.Fade {
		t.Errorf("submission should carry fade, got %s", ctl.params[0].Kind)
	}
	if ctl.params[0].Duration != fakeDefault {
		t.Errorf("submission should carry the resolved fade duration, got %v", ctl.params[0].Duration)
	}

	if nextKind(animate.Typewriter) != animate.Instant {
		t.Error("cycle should wrap to instant")
	}
}

func TestTickPullsLatestFrame(t *testing.T) {
	ctl := &fakeController{status: pipeline.Status{State: "running", Progress: 0.5, Generation: 2}}
	m, sink := newModel(ctl)

	if !strings.Contains(m.View(), "waiting for first frame") {
		t.Error("empty view expected before frames")
	}

	l := card.Layout{Rows: 12, Cols: 4}
	g, _ := card.FromText("HI", l, 2)
	_ = sink.Render(context.Background(), animate.Compose(card.Blank(l), g, animate.Instant, 1))

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("tick should reschedule")
	}
	next, _ = m.Update(statusMsg(ctl.Status()))
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "█") {
		t.Error("view should draw holes")
	}
	if !strings.Contains(view, "50%") {
		t.Error("view should show progress")
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newModel(&fakeController{})
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		if cmd == nil {
			t.Fatalf("%v should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v should produce QuitMsg", k)
		}
	}
}
