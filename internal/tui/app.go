// Package tui is the terminal front end: a live card view fed by the
// renderer and an input line that submits to the pipeline.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/export"
	"github.com/san-kum/punchcard/internal/pipeline"
	"github.com/san-kum/punchcard/internal/render"
)

const refresh = 16 * time.Millisecond

// Controller is the part of the pipeline the view drives. It is only ever
// called from commands, never from Update or View.
type Controller interface {
	SubmitWith(ctx context.Context, text string, params animate.Params) (pipeline.Receipt, error)
	Resolve(params animate.Params) animate.Params
	Status() pipeline.Status
}

type tickMsg time.Time

type statusMsg pipeline.Status

type submittedMsg struct {
	text    string
	receipt pipeline.Receipt
	err     error
}

type Model struct {
	ctx    context.Context
	ctl    Controller
	sink   *render.Latest
	params animate.Params
	input  textinput.Model
	styles styles

	frame    animate.Frame
	hasFrame bool
	status   pipeline.Status
	notice   string
	failed   bool
	sent     []string
	width    int
}

func New(ctx context.Context, ctl Controller, sink *render.Latest, params animate.Params, theme Theme) Model {
	in := textinput.New()
	in.Placeholder = "type a message and press enter"
	in.Prompt = "› "
	in.CharLimit = 256
	in.Width = 60
	in.Focus()
	return Model{
		ctx:    ctx,
		ctl:    ctl,
		sink:   sink,
		params: params,
		input:  in,
		styles: newStyles(theme),
		width:  100,
	}
}

// Run blocks until the user quits or ctx ends.
func Run(ctx context.Context, ctl Controller, sink *render.Latest, params animate.Params, theme Theme) error {
	p := tea.NewProgram(New(ctx, ctl, sink, params, theme), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.submit(text)
		case "tab":
			// Cleared here; the kind's default is filled in on submit.
			m.params.Kind = nextKind(m.params.Kind)
			m.params.Duration = 0
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if f, ok := m.sink.Frame(); ok {
			m.frame, m.hasFrame = f, true
		}
		return m, tea.Batch(tick(), m.poll())
	case statusMsg:
		m.status = pipeline.Status(msg)
		return m, nil
	case submittedMsg:
		if msg.err != nil {
			m.notice, m.failed = msg.err.Error(), true
			return m, nil
		}
		m.failed = false
		if msg.receipt.Queued {
			m.notice = fmt.Sprintf("queued %q at %d", msg.receipt.Text, msg.receipt.Position)
		} else {
			m.notice = fmt.Sprintf("showing %q", msg.receipt.Text)
		}
		m.sent = append(m.sent, msg.receipt.Text)
		if len(m.sent) > 5 {
			m.sent = m.sent[1:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) tea.Cmd {
	ctl, ctx, params := m.ctl, m.ctx, m.params
	return func() tea.Msg {
		r, err := ctl.SubmitWith(ctx, text, ctl.Resolve(params))
		return submittedMsg{text: text, receipt: r, err: err}
	}
}

func (m Model) poll() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg { return statusMsg(ctl.Status()) }
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

func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("PUNCHCARD"))
	b.WriteString(s.muted.Render(fmt.Sprintf("  animation %s  ", m.params.Kind)))
	b.WriteString("\n\n")
	b.WriteString(s.card.Render(m.cardView()))
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.sinkView())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.notice != "" {
		if m.failed {
			b.WriteString(s.err.Render(m.notice))
		} else {
			b.WriteString(s.ok.Render(m.notice))
		}
		b.WriteString("\n")
	}
	if len(m.sent) > 0 {
		b.WriteString(s.muted.Render("recent: " + strings.Join(m.sent, " · ")))
		b.WriteString("\n")
	}
	b.WriteString(s.hint.Render("enter submit · tab animation · esc quit"))
	return b.String()
}

func (m Model) cardView() string {
	s := m.styles
	if !m.hasFrame {
		return s.muted.Render("waiting for first frame")
	}
	g := m.frame.Grid()
	var b strings.Builder
	printed := []rune(g.Text())
	b.WriteString("    ")
	for c := 0; c < g.Cols(); c++ {
		if c < len(printed) {
			b.WriteRune(printed[c])
		} else {
			b.WriteByte(' ')
		}
	}
	for r := 0; r < g.Rows(); r++ {
		b.WriteByte('\n')
		b.WriteString(s.label.Render(export.RowLabel(r)))
		row := make([]rune, g.Cols())
		for c := range row {
			row[c] = export.Shade(m.frame.Intensity(r, c))
		}
		b.WriteString(s.holes.Render(string(row)))
	}
	return b.String()
}

func (m Model) statusView() string {
	s := m.styles
	st := m.status
	state := st.State
	switch state {
	case "running":
		state = s.warn.Render(state)
	case "":
		state = s.muted.Render("idle")
	default:
		state = s.ok.Render(state)
	}
	line := fmt.Sprintf("%s %s %s  gen %s",
		state, progressBar(st.Progress, 20, s), s.value.Render(fmt.Sprintf("%3.0f%%", st.Progress*100)),
		s.value.Render(fmt.Sprint(st.Generation)))
	if st.Queued > 0 {
		line += s.muted.Render(fmt.Sprintf("  queued %d", st.Queued))
	}
	return line
}

func (m Model) sinkView() string {
	s := m.styles
	var parts []string
	for _, st := range m.status.Sinks {
		p := fmt.Sprintf("%s %s %d", s.label.Render(st.Sink), s.muted.Render("ok"), st.Delivered)
		if st.Coalesced > 0 {
			p += fmt.Sprintf(" %s %d", s.muted.Render("merged"), st.Coalesced)
		}
		if st.Failed > 0 {
			p += " " + s.err.Render(fmt.Sprintf("failed %d", st.Failed))
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return s.muted.Render("no sinks")
	}
	return strings.Join(parts, s.border.Render("  │  "))
}
