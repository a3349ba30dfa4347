package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/experiment"
	"github.com/san-kum/cartpole/internal/physics"
	"github.com/san-kum/cartpole/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const frameInterval = 16 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// history is the renderer-side observer: it keeps recent angles and forces
// for the sparklines.
type history struct {
	theta []float64
	force []float64
	limit int
}

func (h *history) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	h.theta = append(h.theta, x[dynamo.PoleAngle])
	h.force = append(h.force, u.Scalar())
	if len(h.theta) > h.limit {
		h.theta = h.theta[1:]
		h.force = h.force[1:]
	}
}

type model struct {
	loop    *sim.Loop
	x0      dynamo.State
	keys    *keyboard
	hist    *history
	title   string
	hanging bool

	stepsPerFrame int
	paused        bool
	last          sim.Step
	err           error

	width  int
	height int
}

func newModel(exp *experiment.Experiment, loop *sim.Loop) model {
	hist := &history{limit: 240}
	loop.AddObserver(hist)

	steps := int(math.Round(frameInterval.Seconds() / loop.Dt()))
	cfg := exp.Config()
	return model{
		loop:          loop,
		x0:            loop.State(),
		keys:          &keyboard{},
		hist:          hist,
		title:         fmt.Sprintf("%s · %s", exp.Mode, cfg.Control),
		hanging:       exp.Constants.Downwards == physics.Hanging,
		stepsPerFrame: max(1, steps),
		last:          sim.Step{State: loop.State()},
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *model) advance() {
	res, err := m.loop.Run(context.Background(), m.stepsPerFrame, m.keys)
	if res != nil && len(res.States) > 1 {
		n := len(res.States) - 1
		m.last = sim.Step{Frame: m.loop.Frame(), Time: m.loop.Time(), State: res.States[n], Force: res.Forces[n-1]}
	}
	m.err = err
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "down":
		m.keys.toggle()
	case "left":
		m.keys.push(-1)
	case "right":
		m.keys.push(1)
	case " ", "p":
		m.paused = !m.paused
	case "[":
		m.moveTarget(-1)
	case "]":
		m.moveTarget(1)
	case "r":
		if err := m.loop.Reset(m.x0); err == nil {
			m.hist.theta, m.hist.force = nil, nil
			m.last = sim.Step{State: m.loop.State()}
			m.err = nil
		}
	}
	return m, nil
}

func (m *model) moveTarget(dx float64) {
	t := m.loop.Feedback().Target.Clone()
	if len(t) == 0 {
		t = dynamo.State{0, 0, 0, 0}
	}
	t[dynamo.CartPos] += dx
	m.loop.SetTarget(t)
}

func (m model) target() float64 {
	if t := m.loop.Feedback().Target; len(t) > 0 {
		return t[dynamo.CartPos]
	}
	return 0
}

func (m model) View() string {
	cw := max(50, m.width-6)
	ch := max(12, m.height-12)
	x := m.last.State

	c := newCanvas(cw, ch)
	c.drawCartPole(scene{
		pos:     x[dynamo.CartPos],
		theta:   x[dynamo.PoleAngle],
		target:  m.target(),
		hanging: m.hanging,
		scale:   4,
		origin:  10*math.Floor(x[dynamo.CartPos]/10) + 5,
	})

	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("automatic")
	if m.keys.manual {
		statusIcon = yellow.Render("●")
		statusText = yellow.Render("manual")
	}
	if m.paused {
		statusIcon = dim.Render("○")
		statusText = dim.Render("paused")
	}
	if m.err != nil {
		statusIcon = red.Render("✕")
		statusText = red.Render(m.err.Error())
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n\n",
		statusIcon, cyan.Render(m.title), statusText,
		dim.Render(fmt.Sprintf("t=%.2fs frame=%d", m.last.Time, m.last.Frame))))

	b.WriteString(c.String())

	labels := []string{"x", "ẋ", "θ", "θ̇"}
	b.WriteString("\n   ")
	for i, label := range labels {
		b.WriteString(dim.Render(label + "="))
		b.WriteString(white.Render(fmt.Sprintf("%+.3f", x[i])))
		b.WriteString("  ")
	}
	b.WriteString(dim.Render("target=") + white.Render(fmt.Sprintf("%+.1f", m.target())))
	b.WriteString(dim.Render("  force=") + white.Render(fmt.Sprintf("%+.2f", m.last.Force)))
	b.WriteString("\n")

	if len(m.hist.theta) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("θ"), cyan.Render(sparkline(m.hist.theta, 40))))
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("f"), dimmer.Render(sparkline(m.hist.force, 40))))
	}

	b.WriteString("\n" + dim.Render("   ↑/↓ auto/manual  ←/→ push  [ ] target  space pause  r reset  q quit") + "\n")
	return b.String()
}

// Run opens the live view on a fresh loop built from exp.
func Run(exp *experiment.Experiment) error {
	loop, err := exp.Loop()
	if err != nil {
		return err
	}
	p := tea.NewProgram(newModel(exp, loop), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
