package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/benjuntilla/rigidsim/internal/body"
	"github.com/benjuntilla/rigidsim/internal/dynamics"
	"github.com/benjuntilla/rigidsim/internal/solver"
)

const (
	canvasWidth     = 60
	canvasHeight    = 22
	trailCapacity   = 200
	historyCapacity = 400
)

var (
	canvasStyle   = lipgloss.NewStyle().Padding(1, 2)
	statsStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(40)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("84")).Bold(true)
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	warningsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type TickMsg time.Time

// Model animates a chain pendulum in the terminal: the chain on a Braille
// canvas on the left, live conservation diagnostics on the right.
type Model struct {
	chain *body.ChainPendulum
	field *dynamics.ConstrainedHamiltonianField
	opts  solver.Options

	z0 dynamics.State // canonical, for reset
	z  dynamics.State
	t  float64
	dt float64

	canvas        *Canvas
	trail         [][2]float64
	energy0       float64
	energyHistory []float64
	maxViolation  float64
	nfe           int
	running       bool
	err           error
}

// NewModel prepares a live view of the chain starting from an (x, v) state
// with a single batch element.
func NewModel(chain *body.ChainPendulum, z0 dynamics.State, opts solver.Options) (Model, error) {
	if z0.Batch != 1 {
		return Model{}, fmt.Errorf("viz: live view animates one system, got batch %d", z0.Batch)
	}
	field, err := chain.Field()
	if err != nil {
		return Model{}, err
	}
	zp := chain.VelocityToMomentum(z0)
	e, err := chain.Energy(zp)
	if err != nil {
		return Model{}, err
	}
	dt := opts.Dt
	if dt <= 0 {
		dt = 1.0 / 60
	}
	return Model{
		chain:         chain,
		field:         field,
		opts:          opts,
		z0:            zp.Clone(),
		z:             zp,
		dt:            dt,
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		trail:         make([][2]float64, 0, trailCapacity),
		energy0:       e[0],
		energyHistory: make([]float64, 0, historyCapacity),
		running:       true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.z = m.z0.Clone()
			m.t = 0
			m.trail = m.trail[:0]
			m.energyHistory = m.energyHistory[:0]
			m.maxViolation = 0
			m.nfe = 0
			m.err = nil
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	traj, err := solver.Integrate(m.field, m.z, []float64{m.t, m.t + m.dt}, m.opts)
	if err != nil {
		m.err = err
		return
	}
	m.z = traj.States[len(traj.States)-1]
	m.t += m.dt
	m.nfe += traj.NFE

	if v := m.chain.MaxConstraintViolation(m.z)[0]; v > m.maxViolation {
		m.maxViolation = v
	}

	row := m.z.Row(0)
	last := (m.chain.N() - 1) * 2
	m.trail = append(m.trail, [2]float64{row[last], row[last+1]})
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
	if e, err := m.chain.Energy(m.z); err == nil {
		m.energyHistory = append(m.energyHistory, e[0])
		if len(m.energyHistory) > historyCapacity {
			m.energyHistory = m.energyHistory[1:]
		}
	}
}

func (m *Model) drawChain() {
	m.canvas.Clear()

	// World extent: the chain can reach its total length in any direction
	// from the tether.
	reach := m.chain.Nodes()[0].Length
	for _, e := range m.chain.Edges() {
		reach += e.Length
	}
	if reach == 0 {
		reach = 1
	}
	pw, ph := 2*canvasWidth, 4*canvasHeight
	scale := math.Min(float64(pw), float64(ph)) / (2.2 * reach)

	cx, cy := pw/2, ph/2
	toPixel := func(x, y float64) (int, int) {
		return cx + int(x*scale), cy - int(y*scale)
	}

	row := m.z.Row(0)
	tether := m.chain.Nodes()[0].Tether
	px, py := toPixel(tether[0], tether[1])
	for k := 0; k < m.chain.N(); k++ {
		nx, ny := toPixel(row[k*2], row[k*2+1])
		m.canvas.Line(px, py, nx, ny)
		px, py = nx, ny
	}

	for _, pt := range m.trail {
		tx, ty := toPixel(pt[0], pt[1])
		m.canvas.Set(tx, ty)
	}
}

func (m Model) View() string {
	m.drawChain()

	status := runningStyle.Render("RUNNING")
	if !m.running {
		status = pausedStyle.Render("PAUSED")
	}

	var stats strings.Builder
	stats.WriteString(headerStyle.Render(fmt.Sprintf("%d-link chain  %s", m.chain.Links, status)))
	stats.WriteByte('\n')

	drift := 0.0
	if len(m.energyHistory) > 0 && m.energy0 != 0 {
		drift = math.Abs(m.energyHistory[len(m.energyHistory)-1]-m.energy0) / math.Abs(m.energy0)
	}
	rows := []struct {
		label string
		value string
	}{
		{"time", fmt.Sprintf("%.2f s", m.t)},
		{"energy", fmt.Sprintf("%.6f", m.energy0)},
		{"drift", fmt.Sprintf("%.2e", drift)},
		{"violation", fmt.Sprintf("%.2e", m.maxViolation)},
		{"evals", fmt.Sprintf("%d", m.nfe)},
		{"method", m.opts.Method},
	}
	for _, r := range rows {
		stats.WriteString(labelStyle.Render(r.label))
		stats.WriteString(valueStyle.Render(r.value))
		stats.WriteByte('\n')
	}

	if len(m.energyHistory) > 2 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("energy"))
		stats.WriteString(graphStyle.Render(chart))
	}
	if m.err != nil {
		stats.WriteByte('\n')
		stats.WriteString(warningsStyle.Render(m.err.Error()))
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(stats.String()),
	)
	return main + "\n" + helpStyle.Render("space pause   r reset   q quit")
}
