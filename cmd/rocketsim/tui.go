package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	timeScaleStep = 0.25
	throttleStep  = 0.025
	massStep      = 100.0 // kg
	dragStep      = 0.02
	maxEventLines = 6
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// hud is the terminal front-end. Key presses accumulate into a command which is
// applied on the next frame.
type hud struct {
	ctx    context.Context
	driver *driver

	input     rocket.Command
	snap      rocket.Snapshot
	events    []rocket.Event
	lastFrame time.Time
	fps       float64

	width  int
	height int
}

func newHUD(ctx context.Context, d *driver) *hud {
	return &hud{ctx: ctx, driver: d, snap: d.flight.Snapshot(), width: 80, height: 24}
}

func (m *hud) Init() tea.Cmd { return tick() }

func (m *hud) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		now := time.Time(msg)
		var wallDt float64
		if !m.lastFrame.IsZero() {
			wallDt = now.Sub(m.lastFrame).Seconds()
			if wallDt > 0 {
				m.fps = 1 / wallDt
			}
		}
		m.lastFrame = now
		if wallDt > 0 {
			m.snap = m.driver.tick(m.ctx, wallDt, m.input)
			m.input = rocket.Command{}
			m.events = append(m.events, m.snap.Events...)
			if len(m.events) > maxEventLines {
				m.events = m.events[len(m.events)-maxEventLines:]
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *hud) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var c rocket.Command
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		c.Pause = true
	case "r":
		c.Reset = true
		m.events = nil
	case "+", "=":
		c.TimeScaleDelta = timeScaleStep
	case "-", "_":
		c.TimeScaleDelta = -timeScaleStep
	case "d":
		c.ThrottleDelta = throttleStep
	case "a":
		c.ThrottleDelta = -throttleStep
	case "s":
		c.MassDelta = massStep
	case "w":
		c.MassDelta = -massStep
	case "x":
		c.DragDelta = dragStep
	case "z":
		c.DragDelta = -dragStep
	case "up":
		c.Pitch = 1
	case "down":
		c.Pitch = -1
	case "left":
		c.Yaw = 1
	case "right":
		c.Yaw = -1
	case "1":
		c.Roll = -1
	case "2":
		c.Roll = 1
	default:
		return m, nil
	}
	m.input = m.input.Merge(c)
	return m, nil
}

func bar(frac float64, width int, style lipgloss.Style) string {
	if math.IsNaN(frac) {
		frac = 0
	}
	frac = math.Max(0, math.Min(1, frac))
	filled := int(frac * float64(width))
	return style.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", width-filled))
}

func row(label, value string) string {
	return "   " + dim.Render(fmt.Sprintf("%-14s", label)) + white.Render(value) + "\n"
}

func (m *hud) View() string {
	t := m.snap.Telemetry
	st := m.snap.State
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.snap.Status == rocket.Paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	} else if m.driver.flight.Clock().Frozen() {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("frozen")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s  %s\n", statusIcon, cyan.Render("r o c k e t s i m"), statusText,
		dim.Render(fmt.Sprintf("T+%.1fs  x%.2f", m.snap.Time, m.snap.TimeScale)), dim.Render(fmt.Sprintf("%.0ffps", m.fps))))
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", 48)) + "\n\n")

	b.WriteString(row("altitude", fmt.Sprintf("%10.1f m", t.Altitude)))
	b.WriteString(row("speed", fmt.Sprintf("%10.1f m/s  (vertical %.1f)", t.Speed, t.VerticalSpeed)))
	b.WriteString(row("mach", fmt.Sprintf("%10.2f", t.Mach)))
	b.WriteString(row("dyn. pressure", fmt.Sprintf("%10.0f Pa   (max %.0f)", t.DynamicPressure, t.MaxQ)))
	b.WriteString(row("g-force", fmt.Sprintf("%10.2f g", t.GForce)))
	b.WriteString(row("TWR", fmt.Sprintf("%10.2f", t.TWR)))
	b.WriteString(row("mass", fmt.Sprintf("%10.0f kg   (dry %.0f)", t.Mass, st.DryMass)))
	b.WriteString(row("thrust", fmt.Sprintf("%10.0f N", t.Thrust)))
	b.WriteString(row("drag / lift", fmt.Sprintf("%10.0f / %.0f N   (Cd %.2f)", t.Drag, t.Lift, m.snap.DragCoefficient)))
	b.WriteString(row("AoA", fmt.Sprintf("%10.1f°", t.AngleOfAttack)))
	b.WriteString(row("attitude", fmt.Sprintf("pitch %6.1f°  yaw %6.1f°  roll %6.1f°", t.Pitch, t.Yaw, t.Roll)))
	b.WriteString(row("engine", fmt.Sprintf("%10.0f K", t.EngineTemperature)))
	b.WriteString("\n")

	b.WriteString("   " + dim.Render(fmt.Sprintf("%-14s", "throttle")) + bar(m.snap.Throttle, 30, magenta) + white.Render(fmt.Sprintf(" %3.0f%%", 100*m.snap.Throttle)) + "\n")
	b.WriteString("   " + dim.Render(fmt.Sprintf("%-14s", "fuel")) + bar(t.FuelFraction, 30, cyan) + white.Render(fmt.Sprintf(" %3.0f%%", 100*t.FuelFraction)) + "\n\n")

	var warnings []string
	if t.Warnings.FuelEmpty {
		warnings = append(warnings, "FUEL EMPTY")
	}
	if t.Warnings.HighG {
		warnings = append(warnings, "HIGH G")
	}
	if t.Warnings.CriticalPressure {
		warnings = append(warnings, "MAX Q")
	}
	if t.OnGround {
		b.WriteString("   " + yellow.Render("on ground") + "\n")
	}
	if len(warnings) > 0 {
		b.WriteString("   " + red.Render(strings.Join(warnings, "  ")) + "\n")
	}
	for _, e := range m.events {
		style := dim
		if e.Kind.Warning() {
			style = yellow
		}
		b.WriteString("   " + style.Render(e.String()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("   space pause  r reset  +/- speed  a/d throttle  w/s mass  z/x drag  ←↑↓→ pitch/yaw  1/2 roll  q quit") + "\n")
	return b.String()
}
