package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scribe/beep"
	"scribe/log"
	"scribe/recorder"
	"scribe/vad"
)

// TUI message types
type tickMsg time.Time
type stopDoneMsg struct {
	res *recorder.Finalized
	err error
}
type interruptMsg struct{}

const meterWidth = 30

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)

	meterStyles = [3]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type recordModel struct {
	ctrl    *recorder.Controller
	silence *vad.SilenceMonitor

	snap       recorder.Snapshot
	level      float64 // smoothed meter position in [0,1]
	noVoice    bool
	finalizing bool
	width      int

	result  *recorder.Finalized
	err     error
	aborted bool
}

func newRecordModel(ctrl *recorder.Controller) recordModel {
	return recordModel{
		ctrl:    ctrl,
		silence: vad.NewSilenceMonitor(false),
		snap:    ctrl.Snapshot(),
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(vad.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m recordModel) Init() tea.Cmd {
	return tuiTick()
}

func (m recordModel) stop() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Stop()
		return stopDoneMsg{res: res, err: err}
	}
}

func (m recordModel) abort() (tea.Model, tea.Cmd) {
	if err := m.ctrl.Abort(); err != nil {
		m.err = err
	}
	m.aborted = true
	return m, tea.Quit
}

func (m recordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if m.finalizing {
			return m, nil
		}
		switch msg.String() {
		case " ", "p":
			if err := m.ctrl.Toggle(); err != nil {
				log.Warnf("toggle: %v", err)
				return m, nil
			}
			if m.ctrl.Status() == recorder.Paused {
				beep.PlayPause()
			} else {
				beep.PlayResume()
			}
			m.snap = m.ctrl.Snapshot()
		case "enter", "s":
			m.finalizing = true
			return m, m.stop()
		case "esc", "q", "ctrl+c":
			return m.abort()
		}

	case interruptMsg:
		if m.finalizing {
			return m, nil
		}
		return m.abort()

	case tickMsg:
		if m.finalizing {
			return m, tuiTick()
		}
		m.snap = m.ctrl.Snapshot()
		if m.snap.Status == recorder.Recording {
			switch m.silence.Tick(m.ctrl.SpeechTick()) {
			case vad.SilenceWarn:
				m.noVoice = true
				log.Warn("no voice detected")
			case vad.SilenceRepeat:
				m.noVoice = true
			case vad.SilenceWarnClear:
				m.noVoice = false
			}
			m.level = m.level*0.6 + meterLevel(m.snap.Level)*0.4
		} else {
			m.level = 0
		}
		return m, tuiTick()

	case stopDoneMsg:
		m.result, m.err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

// meterLevel maps an RMS amplitude onto [0,1] over a -60..0 dBFS scale.
func meterLevel(rms float32) float64 {
	if rms <= 0 {
		return 0
	}
	db := 20 * math.Log10(float64(rms))
	return math.Max(0, math.Min(1, (db+60)/60))
}

func renderMeter(level float64, width int) string {
	filled := int(math.Round(level * float64(width)))
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			b.WriteString(dimStyle.Render("·"))
			continue
		}
		zone := 0
		switch {
		case i >= width*9/10:
			zone = 2
		case i >= width*7/10:
			zone = 1
		}
		b.WriteString(meterStyles[zone].Render("█"))
	}
	return b.String()
}

// formatClock renders d as MM:SS.t
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	tenths := int(d / (100 * time.Millisecond))
	return fmt.Sprintf("%02d:%02d.%d", tenths/600, (tenths/10)%60, tenths%10)
}

func (m recordModel) View() string {
	var lines []string

	switch {
	case m.finalizing:
		lines = append(lines, busyStyle.Render("… saving "+formatClock(m.snap.Recorded)))
	case m.snap.Status == recorder.Paused:
		lines = append(lines, pausedStyle.Render("‖ PAUSED "+formatClock(m.snap.Recorded)))
	default:
		lines = append(lines, recStyle.Render("● REC "+formatClock(m.snap.Recorded)))
	}

	lines = append(lines, renderMeter(m.level, meterWidth))

	info := fmt.Sprintf("%s  paused %s", m.snap.Device, formatClock(m.snap.Paused))
	if m.snap.Base != "" {
		info = m.snap.Base + "  " + info
	}
	lines = append(lines, dimStyle.Render(info))

	if m.noVoice && m.snap.Status == recorder.Recording {
		lines = append(lines, warnStyle.Render("⚠ no voice detected"))
	}
	if m.snap.Overruns > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("⚠ %d buffers dropped", m.snap.Overruns)))
	}

	lines = append(lines, "")
	lines = append(lines,
		helpKeyStyle.Render("space")+helpStyle.Render(" pause/resume  ")+
			helpKeyStyle.Render("enter")+helpStyle.Render(" stop  ")+
			helpKeyStyle.Render("esc")+helpStyle.Render(" discard"))
	return strings.Join(lines, "\n") + "\n"
}

// runRecordTUI starts a session named name and drives it from the keyboard
// until it is stopped or discarded. A nil result with a nil error means the
// recording was discarded.
func runRecordTUI(ctx context.Context, ctrl *recorder.Controller, name string) (*recorder.Finalized, error) {
	if err := ctrl.Start(name); err != nil {
		beep.PlayError()
		return nil, err
	}
	beep.PlayStart()

	p := tea.NewProgram(newRecordModel(ctrl))
	go func() {
		<-ctx.Done()
		p.Send(interruptMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		ctrl.Abort()
		return nil, fmt.Errorf("tui: %w", err)
	}
	m := final.(recordModel)
	if m.err != nil {
		beep.PlayError()
		return nil, m.err
	}
	if m.aborted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	beep.PlayEnd()
	return m.result, nil
}
