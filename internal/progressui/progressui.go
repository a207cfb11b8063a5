// Package progressui renders an interactive carve progress bar, the
// bubbletea/bubbles/lipgloss stack the teacher's recover-tui uses for its
// full wizard — scaled down here to a single-screen progress display
// driven by carver.Options.Progress instead of a multi-state wizard.
package progressui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
)

// progressMsg carries a scan-offset update from carver.Options.Progress.
type progressMsg struct {
	offset, total int64
}

// doneMsg signals the updates channel closed: the carve finished.
type doneMsg struct{}

// model is the bubbletea model for a single carve run's progress display.
type model struct {
	title    string
	bar      progress.Model
	spin     spinner.Model
	updates  <-chan progressMsg
	done     bool
	lastText string
}

// New builds a progress model reading offset updates from updates, closed
// by the caller when the carve finishes.
func New(title string, updates <-chan progressMsg) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return model{
		title:   title,
		bar:     progress.New(progress.WithDefaultGradient()),
		spin:    s,
		updates: updates,
	}
}

func waitForUpdate(updates <-chan progressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return msg
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForUpdate(m.updates))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil
	case progressMsg:
		var percent float64
		if msg.total > 0 {
			percent = float64(msg.offset) / float64(msg.total)
		}
		m.lastText = fmt.Sprintf("%d / %d bytes scanned", msg.offset, msg.total)
		return m, tea.Batch(m.bar.SetPercent(percent), waitForUpdate(m.updates))
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		newBar, cmd := m.bar.Update(msg)
		m.bar = newBar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	header := titleStyle.Render(" " + m.title + " ")
	if m.done {
		return header + "\n\n" + doneStyle.Render("done") + "\n"
	}
	return header + "\n\n" + m.spin.View() + " " + m.lastText + "\n" + m.bar.View() + "\n\n" + helpStyle.Render("q to hide (the carve keeps running)")
}

// Run drives the progress bar to completion. updates must be closed by the
// caller once the carve (or other tracked operation) finishes.
func Run(title string, updates <-chan progressMsg) error {
	p := tea.NewProgram(New(title, updates))
	_, err := p.Run()
	return err
}

// NewUpdateChannel returns a channel-backed progress callback suitable for
// carver.Options.Progress, paired with the channel Run consumes. The
// caller must close the channel once the tracked operation finishes, so
// Run's model can transition to its done state.
func NewUpdateChannel() (func(offset, total int64), chan progressMsg) {
	ch := make(chan progressMsg, 16)
	cb := func(offset, total int64) {
		select {
		case ch <- progressMsg{offset: offset, total: total}:
		default:
			// drop the update rather than block the scan loop on a slow UI
		}
	}
	return cb, ch
}
