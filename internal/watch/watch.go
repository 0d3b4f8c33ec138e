package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// ErrDisconnected is returned when the event stream ends before a terminal event.
var ErrDisconnected = errors.New("event stream closed before the task finished")

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const maxBarWidth = 60

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	doneStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	stepNameStyle = lipgloss.NewStyle().
			Bold(true).
			Width(18)

	stepMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))
)

type eventMsg struct {
	ev model.ProgressEvent
	ok bool
}

type stepLine struct {
	name    string
	message string
}

// Model renders a task's progress stream.
type Model struct {
	taskID  string
	events  <-chan model.ProgressEvent
	spinner spinner.Model
	bar     progress.Model
	width   int

	status   string
	percent  int
	steps    []stepLine
	final    model.ProgressEvent
	done     bool
	err      error
	quitting bool
}

// New creates a Model that reads from events until a terminal event.
func New(taskID string, events <-chan model.ProgressEvent) Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Spinner{Frames: spinnerFrames, FPS: 80 * time.Millisecond}),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
	)
	return Model{
		taskID:  taskID,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		status:  "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan model.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return eventMsg{ev: ev, ok: ok}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clamp(msg.Width-10, 10, maxBarWidth)
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		if !msg.ok {
			if !m.done {
				m.done = true
				m.err = ErrDisconnected
			}
			return m, tea.Quit
		}
		m.apply(msg.ev)
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m *Model) apply(ev model.ProgressEvent) {
	switch ev.Type {
	case model.EventConnected:
		m.status = "waiting"
		if ev.Status != "" {
			m.status = ev.Status
		}
	case model.EventStatusUpdate:
		m.status = ev.Status
	case model.EventStepProgress:
		m.status = "running"
		m.percent = ev.Progress
		m.steps = append(m.steps, stepLine{name: ev.Step, message: ev.Message})
	case model.EventCompleted, model.EventSaveCompleted:
		m.status = "completed"
		m.percent = 100
		m.final = ev
		m.done = true
	case model.EventError:
		m.status = "failed"
		m.final = ev
		m.done = true
		m.err = fmt.Errorf("analysis failed: %s", ev.Message)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Analysis " + m.taskID))
	b.WriteByte('\n')

	var body strings.Builder
	for _, s := range m.steps {
		body.WriteString(doneStepStyle.Render("✓ "))
		body.WriteString(stepNameStyle.Render(s.name))
		body.WriteString(stepMessageStyle.Render(s.message))
		body.WriteByte('\n')
	}
	if !m.done {
		body.WriteString(m.spinner.View() + " " + m.status + "...\n")
	}
	body.WriteString(m.bar.ViewAs(float64(m.percent) / 100))

	switch {
	case m.final.Type == model.EventError:
		body.WriteString("\n" + errorStyle.Render("⚠ "+m.final.Message))
		if m.final.RetryAvailable {
			body.WriteString("\n" + stepMessageStyle.Render("  retry is available"))
		}
	case m.done && m.err == nil:
		body.WriteString("\n" + successStyle.Render(m.final.Message))
		if m.final.RedirectURL != "" {
			body.WriteString("\n" + stepMessageStyle.Render("  result: "+m.final.RedirectURL))
		}
	case m.err != nil:
		body.WriteString("\n" + errorStyle.Render("⚠ "+m.err.Error()))
	}

	b.WriteString(boxStyle.Render(body.String()))
	b.WriteByte('\n')

	status := fmt.Sprintf(" %s | %d%% | %d steps    q quit", m.status, m.percent, len(m.steps))
	if m.width > 0 {
		b.WriteString(statusBarStyle.Width(m.width).Render(status))
	} else {
		b.WriteString(statusBarStyle.Render(status))
	}
	b.WriteByte('\n')
	return b.String()
}

// Final returns the terminal event, zero if none arrived.
func (m Model) Final() model.ProgressEvent { return m.final }

// Err returns why the watch ended unsuccessfully, if it did.
func (m Model) Err() error { return m.err }

// Run renders the progress stream inline until a terminal event arrives,
// the stream closes, or the user quits.
func Run(ctx context.Context, taskID string, events <-chan model.ProgressEvent) (model.ProgressEvent, error) {
	p := tea.NewProgram(New(taskID, events), tea.WithContext(ctx))
	result, err := p.Run()
	if err != nil {
		return model.ProgressEvent{}, err
	}
	final := result.(Model)
	if final.quitting && !final.done {
		return model.ProgressEvent{}, context.Canceled
	}
	return final.final, final.err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
