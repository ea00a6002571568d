package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ploc/internal/core/ports"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type stageStartMsg struct {
	stage ports.Stage
	label string
	total int
}

type stageAdvanceMsg struct {
	stage ports.Stage
	n     int
}

type stageFinishMsg struct {
	stage ports.Stage
}

// stageState is one line of the progress view.
type stageState struct {
	stage    ports.Stage
	label    string
	total    int
	done     int
	finished bool
}

type progressModel struct {
	spinner spinner.Model
	bar     progress.Model
	stages  []stageState
}

func newProgressModel() progressModel {
	return progressModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(labelStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stageStartMsg:
		m.stages = append(m.stages, stageState{stage: msg.stage, label: msg.label, total: msg.total})
	case stageAdvanceMsg:
		if s := m.current(msg.stage); s != nil {
			s.done += msg.n
		}
	case stageFinishMsg:
		if s := m.current(msg.stage); s != nil {
			s.finished = true
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// current returns the latest unfinished line of stage. Stages may repeat,
// one line per additional package.
func (m *progressModel) current(stage ports.Stage) *stageState {
	for i := len(m.stages) - 1; i >= 0; i-- {
		if m.stages[i].stage == stage && !m.stages[i].finished {
			return &m.stages[i]
		}
	}
	return nil
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, s := range m.stages {
		if s.finished {
			b.WriteString(doneStyle.Render("✓ " + s.label))
		} else {
			b.WriteString(m.spinner.View() + " " + labelStyle.Render(s.label))
		}
		if s.total > 0 {
			ratio := float64(s.done) / float64(s.total)
			if ratio > 1 {
				ratio = 1
			}
			b.WriteString(" " + m.bar.ViewAs(ratio))
			b.WriteString(" " + countStyle.Render(fmt.Sprintf("%d/%d", s.done, s.total)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// teaProgress forwards run progress to a running program. Send is safe from
// the extraction workers.
type teaProgress struct {
	p *tea.Program
}

func (t teaProgress) Start(stage ports.Stage, label string, total int) {
	t.p.Send(stageStartMsg{stage: stage, label: label, total: total})
}

func (t teaProgress) Advance(stage ports.Stage, n int) {
	t.p.Send(stageAdvanceMsg{stage: stage, n: n})
}

func (t teaProgress) Finish(stage ports.Stage) {
	t.p.Send(stageFinishMsg{stage: stage})
}

// withProgressView runs fn while a progress view renders on w. Signals are
// left to the caller's context.
func withProgressView(ctx context.Context, w io.Writer, fn func(ports.Progress) error) error {
	p := tea.NewProgram(newProgressModel(),
		tea.WithContext(ctx),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()

	err := fn(teaProgress{p: p})
	p.Quit()
	<-done
	return err
}
