package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultTimeout = 2 * time.Minute

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(2)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type resultMsg struct {
	details []string
	err     error
	elapsed time.Duration
}

type model struct {
	title    string
	timeout  time.Duration
	action   func(context.Context) ([]string, error)
	details  []string
	err      error
	elapsed  time.Duration
	done     bool
	canceled bool
}

func newModel(title string, timeout time.Duration, action func(context.Context) ([]string, error)) model {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return model{title: title, timeout: timeout, action: action}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		start := time.Now()
		details, err := m.action(ctx)
		return resultMsg{details: details, err: err, elapsed: time.Since(start)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.canceled = true
			return m, tea.Quit
		}
	case resultMsg:
		m.details = msg.details
		m.err = msg.err
		m.elapsed = msg.elapsed
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	switch {
	case m.canceled:
		b.WriteString(mutedStyle.Render("canceled"))
		b.WriteString("\n")
		return b.String()
	case !m.done:
		b.WriteString(mutedStyle.Render("running... (q to abort)"))
		b.WriteString("\n")
		return b.String()
	case m.err != nil:
		fmt.Fprintf(&b, "%s %v\n", failStyle.Render("FAILED"), m.err)
	default:
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), mutedStyle.Render(m.elapsed.Round(time.Millisecond).String()))
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render("- " + d))
		b.WriteString("\n")
	}
	return b.String()
}

// Run shows a progress view while action executes and returns its result.
func Run(title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error) {
	final, err := tea.NewProgram(newModel(title, timeout, action)).Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	if res.canceled {
		return res.details, context.Canceled
	}
	return res.details, res.err
}
