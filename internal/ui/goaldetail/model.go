// Package goaldetail shows a single goal with its task breakdown and lets
// the user add and complete tasks.
package goaldetail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/theme"
)

// CloseMsg signals the parent to navigate back to the dashboard.
type CloseMsg struct{}

// ToggleTaskMsg asks the parent to flip a task's completion state.
type ToggleTaskMsg struct {
	TaskID    string
	Completed bool
}

// AddTaskMsg asks the parent to append a task to the goal.
type AddTaskMsg struct {
	GoalID      string
	Description string
}

// Model is the goal detail view.
type Model struct {
	goal   model.Goal
	cursor int
	adding bool
	input  textinput.Model

	keys   *keys.KeyMap
	width  int
	height int
}

// New creates the goal detail model.
func New(k *keys.KeyMap, width, height int) Model {
	input := textinput.New()
	input.Placeholder = "New task description"
	input.CharLimit = 200

	return Model{
		input:  input,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetGoal replaces the displayed goal. The parent pushes a fresh copy
// after every mutation.
func (m *Model) SetGoal(goal model.Goal) {
	m.goal = goal
	if m.cursor >= len(goal.Tasks) {
		m.cursor = len(goal.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Goal returns the id of the displayed goal.
func (m Model) Goal() string {
	return m.goal.ID
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles keyboard input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.adding {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.adding {
		return m.updateInput(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.goal.Tasks)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Select):
		if m.cursor < len(m.goal.Tasks) {
			task := m.goal.Tasks[m.cursor]
			return m, func() tea.Msg {
				return ToggleTaskMsg{TaskID: task.ID, Completed: !task.Completed}
			}
		}

	case key.Matches(keyMsg, m.keys.Add):
		m.adding = true
		m.input.SetValue("")
		return m, m.input.Focus()
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Blur()
		return m, nil

	case "enter":
		description := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		if description == "" {
			return m, nil
		}
		goalID := m.goal.ID
		return m, func() tea.Msg {
			return AddTaskMsg{GoalID: goalID, Description: description}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the goal with its tasks.
func (m Model) View() string {
	var b strings.Builder

	title := m.goal.Title
	if m.goal.Completed {
		title = theme.DoneStyle.Render(title)
	}
	b.WriteString(theme.PanelTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(m.progressLine()))
	b.WriteString("\n\n")

	if len(m.goal.Tasks) == 0 {
		b.WriteString(theme.HelpStyle.Render("No tasks yet. Press a to break this goal down."))
	} else {
		for i, task := range m.goal.Tasks {
			mark := "[ ]"
			if task.Completed {
				mark = "[x]"
			}
			line := fmt.Sprintf("%s %s", mark, task.Description)
			if task.Completed {
				line = theme.DoneStyle.Render(line)
			}
			if i == m.cursor && !m.adding {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(b.String())
}

func (m Model) progressLine() string {
	if len(m.goal.Tasks) == 0 {
		return "No tasks"
	}
	done := 0
	for _, t := range m.goal.Tasks {
		if t.Completed {
			done++
		}
	}
	return fmt.Sprintf("%d of %d tasks done", done, len(m.goal.Tasks))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
