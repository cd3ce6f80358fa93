// Package dashboard renders the four profile panels: goals, skills,
// routines, and today's planner.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/theme"
	"github.com/evolvedge/evolvedge/internal/ui/addform"
)

// Panel identifies one of the dashboard quadrants.
type Panel int

const (
	PanelGoals Panel = iota
	PanelSkills
	PanelRoutines
	PanelPlanner

	panelCount
)

// ToggleGoalMsg asks the parent to flip a goal's completion state.
type ToggleGoalMsg struct {
	ID        string
	Completed bool
}

// ToggleRoutineMsg asks the parent to flip a routine for today.
type ToggleRoutineMsg struct {
	ID string
}

// OpenGoalMsg asks the parent to open the goal detail view.
type OpenGoalMsg struct {
	ID string
}

// DeleteGoalMsg asks the parent to remove a goal.
type DeleteGoalMsg struct {
	ID string
}

// DeleteEventMsg asks the parent to remove a planner event.
type DeleteEventMsg struct {
	ID string
}

// AddRequestMsg asks the parent to open the create form for the focused
// panel's item kind.
type AddRequestMsg struct {
	Kind addform.Kind
}

// Model is the dashboard Bubble Tea model. It holds display copies of the
// collections; the parent pushes fresh snapshots after every mutation.
type Model struct {
	goals    []model.Goal
	skills   []model.Skill
	routines []model.Routine
	events   []model.PlannerEvent
	quote    string

	focus   Panel
	cursors [panelCount]int
	keys    *keys.KeyMap
	width   int
	height  int
}

// New creates the dashboard model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetData replaces the display snapshots. Events should already be
// filtered to today.
func (m *Model) SetData(goals []model.Goal, skills []model.Skill, routines []model.Routine, events []model.PlannerEvent) {
	m.goals = goals
	m.skills = skills
	m.routines = routines
	m.events = events
	for p := Panel(0); p < panelCount; p++ {
		m.clampCursor(p)
	}
}

// SetQuote sets the motivational quote shown above the panels.
func (m *Model) SetQuote(quote string) {
	m.quote = quote
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles keyboard input for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.NextPanel):
		m.focus = (m.focus + 1) % panelCount
	case key.Matches(keyMsg, m.keys.PrevPanel):
		m.focus = (m.focus + panelCount - 1) % panelCount
	case key.Matches(keyMsg, m.keys.Down):
		m.cursors[m.focus]++
		m.clampCursor(m.focus)
	case key.Matches(keyMsg, m.keys.Up):
		m.cursors[m.focus]--
		m.clampCursor(m.focus)
	case key.Matches(keyMsg, m.keys.Select):
		return m, m.toggleSelected()
	case key.Matches(keyMsg, m.keys.Delete):
		return m, m.deleteSelected()
	case key.Matches(keyMsg, m.keys.Open):
		if m.focus == PanelGoals {
			if i := m.cursors[PanelGoals]; i < len(m.goals) {
				id := m.goals[i].ID
				return m, func() tea.Msg { return OpenGoalMsg{ID: id} }
			}
		}
	case key.Matches(keyMsg, m.keys.Add):
		kind := map[Panel]addform.Kind{
			PanelGoals:    addform.KindGoal,
			PanelSkills:   addform.KindSkill,
			PanelRoutines: addform.KindRoutine,
			PanelPlanner:  addform.KindEvent,
		}[m.focus]
		return m, func() tea.Msg { return AddRequestMsg{Kind: kind} }
	}

	return m, nil
}

func (m *Model) clampCursor(p Panel) {
	max := m.panelLen(p) - 1
	if m.cursors[p] > max {
		m.cursors[p] = max
	}
	if m.cursors[p] < 0 {
		m.cursors[p] = 0
	}
}

func (m Model) panelLen(p Panel) int {
	switch p {
	case PanelGoals:
		return len(m.goals)
	case PanelSkills:
		return len(m.skills)
	case PanelRoutines:
		return len(m.routines)
	case PanelPlanner:
		return len(m.events)
	}
	return 0
}

func (m Model) toggleSelected() tea.Cmd {
	i := m.cursors[m.focus]
	switch m.focus {
	case PanelGoals:
		if i < len(m.goals) {
			g := m.goals[i]
			return func() tea.Msg { return ToggleGoalMsg{ID: g.ID, Completed: !g.Completed} }
		}
	case PanelRoutines:
		if i < len(m.routines) {
			r := m.routines[i]
			return func() tea.Msg { return ToggleRoutineMsg{ID: r.ID} }
		}
	}
	return nil
}

func (m Model) deleteSelected() tea.Cmd {
	i := m.cursors[m.focus]
	switch m.focus {
	case PanelGoals:
		if i < len(m.goals) {
			id := m.goals[i].ID
			return func() tea.Msg { return DeleteGoalMsg{ID: id} }
		}
	case PanelPlanner:
		if i < len(m.events) {
			id := m.events[i].ID
			return func() tea.Msg { return DeleteEventMsg{ID: id} }
		}
	}
	return nil
}

// View renders the dashboard.
func (m Model) View() string {
	panelWidth := m.width/2 - 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	panelHeight := (m.height - 3) / 2
	if panelHeight < 5 {
		panelHeight = 5
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPanel(PanelGoals, "Goals", m.renderGoals(), panelWidth, panelHeight),
		m.renderPanel(PanelSkills, "Skills", m.renderSkills(), panelWidth, panelHeight),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPanel(PanelRoutines, "Daily Routines", m.renderRoutines(), panelWidth, panelHeight),
		m.renderPanel(PanelPlanner, "Today's Plan", m.renderEvents(), panelWidth, panelHeight),
	)

	sections := []string{}
	if m.quote != "" {
		sections = append(sections, theme.QuoteStyle.Render(m.quote))
	}
	sections = append(sections, top, bottom)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderPanel(p Panel, title, body string, width, height int) string {
	style := theme.PanelStyle
	if p == m.focus {
		style = theme.FocusedPanelStyle
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.PanelTitleStyle.Render(title),
		body,
	)
	return style.Width(width).Height(height).Render(content)
}

func (m Model) renderGoals() string {
	if len(m.goals) == 0 {
		return theme.HelpStyle.Render("No goals yet. Press a to add one.")
	}
	var lines []string
	for i, g := range m.goals {
		mark := "[ ]"
		if g.Completed {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, g.Title)
		if len(g.Tasks) > 0 {
			done := 0
			for _, t := range g.Tasks {
				if t.Completed {
					done++
				}
			}
			line += fmt.Sprintf(" (%d/%d)", done, len(g.Tasks))
		}
		lines = append(lines, m.renderLine(PanelGoals, i, line, g.Completed))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSkills() string {
	if len(m.skills) == 0 {
		return theme.HelpStyle.Render("No skills tracked. Press a to add one.")
	}
	var lines []string
	for i, s := range m.skills {
		level := theme.LevelStyle(s.Level).Render(fmt.Sprintf("%3d%%", s.Level))
		lines = append(lines, m.renderLine(PanelSkills, i, fmt.Sprintf("%s %s", level, s.Subject), false))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRoutines() string {
	if len(m.routines) == 0 {
		return theme.HelpStyle.Render("No routines yet. Press a to add one.")
	}
	var lines []string
	for i, r := range m.routines {
		mark := "[ ]"
		if r.Completed {
			mark = "[x]"
		}
		lines = append(lines, m.renderLine(PanelRoutines, i, fmt.Sprintf("%s %s", mark, r.Title), r.Completed))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEvents() string {
	if len(m.events) == 0 {
		return theme.HelpStyle.Render("Nothing planned for today.")
	}
	var lines []string
	for i, e := range m.events {
		category := theme.CategoryStyle(e.Category).Render(e.Category)
		lines = append(lines, m.renderLine(PanelPlanner, i, fmt.Sprintf("%s %s %s", e.Time, e.Title, category), false))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLine(p Panel, index int, text string, done bool) string {
	if done {
		text = theme.DoneStyle.Render(text)
	}
	if p == m.focus && index == m.cursors[p] {
		return theme.SelectedItemStyle.Render(text)
	}
	return theme.ListItemStyle.Render(text)
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
