// Package addform renders the create dialogs for goals, skills, routines,
// and planner events.
package addform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/theme"
)

// Kind selects which item the form creates.
type Kind int

const (
	KindGoal Kind = iota
	KindSkill
	KindRoutine
	KindEvent
)

// GoalSubmittedMsg is dispatched when the user submits a new goal.
type GoalSubmittedMsg struct {
	Title string
}

// SkillSubmittedMsg is dispatched when the user submits a new skill.
type SkillSubmittedMsg struct {
	Subject string
	Level   int
}

// RoutineSubmittedMsg is dispatched when the user submits a new routine.
type RoutineSubmittedMsg struct {
	Routine model.Routine
}

// EventSubmittedMsg is dispatched when the user submits a new planner event.
type EventSubmittedMsg struct {
	Event model.PlannerEvent
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	level    string
	category string
	date     string
	at       string
}

// Model is the Bubble Tea model for the create dialogs.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	kind   Kind
	width  int
	height int
}

// New creates the form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form for the given item kind.
func (m *Model) Start(kind Kind) tea.Cmd {
	m.kind = kind
	m.fb.title = ""
	m.fb.level = ""
	m.fb.category = ""
	m.fb.date = model.Today()
	m.fb.at = ""

	switch kind {
	case KindGoal:
		m.form = m.buildGoalForm()
	case KindSkill:
		m.form = m.buildSkillForm()
	case KindRoutine:
		m.form = m.buildRoutineForm()
	case KindEvent:
		m.form = m.buildEventForm()
	}
	return m.form.Init()
}

// Active reports whether a form is currently shown.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		submit := m.handleSubmit()
		m.form = nil
		return m, submit
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	var titleText string
	switch m.kind {
	case KindGoal:
		titleText = "New Goal"
	case KindSkill:
		titleText = "New Skill"
	case KindRoutine:
		titleText = "New Routine"
	case KindEvent:
		titleText = "New Planner Event"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildGoalForm() *huh.Form {
	return m.wrap(
		huh.NewInput().
			Title("Goal").
			Placeholder("What do you want to achieve?").
			Value(&m.fb.title).
			Validate(validateRequired("Goal")),
	)
}

func (m *Model) buildSkillForm() *huh.Form {
	return m.wrap(
		huh.NewInput().
			Title("Skill").
			Placeholder("E.g. Python").
			Value(&m.fb.title).
			Validate(validateRequired("Skill")),
		huh.NewInput().
			Title("Starting Level").
			Placeholder("0-100 (optional)").
			Value(&m.fb.level).
			Validate(validateOptionalLevel),
	)
}

func (m *Model) buildRoutineForm() *huh.Form {
	return m.wrap(
		huh.NewInput().
			Title("Routine").
			Placeholder("E.g. Read for 20 minutes").
			Value(&m.fb.title).
			Validate(validateRequired("Routine")),
		huh.NewInput().
			Title("Category").
			Placeholder("E.g. Mindfulness, Learning").
			Value(&m.fb.category).
			Validate(validateRequired("Category")),
	)
}

func (m *Model) buildEventForm() *huh.Form {
	return m.wrap(
		huh.NewInput().
			Title("Title").
			Placeholder("E.g. Learn React Hooks").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewInput().
			Title("Date").
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.date).
			Validate(validateDate),
		huh.NewInput().
			Title("Time").
			Placeholder("E.g. 10:00").
			Value(&m.fb.at).
			Validate(validateRequired("Time")),
		huh.NewSelect[string]().
			Title("Category").
			Options(
				huh.NewOption("Work", model.EventCategoryWork),
				huh.NewOption("Skill", model.EventCategorySkill),
				huh.NewOption("Personal", model.EventCategoryPersonal),
			).
			Value(&m.fb.category),
	)
}

func (m *Model) wrap(fields ...huh.Field) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	switch m.kind {
	case KindGoal:
		title := strings.TrimSpace(m.fb.title)
		return func() tea.Msg { return GoalSubmittedMsg{Title: title} }

	case KindSkill:
		subject := strings.TrimSpace(m.fb.title)
		level := 0
		if v, err := strconv.Atoi(strings.TrimSpace(m.fb.level)); err == nil {
			level = model.ClampLevel(v)
		}
		return func() tea.Msg { return SkillSubmittedMsg{Subject: subject, Level: level} }

	case KindRoutine:
		routine := model.Routine{
			Title:    strings.TrimSpace(m.fb.title),
			Category: strings.TrimSpace(m.fb.category),
		}
		return func() tea.Msg { return RoutineSubmittedMsg{Routine: routine} }

	case KindEvent:
		event := model.PlannerEvent{
			Title:    strings.TrimSpace(m.fb.title),
			Date:     strings.TrimSpace(m.fb.date),
			Time:     strings.TrimSpace(m.fb.at),
			Category: m.fb.category,
		}
		if event.Category == "" {
			event.Category = model.EventCategoryPersonal
		}
		return func() tea.Msg { return EventSubmittedMsg{Event: event} }
	}
	return nil
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Date is required")
	}
	if _, err := time.Parse(model.DateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

func validateOptionalLevel(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < model.SkillLevelMin || v > model.SkillLevelMax {
		return fmt.Errorf("level must be a number from 0 to 100")
	}
	return nil
}
