// Package insights is the AI guidance view: recommended learning
// resources, a skill snapshot, career advice, and a free-form skill
// coach, arranged as switchable sections.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	aiservice "github.com/evolvedge/evolvedge/internal/ai"
	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/theme"
)

// CloseMsg signals the parent to leave the insights view.
type CloseMsg struct{}

type section int

const (
	sectionResources section = iota
	sectionAnalytics
	sectionCareer
	sectionCoach
	sectionCount
)

var sectionTitles = [sectionCount]string{
	"Resources",
	"Skill Snapshot",
	"Career",
	"Coach",
}

type resourcesMsg struct {
	items []model.LearningResource
}

type analyticsMsg struct {
	text string
}

type careerMsg struct {
	text string
}

type coachMsg struct {
	question string
	answer   string
}

// Model is the insights view Bubble Tea model.
type Model struct {
	advisor *aiservice.Advisor
	keys    *keys.KeyMap

	skills []model.Skill
	goals  []model.Goal

	active  section
	loaded  [sectionCount]bool
	loading [sectionCount]bool

	resources []model.LearningResource
	analytics string
	career    string

	question textinput.Model
	lastQ    string
	answer   string

	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
}

// New creates the insights view.
func New(advisor *aiservice.Advisor, k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask your coach..."
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		advisor:  advisor,
		keys:     k,
		question: ti,
		spinner:  sp,
	}
	m.SetSize(width, height)
	return m
}

// SetSize adjusts the view to the given dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.question.Width = width - 8
	bodyHeight := height - 7
	if bodyHeight < 4 {
		bodyHeight = 4
	}
	m.viewport = viewport.New(width-6, bodyHeight)
	m.refreshViewport()
}

// Open seeds the view with the current profile and starts fetching the
// first section. Cached advice is discarded so a fresh visit reflects
// the latest skills and goals.
func (m *Model) Open(skills []model.Skill, goals []model.Goal) tea.Cmd {
	m.skills = skills
	m.goals = goals
	m.active = sectionResources
	m.loaded = [sectionCount]bool{}
	m.loading = [sectionCount]bool{}
	m.answer = ""
	m.lastQ = ""
	m.question.Reset()
	m.refreshViewport()
	return tea.Batch(m.spinner.Tick, m.fetchActive())
}

// fetchActive kicks off the advisor call backing the active section,
// once per visit. The coach section only fetches on an explicit
// question.
func (m *Model) fetchActive() tea.Cmd {
	s := m.active
	if s == sectionCoach || m.loaded[s] || m.loading[s] {
		return nil
	}
	m.loading[s] = true
	m.refreshViewport()

	advisor := m.advisor
	skills := m.skills
	goals := m.goals
	switch s {
	case sectionResources:
		return func() tea.Msg {
			return resourcesMsg{items: advisor.Recommendations(context.Background())}
		}
	case sectionAnalytics:
		return func() tea.Msg {
			return analyticsMsg{text: advisor.SkillAnalytics(context.Background(), skills)}
		}
	case sectionCareer:
		return func() tea.Msg {
			return careerMsg{text: advisor.CareerAdvice(context.Background(), skills, goals)}
		}
	}
	return nil
}

func (m Model) ask(question string) tea.Cmd {
	advisor := m.advisor
	skills := m.skills
	return func() tea.Msg {
		return coachMsg{
			question: question,
			answer:   advisor.SkillCoach(context.Background(), question, skills),
		}
	}
}

// Update handles messages for the insights view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resourcesMsg:
		m.resources = msg.items
		m.loading[sectionResources] = false
		m.loaded[sectionResources] = true
		m.refreshViewport()
		return m, nil

	case analyticsMsg:
		m.analytics = msg.text
		m.loading[sectionAnalytics] = false
		m.loaded[sectionAnalytics] = true
		m.refreshViewport()
		return m, nil

	case careerMsg:
		m.career = msg.text
		m.loading[sectionCareer] = false
		m.loaded[sectionCareer] = true
		m.refreshViewport()
		return m, nil

	case coachMsg:
		m.lastQ = msg.question
		m.answer = msg.answer
		m.loading[sectionCoach] = false
		m.loaded[sectionCoach] = true
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.refreshViewport()
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return CloseMsg{} }

	case "tab", "l", "right":
		if m.active == sectionCoach && (msg.String() == "l" || msg.String() == "right") {
			break
		}
		m.active = (m.active + 1) % sectionCount
		m.refreshViewport()
		if fetch := m.fetchActive(); fetch != nil {
			return m, tea.Batch(m.spinner.Tick, fetch)
		}
		return m, nil

	case "shift+tab", "h", "left":
		if m.active == sectionCoach && (msg.String() == "h" || msg.String() == "left") {
			break
		}
		m.active = (m.active + sectionCount - 1) % sectionCount
		m.refreshViewport()
		if fetch := m.fetchActive(); fetch != nil {
			return m, tea.Batch(m.spinner.Tick, fetch)
		}
		return m, nil

	case "enter":
		if m.active != sectionCoach || m.loading[sectionCoach] {
			return m, nil
		}
		question := strings.TrimSpace(m.question.Value())
		if question == "" {
			return m, nil
		}
		m.question.Reset()
		m.loading[sectionCoach] = true
		m.refreshViewport()
		return m, tea.Batch(m.spinner.Tick, m.ask(question))
	}

	if m.active == sectionCoach {
		var cmd tea.Cmd
		m.question, cmd = m.question.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) busy() bool {
	for _, l := range m.loading {
		if l {
			return true
		}
	}
	return false
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderSection())
	m.viewport.GotoTop()
}

func (m Model) renderSection() string {
	if m.loading[m.active] {
		return m.spinner.View() + " Thinking..."
	}

	switch m.active {
	case sectionResources:
		return m.renderResources()
	case sectionAnalytics:
		return m.analytics
	case sectionCareer:
		return m.career
	case sectionCoach:
		return m.renderCoach()
	}
	return ""
}

func (m Model) renderResources() string {
	if len(m.resources) == 0 {
		return theme.HelpStyle.Render("No recommendations yet.")
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	var lines []string
	for _, r := range m.resources {
		lines = append(lines,
			fmt.Sprintf("%s %s", kindBadge(r.Type), titleStyle.Render(r.Title)),
			metaStyle.Render("  "+r.Source+"  "+r.URL),
			"",
		)
	}
	return strings.Join(lines, "\n")
}

func kindBadge(kind string) string {
	style := lipgloss.NewStyle().Bold(true)
	switch kind {
	case model.ResourceVideo:
		return style.Foreground(theme.ColorRed).Render("[video]")
	case model.ResourceExercise:
		return style.Foreground(theme.ColorGreen).Render("[exercise]")
	default:
		return style.Foreground(theme.ColorBlue).Render("[article]")
	}
}

func (m Model) renderCoach() string {
	if m.answer == "" {
		return theme.HelpStyle.Render("Ask a question about any of your skills.")
	}

	qStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	aStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		qStyle.Render("You: ")+m.lastQ,
		"",
		aStyle.Render(m.answer),
	)
}

// View renders the insights view.
func (m Model) View() string {
	var tabs []string
	for s := section(0); s < sectionCount; s++ {
		style := lipgloss.NewStyle().Padding(0, 1).Foreground(theme.ColorGray)
		if s == m.active {
			style = style.Bold(true).Foreground(theme.ColorBlue).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(theme.ColorBlue)
		}
		tabs = append(tabs, style.Render(sectionTitles[s]))
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	parts := []string{tabBar, "", m.viewport.View()}
	if m.active == sectionCoach {
		parts = append(parts, "", m.question.View())
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
