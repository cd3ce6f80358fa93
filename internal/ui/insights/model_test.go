package insights

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	aiservice "github.com/evolvedge/evolvedge/internal/ai"
	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
)

func newTestView() Model {
	advisor := aiservice.NewAdvisor(nil, zap.NewNop())
	return New(advisor, keys.DefaultKeyMap(), 80, 24)
}

// drain runs a command tree and feeds every message it produces back
// into the model, the way the Bubble Tea runtime would.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if msg == nil {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if _, ok := msg.(spinner.TickMsg); ok {
			// Ticks reschedule themselves forever.
			continue
		}
		m, next = m.Update(msg)
		queue = append(queue, next)
	}
	return m
}

func TestOpenFetchesRecommendations(t *testing.T) {
	m := newTestView()
	cmd := m.Open(nil, nil)
	m = drain(t, m, cmd)

	require.True(t, m.loaded[sectionResources])
	require.Len(t, m.resources, 2)
	assert.Contains(t, m.View(), m.resources[0].Title)
}

func TestSectionSwitchFetchesOnce(t *testing.T) {
	m := newTestView()
	cmd := m.Open([]model.Skill{{Subject: "Go", Level: 40}}, nil)
	m = drain(t, m, cmd)

	cmd = keyCmd(&m, "tab")
	m = drain(t, m, cmd)
	require.True(t, m.loaded[sectionAnalytics])
	assert.NotEmpty(t, m.analytics)

	// Returning to an already loaded section issues no new fetch.
	m2, cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Nil(t, cmd)
	assert.Equal(t, sectionResources, m2.active)
}

func TestCareerSectionRendersAdvice(t *testing.T) {
	m := newTestView()
	cmd := m.Open(nil, nil)
	m = drain(t, m, cmd)

	cmd = keyCmd(&m, "tab")
	m = drain(t, m, cmd)
	cmd = keyCmd(&m, "tab")
	m = drain(t, m, cmd)

	require.Equal(t, sectionCareer, m.active)
	require.True(t, m.loaded[sectionCareer])
	assert.Contains(t, m.career, "career advice")
	assert.Contains(t, m.View(), "Career")
}

func TestCoachAnswersQuestion(t *testing.T) {
	m := newTestView()
	cmd := m.Open([]model.Skill{{Subject: "Go", Level: 40}}, nil)
	m = drain(t, m, cmd)

	cmd = keyCmd(&m, "shift+tab")
	m = drain(t, m, cmd)
	require.Equal(t, sectionCoach, m.active)

	m.question.SetValue("How do I improve at Go?")
	cmd = keyCmd(&m, "enter")
	m = drain(t, m, cmd)

	require.True(t, m.loaded[sectionCoach])
	assert.Equal(t, "How do I improve at Go?", m.lastQ)
	assert.NotEmpty(t, m.answer)
	assert.Contains(t, m.View(), m.lastQ)
}

func TestEscEmitsClose(t *testing.T) {
	m := newTestView()
	_, cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}

// keyCmd applies one key press and returns the resulting command.
func keyCmd(m *Model, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	var cmd tea.Cmd
	*m, cmd = m.handleKeyMsg(msg)
	return cmd
}
