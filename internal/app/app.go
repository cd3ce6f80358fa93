// Package app is the root Bubble Tea model: view routing, layout, and the
// glue between the UI views and the synchronized collections.
package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	aiservice "github.com/evolvedge/evolvedge/internal/ai"
	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
	syncstore "github.com/evolvedge/evolvedge/internal/sync"
	"github.com/evolvedge/evolvedge/internal/ui"
	"github.com/evolvedge/evolvedge/internal/ui/addform"
	chatview "github.com/evolvedge/evolvedge/internal/ui/chat"
	"github.com/evolvedge/evolvedge/internal/ui/dashboard"
	"github.com/evolvedge/evolvedge/internal/ui/goaldetail"
	helpview "github.com/evolvedge/evolvedge/internal/ui/help"
	"github.com/evolvedge/evolvedge/internal/ui/insights"
	settingsview "github.com/evolvedge/evolvedge/internal/ui/settings"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewChat
	ViewForm
	ViewGoal
	ViewSettings
	ViewInsights
	ViewHelp
)

type sessionOpenedMsg struct {
	err error
}

type quoteMsg struct {
	text string
}

type profileChangedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	session   *syncstore.Session
	assistant *aiservice.Assistant
	advisor   *aiservice.Advisor
	keys      *keys.KeyMap
	logger    *zap.Logger

	dashboard    dashboard.Model
	chatView     chatview.Model
	helpView     helpview.Model
	formView     addform.Model
	goalView     goaldetail.Model
	settingsView settingsview.Model
	insightsView insights.Model

	ready  bool
	loaded bool
}

// New creates the root application model.
func New(session *syncstore.Session, assistant *aiservice.Assistant, advisor *aiservice.Advisor, cfg *model.AppConfig, configPath string, logger *zap.Logger) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView:  ViewDashboard,
		session:      session,
		assistant:    assistant,
		advisor:      advisor,
		keys:         k,
		logger:       logger,
		dashboard:    dashboard.New(k, 80, 24),
		chatView:     chatview.New(assistant, session.Chat, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		formView:     addform.New(80, 24),
		goalView:     goaldetail.New(k, 80, 24),
		settingsView: settingsview.New(cfg, configPath, k, 80, 24),
		insightsView: insights.New(advisor, k, 80, 24),
	}
}

// Init opens the session and fetches the daily quote.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.openSession(), m.fetchQuote())
}

func (m Model) openSession() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return sessionOpenedMsg{err: session.Open(context.Background())}
	}
}

func (m Model) fetchQuote() tea.Cmd {
	advisor := m.advisor
	return func() tea.Msg {
		return quoteMsg{text: advisor.DailyQuote(context.Background())}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w := m.layout.ContentWidth()
		h := m.layout.ContentHeight()
		m.dashboard.SetSize(w, h)
		m.chatView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.formView.SetSize(w, h)
		m.goalView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		m.insightsView.SetSize(w, h)
		return m.updateActiveView(msg)

	case sessionOpenedMsg:
		if msg.err != nil {
			m.logger.Error("opening session", zap.Error(msg.err))
		}
		m.loaded = true
		m.refreshDashboard()
		return m, nil

	case quoteMsg:
		m.dashboard.SetQuote(msg.text)
		return m, nil

	case profileChangedMsg, chatview.ProfileChangedMsg:
		m.refreshDashboard()
		if m.currentView == ViewGoal {
			m.refreshGoalView()
		}
		if _, ok := msg.(chatview.ProfileChangedMsg); ok {
			// Keep routing the message so the chat view can settle its state.
			return m.updateActiveView(msg)
		}
		return m, nil

	case dashboard.ToggleGoalMsg:
		return m, m.mutate(func(ctx context.Context) error {
			return m.session.Goals.ToggleGoal(ctx, msg.ID, msg.Completed)
		})

	case dashboard.ToggleRoutineMsg:
		return m, m.mutate(func(ctx context.Context) error {
			return m.session.Routines.ToggleRoutine(ctx, msg.ID)
		})

	case dashboard.DeleteGoalMsg:
		return m, m.mutate(func(ctx context.Context) error {
			return m.session.Goals.DeleteGoal(ctx, msg.ID)
		})

	case dashboard.DeleteEventMsg:
		return m, m.mutate(func(ctx context.Context) error {
			return m.session.Planner.DeleteEvent(ctx, msg.ID)
		})

	case dashboard.OpenGoalMsg:
		goal, ok := m.session.Goals.Find(func(g model.Goal) bool { return g.ID == msg.ID })
		if !ok {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewGoal
		m.goalView.SetGoal(*goal)
		return m, nil

	case goaldetail.ToggleTaskMsg:
		return m, m.mutate(func(ctx context.Context) error {
			return m.session.Goals.ToggleTask(ctx, msg.TaskID, msg.Completed)
		})

	case goaldetail.AddTaskMsg:
		return m, m.mutate(func(ctx context.Context) error {
			_, err := m.session.Goals.AddTask(ctx, msg.GoalID, msg.Description)
			return err
		})

	case goaldetail.CloseMsg:
		m.currentView = ViewDashboard
		return m, nil

	case settingsview.DoneMsg:
		m.currentView = ViewDashboard
		return m, nil

	case insights.CloseMsg:
		m.currentView = ViewDashboard
		return m, nil

	case settingsview.SavedMsg:
		m.logger.Info("configuration saved")
		return m, nil

	case dashboard.AddRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.formView.Start(msg.Kind)

	case addform.GoalSubmittedMsg:
		m.currentView = ViewDashboard
		return m, m.mutate(func(ctx context.Context) error {
			_, err := m.session.Goals.AddGoal(ctx, msg.Title)
			return err
		})

	case addform.SkillSubmittedMsg:
		m.currentView = ViewDashboard
		return m, m.mutate(func(ctx context.Context) error {
			_, err := m.session.Skills.InitializeSkills(ctx, []model.Skill{{Subject: msg.Subject, Level: msg.Level}})
			return err
		})

	case addform.RoutineSubmittedMsg:
		m.currentView = ViewDashboard
		return m, m.mutate(func(ctx context.Context) error {
			_, err := m.session.Routines.InitializeRoutines(ctx, []model.Routine{msg.Routine})
			return err
		})

	case addform.EventSubmittedMsg:
		m.currentView = ViewDashboard
		return m, m.mutate(func(ctx context.Context) error {
			_, err := m.session.Planner.AddEvent(ctx, msg.Event)
			return err
		})

	case addform.CancelMsg:
		m.currentView = ViewDashboard
		return m, nil

	case chatview.CloseMsg:
		m.currentView = ViewDashboard
		m.refreshDashboard()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.currentView == ViewDashboard {
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewChat || m.currentView == ViewForm {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case "c":
			if m.currentView == ViewDashboard {
				m.previousView = m.currentView
				m.currentView = ViewChat
				return m, m.chatView.Init()
			}

		case "s":
			if m.currentView == ViewDashboard {
				m.previousView = m.currentView
				m.currentView = ViewSettings
				return m, m.settingsView.Init()
			}

		case "i":
			if m.currentView == ViewDashboard {
				m.previousView = m.currentView
				m.currentView = ViewInsights
				return m, m.insightsView.Open(
					m.session.Skills.Records(),
					m.session.Goals.Records(),
				)
			}

		case "r":
			if m.currentView == ViewDashboard {
				return m, tea.Batch(m.openSession(), m.fetchQuote())
			}

		case "esc":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
		}
	}

	return m.updateActiveView(msg)
}

// mutate runs a collection mutation and triggers a dashboard refresh.
// Mutation errors are already logged and rolled back inside the stores.
func (m Model) mutate(fn func(context.Context) error) tea.Cmd {
	logger := m.logger
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			logger.Warn("mutation rejected", zap.Error(err))
		}
		return profileChangedMsg{}
	}
}

func (m *Model) refreshDashboard() {
	m.dashboard.SetData(
		m.session.Goals.Records(),
		m.session.Skills.Records(),
		m.session.Routines.Records(),
		m.session.Planner.EventsOn(model.Today()),
	)
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewChat:
		m.chatView, cmd = m.chatView.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewGoal:
		m.goalView, cmd = m.goalView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	case ViewInsights:
		m.insightsView, cmd = m.insightsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}
	return m, cmd
}

// refreshGoalView pushes the current copy of the open goal into the detail
// view, closing it when the goal was deleted.
func (m *Model) refreshGoalView() {
	goal, ok := m.session.Goals.Find(func(g model.Goal) bool { return g.ID == m.goalView.Goal() })
	if !ok {
		m.currentView = ViewDashboard
		return
	}
	m.goalView.SetGoal(*goal)
}

// View renders the full terminal UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("EvolvEdge", m.syncStatus())
	var content string
	switch m.currentView {
	case ViewDashboard:
		content = m.dashboard.View()
	case ViewChat:
		content = m.chatView.View()
	case ViewForm:
		content = m.formView.View()
	case ViewGoal:
		content = m.goalView.View()
	case ViewSettings:
		content = m.settingsView.View()
	case ViewInsights:
		content = m.insightsView.View()
	case ViewHelp:
		content = m.helpView.View()
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// syncStatus summarizes the backing state of the collections for the header.
func (m Model) syncStatus() string {
	if !m.loaded {
		return "loading"
	}
	degraded := 0
	for _, state := range []syncstore.State{
		m.session.Goals.State(),
		m.session.Skills.State(),
		m.session.Routines.State(),
		m.session.Planner.State(),
		m.session.Chat.State(),
	} {
		if state == syncstore.StateFallback {
			degraded++
		}
	}
	if degraded > 0 {
		return fmt.Sprintf("local only (%d collections)", degraded)
	}
	return "synced"
}

func (m Model) keyHints() string {
	switch m.currentView {
	case ViewChat:
		return "enter send | ctrl+n new chat | ctrl+h history | esc back"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewGoal:
		return "j/k move | enter toggle | a add task | esc back"
	case ViewSettings:
		return "j/k move | enter select | esc back"
	case ViewInsights:
		return "tab section | j/k scroll | enter ask | esc back"
	case ViewHelp:
		return "? close help | esc back"
	default:
		return "tab panel | j/k move | enter toggle | o open goal | a add | x delete | c chat | i insights | s settings | r refresh | ? help | q quit"
	}
}
