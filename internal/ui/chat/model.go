// Package chat is the assistant conversation view: a message viewport, an
// input box, and a conversation history overlay.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	aiservice "github.com/evolvedge/evolvedge/internal/ai"
	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
	syncstore "github.com/evolvedge/evolvedge/internal/sync"
	"github.com/evolvedge/evolvedge/internal/theme"
)

// CloseMsg signals the parent to leave the chat view.
type CloseMsg struct{}

// ProfileChangedMsg tells the parent the assistant may have mutated the
// profile collections, so dashboard snapshots need refreshing.
type ProfileChangedMsg struct{}

type conversationReadyMsg struct {
	conv     model.ChatConversation
	messages []model.ChatMessage
}

type replyMsg struct {
	reply model.ChatMessage
}

func greeting() model.ChatMessage {
	return model.ChatMessage{
		ID:     "greeting",
		Text:   aiservice.GreetingMessage,
		Sender: model.SenderAI,
	}
}

// Model is the chat view Bubble Tea model.
type Model struct {
	assistant *aiservice.Assistant
	chat      *syncstore.Chat

	input    textarea.Model
	viewport viewport.Model
	messages []model.ChatMessage
	conv     model.ChatConversation

	showHistory   bool
	historyCursor int

	sending bool
	keys    *keys.KeyMap
	width   int
	height  int
}

// New creates the chat view.
func New(assistant *aiservice.Assistant, chat *syncstore.Chat, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask me anything..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	vpHeight := height - 8
	if vpHeight < 4 {
		vpHeight = 4
	}
	vp := viewport.New(width-4, vpHeight)

	return Model{
		assistant: assistant,
		chat:      chat,
		input:     ta,
		viewport:  vp,
		keys:      k,
		width:     width,
		height:    height,
	}
}

// Init opens the most recent conversation, creating one when the history
// is empty.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.openLatest())
}

func (m Model) openLatest() tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		convs := chat.Records()
		if len(convs) == 0 {
			conv, err := chat.NewConversation(context.Background())
			if err != nil || conv == nil {
				return conversationReadyMsg{conv: model.ChatConversation{ID: "local", Title: "New Chat"}}
			}
			return conversationReadyMsg{conv: *conv}
		}
		conv := convs[0]
		msgs, _ := chat.LoadMessages(context.Background(), conv.ID)
		return conversationReadyMsg{conv: conv, messages: msgs}
	}
}

func (m Model) openConversation(conv model.ChatConversation) tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		msgs, _ := chat.LoadMessages(context.Background(), conv.ID)
		return conversationReadyMsg{conv: conv, messages: msgs}
	}
}

func (m Model) newConversation() tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		conv, err := chat.NewConversation(context.Background())
		if err != nil || conv == nil {
			return conversationReadyMsg{conv: model.ChatConversation{ID: "local", Title: "New Chat"}}
		}
		return conversationReadyMsg{conv: *conv}
	}
}

func (m Model) send(text string) tea.Cmd {
	assistant := m.assistant
	convID := m.conv.ID
	isFirst := len(m.messages) <= 1
	return func() tea.Msg {
		reply := assistant.Send(context.Background(), convID, isFirst, text)
		return replyMsg{reply: reply}
	}
}

// Update handles messages for the chat view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case conversationReadyMsg:
		m.conv = msg.conv
		m.messages = append([]model.ChatMessage{greeting()}, msg.messages...)
		m.sending = false
		m.assistant.StartConversation()
		m.refreshViewport()
		return m, nil

	case replyMsg:
		m.sending = false
		m.messages = append(m.messages, msg.reply)
		m.refreshViewport()
		// The assistant may have executed profile actions.
		return m, func() tea.Msg { return ProfileChangedMsg{} }

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showHistory {
		return m.handleHistoryKey(msg)
	}

	switch msg.String() {
	case "esc":
		if m.sending {
			return m, nil
		}
		return m, func() tea.Msg { return CloseMsg{} }

	case "ctrl+n":
		if m.sending {
			return m, nil
		}
		return m, m.newConversation()

	case "ctrl+h":
		m.showHistory = true
		m.historyCursor = 0
		return m, nil

	case "enter":
		if m.sending {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.messages = append(m.messages, model.ChatMessage{
			Text:   text,
			Sender: model.SenderUser,
		})
		if len(m.messages) == 2 {
			m.conv.Title = model.DeriveTitle(text)
		}
		m.sending = true
		m.refreshViewport()
		return m, m.send(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	convs := m.chat.Records()
	switch msg.String() {
	case "esc", "ctrl+h":
		m.showHistory = false
	case "j", "down":
		if m.historyCursor < len(convs)-1 {
			m.historyCursor++
		}
	case "k", "up":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case "enter":
		if m.historyCursor < len(convs) {
			m.showHistory = false
			return m, m.openConversation(convs[m.historyCursor])
		}
	case "x":
		if m.historyCursor < len(convs) {
			id := convs[m.historyCursor].ID
			chat := m.chat
			deleted := id == m.conv.ID
			return m, func() tea.Msg {
				_ = chat.DeleteConversation(context.Background(), id)
				if deleted {
					return conversationReadyMsg{conv: model.ChatConversation{ID: "local", Title: "New Chat"}}
				}
				return nil
			}
		}
	}
	return m, nil
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	roleStyle := lipgloss.NewStyle().Bold(true)
	userStyle := roleStyle.Foreground(theme.ColorBlue)
	aiStyle := roleStyle.Foreground(theme.ColorGreen)
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	var sections []string
	for _, msg := range m.messages {
		switch msg.Sender {
		case model.SenderUser:
			sections = append(sections, userStyle.Render("You:"))
		default:
			sections = append(sections, aiStyle.Render("EvolvEdge AI:"))
		}
		if msg.Error {
			sections = append(sections, theme.ErrorStyle.Render(msg.Text))
		} else {
			sections = append(sections, contentStyle.Render(msg.Text))
		}
		sections = append(sections, "")
	}

	if m.sending {
		sections = append(sections, theme.HelpStyle.Render("..."))
	}

	return strings.Join(sections, "\n")
}

// View renders the chat view.
func (m Model) View() string {
	if m.showHistory {
		return m.renderHistory()
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render(m.conv.Title)

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", min(m.width-6, 80)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

func (m Model) renderHistory() string {
	convs := m.chat.Records()

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Chat History")

	var lines []string
	if len(convs) == 0 {
		lines = append(lines, theme.HelpStyle.Render("Your chat history is empty."))
	}
	for i, conv := range convs {
		line := fmt.Sprintf("%s  %s", conv.Title, theme.HelpStyle.Render(conv.Timestamp.Format("2006-01-02 15:04")))
		if i == m.historyCursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}
	lines = append(lines, "", theme.HelpStyle.Render("enter open · x delete · esc close"))

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, lines...)...)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the chat view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)

	vpHeight := height - 8
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Width = width - 4
	m.viewport.Height = vpHeight
}
