// Package settings edits the application configuration and manages the
// Gemini API key in the system keyring.
package settings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/evolvedge/evolvedge/internal/ai"
	"github.com/evolvedge/evolvedge/internal/credential"
	"github.com/evolvedge/evolvedge/internal/keys"
	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeMenu       Mode = iota // Top-level menu
	ModeForm                   // Configuration form
	ModeKey                    // Gemini API key entry
	ModeValidating             // Testing the entered key
	ModeResult                 // Show validation result
)

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg signals the configuration was written to disk. Backend changes
// take effect on the next start.
type SavedMsg struct {
	Config *model.AppConfig
}

// keyTestedMsg carries the result of a Gemini key validation attempt.
type keyTestedMsg struct {
	err error
}

// configSavedMsg is sent after the config file is written.
type configSavedMsg struct {
	cfg *model.AppConfig
	err error
}

const menuEntries = 3

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode       Mode
	cfg        *model.AppConfig
	configPath string

	menuIdx int

	form    *huh.Form
	keyForm *huh.Form

	// Form field values (huh binds to these)
	formName      string
	formMode      string
	formURL       string
	formModel     string
	formMaxTokens string
	formTheme     string
	formAPIKey    string

	spinner   spinner.Model
	resultErr error
	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates the settings view model.
func New(cfg *model.AppConfig, configPath string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:       ModeMenu,
		cfg:        cfg,
		configPath: configPath,
		keys:       k,
		spinner:    sp,
		width:      width,
		height:     height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			m.mode = ModeMenu
			return m, nil
		}
		m.cfg = msg.cfg
		m.statusMsg = "Settings saved. Backend changes apply on restart."
		m.mode = ModeMenu
		return m, func() tea.Msg { return SavedMsg{Config: msg.cfg} }

	case keyTestedMsg:
		m.resultErr = msg.err
		m.mode = ModeResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeMenu:
		return m.handleMenuKeys(msg)
	case ModeForm:
		return m.updateForm(msg)
	case ModeKey:
		return m.updateKeyForm(msg)
	case ModeResult:
		if msg.String() == "enter" || msg.String() == "esc" {
			m.mode = ModeMenu
			m.resultErr = nil
		}
		return m, nil
	case ModeValidating:
		// Only allow escape while testing
		if msg.String() == "esc" {
			m.mode = ModeMenu
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleMenuKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case key.Matches(msg, m.keys.Down):
		m.menuIdx = (m.menuIdx + 1) % menuEntries
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.menuIdx = (m.menuIdx + menuEntries - 1) % menuEntries
		return m, nil

	case key.Matches(msg, m.keys.Select):
		switch m.menuIdx {
		case 0:
			m.mode = ModeForm
			m.form = m.buildForm()
			return m, m.form.Init()
		case 1:
			m.formAPIKey = ""
			m.mode = ModeKey
			m.keyForm = m.buildKeyForm()
			return m, m.keyForm.Init()
		case 2:
			if err := credential.Delete(credential.KeyGeminiAPIKey); err != nil {
				m.statusMsg = fmt.Sprintf("Error removing key: %v", err)
			} else {
				m.statusMsg = "Gemini API key removed. The assistant runs offline until a new key is set."
			}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeForm:
		return m.updateForm(msg)
	case ModeKey:
		return m.updateKeyForm(msg)
	}
	return m, nil
}

// --- Configuration form ---

func (m *Model) buildForm() *huh.Form {
	m.formName = m.cfg.Profile.Name
	m.formMode = m.cfg.Backend.Mode
	m.formURL = m.cfg.Backend.URL
	m.formModel = m.cfg.AI.Model
	m.formMaxTokens = strconv.Itoa(m.cfg.AI.MaxTokens)
	m.formTheme = m.cfg.Display.Theme

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Display Name").
				Description("Shown on the profile header").
				Placeholder("Your name").
				Value(&m.formName),
			huh.NewSelect[string]().
				Title("Backend").
				Description("Where your profile data lives").
				Options(
					huh.NewOption("Local SQLite database", model.BackendModeLocal),
					huh.NewOption("Hosted REST backend", model.BackendModeRest),
				).
				Value(&m.formMode),
			huh.NewInput().
				Title("Backend URL").
				Description("Required for the hosted backend").
				Placeholder("https://backend.example.com").
				Value(&m.formURL),
			huh.NewInput().
				Title("AI Model").
				Description("Gemini model used by the assistant").
				Placeholder("gemini-2.5-flash").
				Value(&m.formModel).
				Validate(validateRequired("Model")),
			huh.NewInput().
				Title("Max Output Tokens").
				Description("Upper bound per assistant reply").
				Placeholder("1024").
				Value(&m.formMaxTokens).
				Validate(validateNumber),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Default", "default"),
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).
				Value(&m.formTheme),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.saveConfig()
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeMenu
		return m, nil
	}

	return m, cmd
}

func (m Model) saveConfig() (Model, tea.Cmd) {
	next := *m.cfg
	next.Profile.Name = strings.TrimSpace(m.formName)
	next.Backend.Mode = m.formMode
	next.Backend.URL = strings.TrimSpace(m.formURL)
	next.AI.Model = strings.TrimSpace(m.formModel)
	next.Display.Theme = m.formTheme
	if tokens, err := strconv.Atoi(strings.TrimSpace(m.formMaxTokens)); err == nil {
		next.AI.MaxTokens = tokens
	}

	if next.Backend.Mode == model.BackendModeRest {
		if err := validateURL(next.Backend.URL); err != nil {
			m.statusMsg = fmt.Sprintf("Not saved: %v", err)
			m.mode = ModeMenu
			return m, nil
		}
	}

	path := m.configPath
	return m, func() tea.Msg {
		err := model.SaveConfig(path, &next)
		return configSavedMsg{cfg: &next, err: err}
	}
}

// --- API key form ---

func (m *Model) buildKeyForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Stored in the system keyring, tested before saving").
				EchoMode(huh.EchoModePassword).
				Value(&m.formAPIKey).
				Validate(validateRequired("API key")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateKeyForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.keyForm == nil {
		return m, nil
	}

	mdl, cmd := m.keyForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.keyForm = f
	}

	if m.keyForm.State == huh.StateCompleted {
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.testAndStoreKey())
	}
	if m.keyForm.State == huh.StateAborted {
		m.mode = ModeMenu
		return m, nil
	}

	return m, cmd
}

// testAndStoreKey pings the API with the entered key and stores it in the
// keyring only when the ping succeeds.
func (m Model) testAndStoreKey() tea.Cmd {
	apiKey := strings.TrimSpace(m.formAPIKey)
	modelName := m.cfg.AI.Model
	return func() tea.Msg {
		client, err := ai.NewClient(apiKey, modelName, 0)
		if err != nil {
			return keyTestedMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := client.GenerateText(ctx, "", "Reply with OK.", &ai.GenerationConfig{
			MaxOutputTokens: 10,
			ThinkingConfig:  &ai.ThinkingConfig{ThinkingBudget: 0},
		}); err != nil {
			return keyTestedMsg{err: err}
		}

		return keyTestedMsg{err: credential.Set(credential.KeyGeminiAPIKey, apiKey)}
	}
}

// --- View ---

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeMenu:
		return m.viewMenu()
	case ModeForm:
		return m.viewForm(m.form)
	case ModeKey:
		return m.viewForm(m.keyForm)
	case ModeValidating:
		return m.frame(fmt.Sprintf("%s Testing API key...\n\nPress esc to cancel.", m.spinner.View()))
	case ModeResult:
		return m.viewResult()
	default:
		return ""
	}
}

func (m Model) viewMenu() string {
	var b strings.Builder

	b.WriteString(theme.PanelTitleStyle.Render("Settings"))
	b.WriteString("\n\n")

	entries := []string{
		"Edit configuration",
		"Set Gemini API key",
		"Remove Gemini API key",
	}
	for i, entry := range entries {
		if i == m.menuIdx {
			b.WriteString(theme.SelectedItemStyle.Render(entry))
		} else {
			b.WriteString(theme.ListItemStyle.Render(entry))
		}
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("j/k move | enter select | esc back"))

	return m.frame(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return m.frame(f.View())
}

func (m Model) viewResult() string {
	var content string
	if m.resultErr != nil {
		content = theme.ErrorStyle.Render("API key test failed") + "\n\n" +
			m.resultErr.Error() + "\n\n" +
			theme.HelpStyle.Render("enter/esc back")
	} else {
		content = theme.PanelTitleStyle.Render("API key saved") + "\n\n" +
			"The assistant will use it on the next conversation." + "\n\n" +
			theme.HelpStyle.Render("enter/esc back")
	}
	return m.frame(content)
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
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

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateNumber(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("must be a number")
	}
	return nil
}

func validateURL(s string) error {
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend URL must include scheme and host")
	}
	return nil
}
