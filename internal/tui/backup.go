package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/backup"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/config"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

type BackupModel struct {
	state           BackupState
	conn            *config.DatabaseConfig
	dbNameInput     textinput.Model
	containerInput  textinput.Model
	outputDirInput  textinput.Model
	focusedInput    int
	formatSelection int
	formats         []string
	spinner         spinner.Model
	result          BackupResult
	width           int
	height          int
}

type BackupState int

const (
	BackupInputState BackupState = iota
	BackupFormatSelectState
	BackupProgressState
	BackupResultState
)

type BackupResult struct {
	DocumentCount int
	FilePath      string
	Error         error
}

type BackupCompleteMsg struct {
	Result BackupResult
}

func NewBackupModel(conn *config.DatabaseConfig) *BackupModel {
	dbNameInput := textinput.New()
	dbNameInput.Placeholder = "SampleDatabase"
	dbNameInput.SetValue(conn.Name)
	dbNameInput.Focus()

	containerInput := textinput.New()
	containerInput.Placeholder = "SampleContainer"
	containerInput.SetValue(conn.Container)

	outputDirInput := textinput.New()
	outputDirInput.Placeholder = "./backups"
	outputDirInput.SetValue("./backups")

	return &BackupModel{
		state:          BackupInputState,
		conn:           conn,
		dbNameInput:    dbNameInput,
		containerInput: containerInput,
		outputDirInput: outputDirInput,
		formats:        []string{"JSON", "BSON"},
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m *BackupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *BackupModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *BackupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case BackupInputState:
			return m.updateInputState(msg)
		case BackupFormatSelectState:
			return m.updateFormatSelectState(msg)
		case BackupProgressState:
			return m, nil
		case BackupResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		if m.state != BackupProgressState {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case BackupCompleteMsg:
		m.result = msg.Result
		m.state = BackupResultState
		return m, nil
	}

	return m, nil
}

func (m *BackupModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "tab", "down":
		m.focusedInput = (m.focusedInput + 1) % 3
		m.updateInputFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusedInput = (m.focusedInput - 1 + 3) % 3
		m.updateInputFocus()
		return m, nil
	case "enter":
		if m.isFormValid() {
			m.state = BackupFormatSelectState
		}
		return m, nil
	}

	switch m.focusedInput {
	case 0:
		m.dbNameInput, cmd = m.dbNameInput.Update(msg)
	case 1:
		m.containerInput, cmd = m.containerInput.Update(msg)
	case 2:
		m.outputDirInput, cmd = m.outputDirInput.Update(msg)
	}

	return m, cmd
}

func (m *BackupModel) updateFormatSelectState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.formatSelection > 0 {
			m.formatSelection--
		}
	case "down", "j":
		if m.formatSelection < len(m.formats)-1 {
			m.formatSelection++
		}
	case "enter":
		return m.startBackup()
	case "esc":
		m.state = BackupInputState
	}
	return m, nil
}

func (m *BackupModel) updateInputFocus() {
	inputs := []*textinput.Model{&m.dbNameInput, &m.containerInput, &m.outputDirInput}
	for i, input := range inputs {
		if i == m.focusedInput {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m *BackupModel) isFormValid() bool {
	return strings.TrimSpace(m.dbNameInput.Value()) != "" &&
		strings.TrimSpace(m.containerInput.Value()) != "" &&
		strings.TrimSpace(m.outputDirInput.Value()) != ""
}

func (m *BackupModel) format() string {
	return strings.ToLower(m.formats[m.formatSelection])
}

func (m *BackupModel) startBackup() (tea.Model, tea.Cmd) {
	m.state = BackupProgressState

	opts := m.conn.Options()
	opts.Database = strings.TrimSpace(m.dbNameInput.Value())
	opts.Container = strings.TrimSpace(m.containerInput.Value())
	outputDir := strings.TrimSpace(m.outputDirInput.Value())

	return m, tea.Batch(m.spinner.Tick, performBackup(opts, outputDir, m.format()))
}

func performBackup(opts database.Options, outputDir, format string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		result := BackupResult{}

		store, err := database.Open(ctx, opts)
		if err != nil {
			result.Error = fmt.Errorf("failed to connect: %w", err)
			return BackupCompleteMsg{Result: result}
		}
		defer store.Close(context.Background())

		svc := backup.NewService(store, opts.Container)
		result.FilePath, result.DocumentCount, result.Error = svc.BackupContainer(ctx, outputDir, format)
		return BackupCompleteMsg{Result: result}
	}
}

func (m *BackupModel) reset() {
	m.state = BackupInputState
	m.result = BackupResult{}
	m.updateInputFocus()
}

func (m *BackupModel) View() string {
	switch m.state {
	case BackupInputState:
		return m.renderInputForm()
	case BackupFormatSelectState:
		return m.renderFormatSelector()
	case BackupProgressState:
		return m.renderProgress()
	case BackupResultState:
		return m.renderResult()
	}
	return ""
}

func (m *BackupModel) renderInputForm() string {
	title := titleStyle.Render("💾 Backup Container")

	form := formStyle.Render(
		labelStyle.Render("API:") + " " + m.conn.API + "\n\n" +
			labelStyle.Render("Database:") + "\n" + m.dbNameInput.View() + "\n\n" +
			labelStyle.Render("Container:") + "\n" + m.containerInput.View() + "\n\n" +
			labelStyle.Render("Output Directory:") + "\n" + m.outputDirInput.View(),
	)

	help := helpStyle.Render("Tab/Shift+Tab: Navigate • Enter: Continue • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, form, help)
}

func (m *BackupModel) renderFormatSelector() string {
	title := titleStyle.Render("📄 Select Backup Format")

	var formatList string
	for i, format := range m.formats {
		cursor := " "
		style := menuItemStyle
		if i == m.formatSelection {
			cursor = ">"
			style = selectedMenuItemStyle
		}
		formatList += fmt.Sprintf("%s %s\n", cursor, style.Render(format))
	}

	help := helpStyle.Render("↑/↓: Navigate • Enter: Start backup • Esc: Back")

	return lipgloss.JoinVertical(lipgloss.Left, title, formatList, help)
}

func (m *BackupModel) renderProgress() string {
	title := titleStyle.Render("💾 Creating Backup...")
	content := progressStyle.Render(m.spinner.View() + " Exporting " + strings.TrimSpace(m.containerInput.Value()))
	help := helpStyle.Render("Please wait while backup is being created...")

	return lipgloss.JoinVertical(lipgloss.Left, title, content, help)
}

func (m *BackupModel) renderResult() string {
	title := titleStyle.Render("💾 Backup Complete")

	var status string
	if m.result.Error != nil {
		status = errorStyle.Render(fmt.Sprintf("❌ Backup failed: %v", m.result.Error))
	} else {
		status = successStyle.Render("✅ Backup completed successfully!")
	}

	stats := fmt.Sprintf(
		"📊 Backup Information:\n"+
			"   Output file: %s\n"+
			"   Format: %s\n"+
			"   Documents: %d",
		m.result.FilePath,
		m.formats[m.formatSelection],
		m.result.DocumentCount,
	)

	help := helpStyle.Render("Enter: Create another backup • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, status, stats, help)
}
