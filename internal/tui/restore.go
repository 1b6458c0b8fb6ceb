package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/backup"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/config"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

type RestoreModel struct {
	state           RestoreState
	conn            *config.DatabaseConfig
	backupFileInput textinput.Model
	dbNameInput     textinput.Model
	containerInput  textinput.Model
	focusedInput    int
	format          string
	dropExisting    bool
	spinner         spinner.Model
	result          RestoreResult
	files           []string
	selectedFile    int
	width           int
	height          int
}

type RestoreState int

const (
	RestoreInputState RestoreState = iota
	RestoreFileSelectState
	ConfirmationState
	RestoreProgressState
	RestoreResultState
)

type RestoreResult struct {
	DocumentCount int
	Error         error
}

type RestoreCompleteMsg struct {
	Result RestoreResult
}

func NewRestoreModel(conn *config.DatabaseConfig) *RestoreModel {
	backupFileInput := textinput.New()
	backupFileInput.Placeholder = "backups/backup_SampleContainer_20240101_120000.bson"
	backupFileInput.Focus()

	dbNameInput := textinput.New()
	dbNameInput.Placeholder = "SampleDatabase"
	dbNameInput.SetValue(conn.Name)

	containerInput := textinput.New()
	containerInput.Placeholder = "taken from the file name"

	return &RestoreModel{
		state:           RestoreInputState,
		conn:            conn,
		backupFileInput: backupFileInput,
		dbNameInput:     dbNameInput,
		containerInput:  containerInput,
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m *RestoreModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *RestoreModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *RestoreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case RestoreInputState:
			return m.updateInputState(msg)
		case RestoreFileSelectState:
			return m.updateFileSelectState(msg)
		case ConfirmationState:
			return m.updateConfirmationState(msg)
		case RestoreProgressState:
			return m, nil
		case RestoreResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		if m.state != RestoreProgressState {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RestoreCompleteMsg:
		m.result = msg.Result
		m.state = RestoreResultState
		return m, nil
	}

	return m, nil
}

func (m *RestoreModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
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
	case "ctrl+f":
		return m.browseFiles()
	case "enter":
		if err := m.prepare(); err != nil {
			return m, ShowError(err)
		}
		m.state = ConfirmationState
		return m, nil
	}

	switch m.focusedInput {
	case 0:
		m.backupFileInput, cmd = m.backupFileInput.Update(msg)
	case 1:
		m.dbNameInput, cmd = m.dbNameInput.Update(msg)
	case 2:
		m.containerInput, cmd = m.containerInput.Update(msg)
	}

	return m, cmd
}

// prepare validates the backup file and fills in the format and, when
// left empty, the target container.
func (m *RestoreModel) prepare() error {
	file := strings.TrimSpace(m.backupFileInput.Value())
	if file == "" {
		return fmt.Errorf("backup file is required")
	}
	if strings.TrimSpace(m.dbNameInput.Value()) == "" {
		return fmt.Errorf("database name is required")
	}
	format, err := backup.DetectFormat(file)
	if err != nil {
		return err
	}
	if err := backup.ValidateBackupFile(file, format); err != nil {
		return err
	}
	if strings.TrimSpace(m.containerInput.Value()) == "" {
		name := backup.ContainerFromFilename(file)
		if name == "" {
			return fmt.Errorf("cannot determine target container from %s", filepath.Base(file))
		}
		m.containerInput.SetValue(name)
	}
	m.format = format
	return nil
}

func (m *RestoreModel) updateFileSelectState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedFile > 0 {
			m.selectedFile--
		}
	case "down", "j":
		if m.selectedFile < len(m.files)-1 {
			m.selectedFile++
		}
	case "enter":
		if len(m.files) > 0 {
			m.backupFileInput.SetValue(m.files[m.selectedFile])
			m.state = RestoreInputState
		}
	case "esc":
		m.state = RestoreInputState
	}
	return m, nil
}

func (m *RestoreModel) updateConfirmationState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "d":
		m.dropExisting = !m.dropExisting
	case "y", "enter":
		return m.startRestore()
	case "n", "esc":
		m.state = RestoreInputState
	}
	return m, nil
}

func (m *RestoreModel) browseFiles() (tea.Model, tea.Cmd) {
	cwd, _ := os.Getwd()
	var files []string
	for _, dir := range []string{cwd, filepath.Join(cwd, "backups")} {
		for _, pattern := range []string{"*.json", "*.bson"} {
			matches, _ := filepath.Glob(filepath.Join(dir, pattern))
			files = append(files, matches...)
		}
	}

	for i, file := range files {
		if rel, err := filepath.Rel(cwd, file); err == nil {
			files[i] = rel
		}
	}

	m.files = files
	m.selectedFile = 0
	m.state = RestoreFileSelectState
	return m, nil
}

func (m *RestoreModel) updateInputFocus() {
	inputs := []*textinput.Model{&m.backupFileInput, &m.dbNameInput, &m.containerInput}
	for i, input := range inputs {
		if i == m.focusedInput {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m *RestoreModel) startRestore() (tea.Model, tea.Cmd) {
	m.state = RestoreProgressState

	opts := m.conn.Options()
	opts.Database = strings.TrimSpace(m.dbNameInput.Value())
	opts.Container = strings.TrimSpace(m.containerInput.Value())
	file := strings.TrimSpace(m.backupFileInput.Value())

	return m, tea.Batch(m.spinner.Tick, performRestore(opts, file, m.format, m.dropExisting))
}

func performRestore(opts database.Options, file, format string, drop bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		result := RestoreResult{}

		store, err := database.Open(ctx, opts)
		if err != nil {
			result.Error = fmt.Errorf("failed to connect: %w", err)
			return RestoreCompleteMsg{Result: result}
		}
		defer store.Close(context.Background())

		svc := backup.NewService(store, opts.Container)
		result.DocumentCount, result.Error = svc.RestoreContainer(ctx, file, format, drop)
		return RestoreCompleteMsg{Result: result}
	}
}

func (m *RestoreModel) reset() {
	m.state = RestoreInputState
	m.result = RestoreResult{}
	m.dropExisting = false
	m.updateInputFocus()
}

func (m *RestoreModel) View() string {
	switch m.state {
	case RestoreInputState:
		return m.renderInputForm()
	case RestoreFileSelectState:
		return m.renderFileSelector()
	case ConfirmationState:
		return m.renderConfirmation()
	case RestoreProgressState:
		return m.renderProgress()
	case RestoreResultState:
		return m.renderResult()
	}
	return ""
}

func (m *RestoreModel) renderInputForm() string {
	title := titleStyle.Render("🔄 Restore Container")

	form := formStyle.Render(
		labelStyle.Render("Backup File:") + "\n" + m.backupFileInput.View() + "\n\n" +
			labelStyle.Render("Database:") + "\n" + m.dbNameInput.View() + "\n\n" +
			labelStyle.Render("Container:") + "\n" + m.containerInput.View(),
	)

	help := helpStyle.Render("Tab/Shift+Tab: Navigate • Ctrl+F: Browse files • Enter: Continue • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, form, help)
}

func (m *RestoreModel) renderFileSelector() string {
	title := titleStyle.Render("📁 Select Backup File")

	if len(m.files) == 0 {
		content := warningStyle.Render("No backup files (*.json, *.bson) found in . or ./backups")
		help := helpStyle.Render("Esc: Back to form")
		return lipgloss.JoinVertical(lipgloss.Left, title, content, help)
	}

	var fileList string
	for i, file := range m.files {
		cursor := " "
		style := menuItemStyle
		if i == m.selectedFile {
			cursor = ">"
			style = selectedMenuItemStyle
		}
		fileList += fmt.Sprintf("%s %s\n", cursor, style.Render(file))
	}

	help := helpStyle.Render("↑/↓: Navigate • Enter: Select • Esc: Cancel")

	return lipgloss.JoinVertical(lipgloss.Left, title, fileList, help)
}

func (m *RestoreModel) renderConfirmation() string {
	title := titleStyle.Render("⚠️  Confirm Restore Operation")

	warningText := warningStyle.Render("This operation will restore documents into the container below.")

	dropText := "Drop existing container: "
	if m.dropExisting {
		dropText += successStyle.Render("✓ YES")
	} else {
		dropText += errorStyle.Render("✗ NO")
	}

	details := fmt.Sprintf(
		"📋 Restore Details:\n"+
			"   File: %s\n"+
			"   Format: %s\n"+
			"   Database: %s\n"+
			"   Container: %s\n"+
			"   %s",
		m.backupFileInput.Value(),
		m.format,
		m.dbNameInput.Value(),
		m.containerInput.Value(),
		dropText,
	)

	help := helpStyle.Render("D: Toggle drop existing • Y/Enter: Confirm • N/Esc: Cancel")

	return lipgloss.JoinVertical(lipgloss.Left, title, warningText, details, help)
}

func (m *RestoreModel) renderProgress() string {
	title := titleStyle.Render("🔄 Restoring Data...")
	content := progressStyle.Render(m.spinner.View() + " Importing into " + m.containerInput.Value())
	help := helpStyle.Render("Please wait while data is being restored...")

	return lipgloss.JoinVertical(lipgloss.Left, title, content, help)
}

func (m *RestoreModel) renderResult() string {
	title := titleStyle.Render("🔄 Restore Complete")

	var status string
	if m.result.Error != nil {
		status = errorStyle.Render(fmt.Sprintf("❌ Restore failed: %v", m.result.Error))
	} else {
		status = successStyle.Render("✅ Restore completed successfully!")
	}

	stats := fmt.Sprintf(
		"📊 Restore Information:\n"+
			"   Source file: %s\n"+
			"   Format: %s\n"+
			"   Documents: %d",
		m.backupFileInput.Value(),
		m.format,
		m.result.DocumentCount,
	)

	help := helpStyle.Render("Enter: Restore another file • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, status, stats, help)
}
