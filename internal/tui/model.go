package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/config"
)

type Screen int

const (
	MenuScreen Screen = iota
	WorkloadScreen
	BackupScreen
	RestoreScreen
)

type Model struct {
	currentScreen Screen
	menuModel     *MenuModel
	workloadModel *WorkloadModel
	backupModel   *BackupModel
	restoreModel  *RestoreModel
	err           error
	quitting      bool
	width         int
	height        int
}

// NewModel builds the TUI around a shared connection. Settings edited on
// the workload screen are used by the backup and restore screens too.
func NewModel(cfg *config.Config) Model {
	conn := cfg.Database
	wl := cfg.Workload
	return Model{
		currentScreen: MenuScreen,
		menuModel:     NewMenuModel(),
		workloadModel: NewWorkloadModel(&conn, wl),
		backupModel:   NewBackupModel(&conn),
		restoreModel:  NewRestoreModel(&conn),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menuModel.SetSize(msg.Width, msg.Height)
		m.workloadModel.SetSize(msg.Width, msg.Height)
		m.backupModel.SetSize(msg.Width, msg.Height)
		m.restoreModel.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "q":
			// text inputs need the key everywhere else
			if m.currentScreen == MenuScreen {
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			if m.currentScreen != MenuScreen && m.atTopLevel() {
				m.currentScreen = MenuScreen
				m.err = nil
				return m, nil
			}
		}

	case ScreenChangeMsg:
		m.currentScreen = msg.Screen
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	switch m.currentScreen {
	case MenuScreen:
		newMenuModel, cmd := m.menuModel.Update(msg)
		m.menuModel = newMenuModel.(*MenuModel)
		return m, cmd
	case WorkloadScreen:
		newWorkloadModel, cmd := m.workloadModel.Update(msg)
		m.workloadModel = newWorkloadModel.(*WorkloadModel)
		return m, cmd
	case BackupScreen:
		newBackupModel, cmd := m.backupModel.Update(msg)
		m.backupModel = newBackupModel.(*BackupModel)
		return m, cmd
	case RestoreScreen:
		newRestoreModel, cmd := m.restoreModel.Update(msg)
		m.restoreModel = newRestoreModel.(*RestoreModel)
		return m, cmd
	}

	return m, cmd
}

// atTopLevel reports whether esc should leave the current screen rather
// than close one of its selectors.
func (m Model) atTopLevel() bool {
	switch m.currentScreen {
	case WorkloadScreen:
		return m.workloadModel.state != WorkloadProgressState
	case BackupScreen:
		return m.backupModel.state == BackupInputState || m.backupModel.state == BackupResultState
	case RestoreScreen:
		return m.restoreModel.state == RestoreInputState || m.restoreModel.state == RestoreResultState
	}
	return true
}

func (m Model) View() string {
	if m.quitting {
		return "Thanks for using emulatorctl! 👋\n"
	}

	var content string
	switch m.currentScreen {
	case MenuScreen:
		content = m.menuModel.View()
	case WorkloadScreen:
		content = m.workloadModel.View()
	case BackupScreen:
		content = m.backupModel.View()
	case RestoreScreen:
		content = m.restoreModel.View()
	}

	if m.err != nil {
		content += errorStyle.Margin(1, 0).Render(fmt.Sprintf("Error: %v", m.err))
	}

	return content
}

type ScreenChangeMsg struct {
	Screen Screen
}

type ErrorMsg struct {
	Err error
}

func ChangeScreen(screen Screen) tea.Cmd {
	return func() tea.Msg {
		return ScreenChangeMsg{Screen: screen}
	}
}

func ShowError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}
