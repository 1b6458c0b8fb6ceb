package tui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/config"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/workload"
)

const (
	apiField = iota
	endpointField
	keyField
	databaseField
	containerField
	countField
	workloadFieldCount
)

type WorkloadModel struct {
	state        WorkloadState
	conn         *config.DatabaseConfig
	settings     config.WorkloadConfig
	inputs       []textinput.Model
	focusedInput int
	progress     progress.Model
	progressVal  float64
	done         int
	total        int
	updates      chan tea.Msg
	result       WorkloadResult
	width        int
	height       int
}

type WorkloadState int

const (
	WorkloadInputState WorkloadState = iota
	WorkloadProgressState
	WorkloadResultState
)

type WorkloadResult struct {
	Inserted int
	Queries  []workload.QueryResult
	Output   string
	Error    error
}

type WorkloadProgressMsg struct {
	Done  int
	Total int
}

type WorkloadCompleteMsg struct {
	Result WorkloadResult
}

func NewWorkloadModel(conn *config.DatabaseConfig, settings config.WorkloadConfig) *WorkloadModel {
	inputs := make([]textinput.Model, workloadFieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
	}
	inputs[apiField].Placeholder = "sql, mongo or memory"
	inputs[apiField].SetValue(conn.API)
	inputs[endpointField].Placeholder = "https://localhost:8081/"
	inputs[endpointField].SetValue(conn.Endpoint)
	inputs[keyField].Placeholder = "account key"
	inputs[keyField].EchoMode = textinput.EchoPassword
	inputs[keyField].SetValue(conn.Key)
	inputs[databaseField].Placeholder = "SampleDatabase"
	inputs[databaseField].SetValue(conn.Name)
	inputs[containerField].Placeholder = "SampleContainer"
	inputs[containerField].SetValue(conn.Container)
	inputs[countField].Placeholder = strconv.Itoa(workload.DefaultCount)
	inputs[countField].SetValue(strconv.Itoa(settings.Count))
	inputs[apiField].Focus()

	progressBar := progress.New(
		progress.WithSolidFill("#3aa0f3"),
		progress.WithoutPercentage(),
	)

	return &WorkloadModel{
		state:    WorkloadInputState,
		conn:     conn,
		settings: settings,
		inputs:   inputs,
		progress: progressBar,
	}
}

func (m *WorkloadModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *WorkloadModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *WorkloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case WorkloadInputState:
			return m.updateInputState(msg)
		case WorkloadProgressState:
			return m, nil
		case WorkloadResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
				return m, nil
			}
		}

	case WorkloadProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		if msg.Total > 0 {
			m.progressVal = float64(msg.Done) / float64(msg.Total)
		}
		return m, waitForUpdate(m.updates)

	case WorkloadCompleteMsg:
		m.result = msg.Result
		m.updates = nil
		m.state = WorkloadResultState
		return m, nil
	}

	return m, nil
}

func (m *WorkloadModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "tab", "down":
		m.focusedInput = (m.focusedInput + 1) % workloadFieldCount
		m.updateInputFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusedInput = (m.focusedInput - 1 + workloadFieldCount) % workloadFieldCount
		m.updateInputFocus()
		return m, nil
	case "enter":
		if err := m.apply(); err != nil {
			return m, ShowError(err)
		}
		return m.startWorkload()
	}

	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *WorkloadModel) updateInputFocus() {
	for i := range m.inputs {
		if i == m.focusedInput {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *WorkloadModel) value(field int) string {
	return strings.TrimSpace(m.inputs[field].Value())
}

// apply validates the form and copies it into the shared connection.
func (m *WorkloadModel) apply() error {
	count, err := strconv.Atoi(m.value(countField))
	if err != nil || count < 0 {
		return fmt.Errorf("count must be a non-negative number, got %q", m.value(countField))
	}

	conn := *m.conn
	conn.API = strings.ToLower(m.value(apiField))
	conn.Endpoint = m.value(endpointField)
	conn.Key = m.value(keyField)
	conn.Name = m.value(databaseField)
	conn.Container = m.value(containerField)

	cfg := config.Config{Database: conn, Workload: m.settings}
	cfg.Workload.Count = count
	if err := cfg.Validate(); err != nil {
		return err
	}
	if conn.Name == "" || conn.Container == "" {
		return fmt.Errorf("database and container names are required")
	}

	*m.conn = conn
	m.settings.Count = count
	return nil
}

func (m *WorkloadModel) startWorkload() (tea.Model, tea.Cmd) {
	m.state = WorkloadProgressState
	m.progressVal = 0
	m.done = 0
	m.total = m.settings.Count
	m.updates = make(chan tea.Msg, 64)
	return m, tea.Batch(m.performWorkload(*m.conn, m.settings, m.updates), waitForUpdate(m.updates))
}

// waitForUpdate delivers the next progress message. A closed channel
// yields nil, which Update ignores.
func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *WorkloadModel) performWorkload(conn config.DatabaseConfig, settings config.WorkloadConfig, updates chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		defer close(updates)
		ctx := context.Background()
		result := WorkloadResult{}

		store, err := database.Open(ctx, conn.Options())
		if err != nil {
			result.Error = fmt.Errorf("failed to connect: %w", err)
			return WorkloadCompleteMsg{Result: result}
		}
		defer store.Close(context.Background())

		var out bytes.Buffer
		runner := workload.NewRunner(store, workload.Config{
			Database:    conn.Name,
			Container:   conn.Container,
			Count:       settings.Count,
			ExtraFields: settings.ExtraFields,
			Seed:        settings.Seed,
		}, &out)
		runner.OnProgress(func(done, total int) {
			// drop updates the view has not caught up with
			select {
			case updates <- WorkloadProgressMsg{Done: done, Total: total}:
			default:
			}
		})

		res, err := runner.Run(ctx)
		result.Inserted = res.Inserted()
		result.Queries = res.Queries
		result.Output = out.String()
		result.Error = err
		return WorkloadCompleteMsg{Result: result}
	}
}

func (m *WorkloadModel) reset() {
	m.state = WorkloadInputState
	m.progressVal = 0
	m.done = 0
	m.result = WorkloadResult{}
	m.updateInputFocus()
}

func (m *WorkloadModel) View() string {
	switch m.state {
	case WorkloadInputState:
		return m.renderInputForm()
	case WorkloadProgressState:
		return m.renderProgress()
	case WorkloadResultState:
		return m.renderResult()
	}
	return ""
}

func (m *WorkloadModel) renderInputForm() string {
	adaptiveTitleStyle, adaptiveFormStyle, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("🚀 Run Emulator Workload")

	labels := []string{"API:", "Endpoint:", "Key:", "Database:", "Container:", "Documents:"}
	var fields []string
	for i, label := range labels {
		fields = append(fields, labelStyle.Render(label)+"\n"+m.inputs[i].View())
	}
	form := adaptiveFormStyle.Render(strings.Join(fields, "\n\n"))

	help := adaptiveHelpStyle.Render("Tab/Shift+Tab: Navigate • Enter: Run • Esc: Back to menu")

	content := lipgloss.JoinVertical(lipgloss.Left, title, form, help)
	return place(m.width, m.height, lipgloss.Top, content)
}

func (m *WorkloadModel) renderProgress() string {
	adaptiveTitleStyle, _, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("🚀 Inserting Documents...")

	progressBar := lipgloss.NewStyle().Width(progressWidth(m.width)).Render(m.progress.ViewAs(m.progressVal))
	progressText := fmt.Sprintf("Inserted %d/%d (%.1f%%)", m.done, m.total, m.progressVal*100)

	content := progressStyle.Render(progressBar + "\n" + progressText)
	help := adaptiveHelpStyle.Render("Please wait while documents are inserted and queried...")

	result := lipgloss.JoinVertical(lipgloss.Left, title, content, help)
	return place(m.width, m.height, lipgloss.Center, result)
}

func (m *WorkloadModel) renderResult() string {
	title := titleStyle.Render("🚀 Workload Complete")

	var status string
	switch {
	case m.result.Error == nil:
		status = successStyle.Render("✅ Cosmos DB emulator test completed successfully.")
	case database.IsServiceError(m.result.Error):
		status = warningStyle.Render(fmt.Sprintf("⚠️  An error occurred: %v", m.result.Error))
	default:
		status = errorStyle.Render(fmt.Sprintf("❌ Workload failed: %v", m.result.Error))
	}

	stats := fmt.Sprintf("📊 Workload Statistics:\n   Inserted documents: %d", m.result.Inserted)
	for _, q := range m.result.Queries {
		stats += fmt.Sprintf("\n   %s: %d", q.Filter, q.Count)
	}

	output := strings.TrimSpace(m.result.Output)

	help := helpStyle.Render("Enter: Run again • Esc: Back to menu")

	return lipgloss.JoinVertical(lipgloss.Left, title, status, output, stats, help)
}
