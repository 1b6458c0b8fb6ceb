package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive TUI",
	Long: `Start the Terminal User Interface (TUI).
This provides an interactive interface for running the emulator workload,
backing up and restoring containers.

Connection settings are pre-filled from flags, environment and config file.`,
	Annotations: map[string]string{lenientConfig: "true"},
	RunE:        runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// log lines would tear the alternate screen
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	model := tui.NewModel(cfg)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
