package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/backup"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

var (
	inputFile        string
	restoreFormat    string
	dropExisting     bool
	skipConfirmation bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a container from a backup file",
	Long: `Restore documents from a BSON or JSON lines backup file. Without an explicit
--container the target container is taken from the backup file name.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input backup file to restore (required)")
	restoreCmd.Flags().StringVarP(&restoreFormat, "format", "f", "", "Backup format: bson or json (auto-detected if not specified)")
	restoreCmd.Flags().BoolVar(&dropExisting, "drop", false, "Drop existing container before restore")
	restoreCmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip confirmation prompts")

	restoreCmd.MarkFlagRequired("input")
}

func runRestore(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", inputFile)
	}

	format := restoreFormat
	if format == "" {
		detected, err := backup.DetectFormat(inputFile)
		if err != nil {
			return err
		}
		format = detected
	}
	if err := backup.ValidateFormat(format); err != nil {
		return err
	}

	opts := cfg.Database.Options()
	if !cmd.Flags().Changed("container") {
		if name := backup.ContainerFromFilename(inputFile); name != "" {
			opts.Container = name
		}
	}

	if err := backup.ValidateBackupFile(inputFile, format); err != nil {
		return fmt.Errorf("backup file validation failed: %w", err)
	}

	if !skipConfirmation {
		log.Infof("About to restore:")
		log.Infof("  Source file: %s", inputFile)
		log.Infof("  Target database: %s", opts.Database)
		log.Infof("  Target container: %s", opts.Container)
		log.Infof("  Format: %s", format)
		if dropExisting {
			log.Warnf("  Existing container will be DROPPED!")
		}

		if !confirmAction(cmd.InOrStdin(), cmd.OutOrStdout(), "Do you want to continue?") {
			log.Info("Restore cancelled")
			return nil
		}
	}

	ctx := cmd.Context()
	store, err := database.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	backupService := backup.NewService(store, opts.Container)

	log.Infof("Starting restore of container '%s' from %s...", opts.Container, inputFile)
	count, err := backupService.RestoreContainer(ctx, inputFile, format, dropExisting)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	log.Infof("Restore completed successfully!")
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d documents into %s\n", count, opts.Container)
	return nil
}

func confirmAction(in io.Reader, out io.Writer, message string) bool {
	fmt.Fprintf(out, "%s (y/N): ", message)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
