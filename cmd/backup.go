package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/backup"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

var (
	outputDir    string
	backupFormat string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up a container",
	Long:  "Write every document of the configured container to a BSON or JSON lines file",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&outputDir, "output", "o", "./backups", "Output directory for backup files")
	backupCmd.Flags().StringVarP(&backupFormat, "format", "f", backup.FormatBSON, "Backup format: bson or json")
}

func runBackup(cmd *cobra.Command, args []string) error {
	if err := backup.ValidateFormat(backupFormat); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := database.Open(ctx, cfg.Database.Options())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	backupService := backup.NewService(store, cfg.Database.Container)

	log.Infof("Starting backup of container '%s' to %s format...", cfg.Database.Container, backupFormat)
	backupFile, count, err := backupService.BackupContainer(ctx, outputDir, backupFormat)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	log.Infof("Backup completed successfully: %s (%d documents)", backupFile, count)
	fmt.Fprintln(cmd.OutOrStdout(), backupFile)
	return nil
}
