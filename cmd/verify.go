package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/workload"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every document in the container can be found by id",
	Long: `Scan the container, then query each document id and expect exactly one
match. Ids must be valid UUIDs and must not repeat.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := database.Open(ctx, cfg.Database.Options())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	ids, err := workload.ContainerIDs(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	log.Infof("Verifying %d documents in %s.%s", len(ids), cfg.Database.Name, cfg.Database.Container)

	if err := workload.Verify(ctx, store, ids); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Verified %d documents\n", len(ids))
	return nil
}
