package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/workload"
)

var keepContainer bool

var crudCmd = &cobra.Command{
	Use:   "crud",
	Short: "Walk a container through create, replace, upsert, query and delete",
	Long: `Create two documents, replace one, upsert a new and an existing one, query by
partition and by city, then delete a document and confirm it is gone. Every
write is read back. Without --container a fresh container is used and deleted
at the end.`,
	RunE: runCRUD,
}

func init() {
	crudCmd.Flags().BoolVar(&keepContainer, "keep", false, "Keep the container when the walkthrough ends")
}

func runCRUD(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	opts := cfg.Database.Options()
	generated := !cmd.Flags().Changed("container")
	if generated {
		opts.Container = "crud-" + uuid.NewString()[:8]
	}

	store, err := database.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	walk := workload.NewCRUD(store, workload.CRUDConfig{
		Container: opts.Container,
		Cleanup:   generated && !keepContainer,
	}, out)
	if err := walk.Run(ctx); err != nil {
		if !database.IsServiceError(err) {
			return err
		}
		fmt.Fprintf(out, "An error occurred: %v\n", err)
	}
	fmt.Fprintln(out, completedMessage)
	return nil
}
