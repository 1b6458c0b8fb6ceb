package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/csv"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

var csvFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import CSV rows as documents",
	Long: `Import the rows of a CSV file into the configured container. The header row
names the fields. Rows without an id column value get a generated UUID.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&csvFile, "csv", "i", "", "CSV file to import (required)")

	importCmd.MarkFlagRequired("csv")
}

func runImport(cmd *cobra.Command, args []string) error {
	parser := csv.NewParser(csvFile)
	docs, err := parser.ParseDocuments()
	if err != nil {
		return fmt.Errorf("failed to parse CSV: %w", err)
	}

	log.Infof("Parsed %d rows from %s", len(docs), csvFile)

	ctx := cmd.Context()
	store, err := database.Open(ctx, cfg.Database.Options())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	if err := store.EnsureContainer(ctx); err != nil {
		return fmt.Errorf("failed to provision container: %w", err)
	}

	successCount := 0
	for i, doc := range docs {
		if err := store.Insert(ctx, doc); err != nil {
			log.Warnf("Failed to insert row %d (id: %s): %v", i+1, doc.ID(), err)
			continue
		}
		successCount++

		if successCount%100 == 0 {
			log.Infof("Imported %d rows...", successCount)
		}
	}

	log.Infof("Successfully imported %d/%d rows to %s.%s", successCount, len(docs), cfg.Database.Name, cfg.Database.Container)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d/%d rows\n", successCount, len(docs))
	return nil
}
