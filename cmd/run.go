package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/workload"
)

const completedMessage = "Cosmos DB emulator test completed successfully."

var (
	verifyAfterRun bool
	checkAfterRun  bool
	metricsAddr    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision, fill and query a container",
	Long: `Ensure the database and container exist, insert synthetic documents one at a
time and report how many documents three fixed filter queries match.
Errors reported by the database service are printed and do not fail the command.`,
	RunE: runWorkload,
}

func init() {
	runCmd.Flags().IntP("count", "n", 10000, "Number of documents to insert")
	runCmd.Flags().Int("extra-fields", 10, "Random numeric fields added to every document")
	runCmd.Flags().Int64("seed", 0, "Seed for the random field values (0 picks one)")
	runCmd.Flags().BoolVar(&verifyAfterRun, "verify", false, "Query every inserted id and expect exactly one document")
	runCmd.Flags().BoolVar(&checkAfterRun, "check", false, "Fail when query counts differ from the counts expected on a clean container")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	for _, name := range []string{"count", "extra-fields", "seed"} {
		if err := viper.BindPFlag(name, runCmd.Flags().Lookup(name)); err != nil {
			log.Fatalf("failed to bind flag %s: %v", name, err)
		}
	}
}

func runWorkload(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr)
		defer srv.Close()
	}

	if cfg.Database.API == database.APISQL {
		log.Infof("Endpoint: %s Key: %s", cfg.Database.Endpoint, cfg.Database.MaskedKey())
	}

	err := executeWorkload(ctx, out)
	if err != nil {
		if !database.IsServiceError(err) {
			return err
		}
		fmt.Fprintf(out, "An error occurred: %v\n", err)
	}
	fmt.Fprintln(out, completedMessage)
	return nil
}

func executeWorkload(ctx context.Context, out io.Writer) error {
	store, err := database.Open(ctx, cfg.Database.Options())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	runner := workload.NewRunner(store, workload.Config{
		Database:    cfg.Database.Name,
		Container:   cfg.Database.Container,
		Count:       cfg.Workload.Count,
		ExtraFields: cfg.Workload.ExtraFields,
		Seed:        cfg.Workload.Seed,
	}, out)

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if verifyAfterRun {
		if err := workload.Verify(ctx, store, res.IDs); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Fprintf(out, "Verified %d documents\n", res.Inserted())
	}
	if checkAfterRun {
		if err := workload.Check(cfg.Workload.Count, res.Queries); err != nil {
			return fmt.Errorf("count check failed: %w", err)
		}
		fmt.Fprintln(out, "Query counts match expectations")
	}
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("metrics server stopped: %v", err)
		}
	}()
	log.Infof("Serving metrics on %s/metrics", addr)
	return srv
}
