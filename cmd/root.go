package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/config"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/metrics"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "emulatorctl",
	Short: "A CLI tool for exercising the Cosmos DB emulator",
	Long: `emulatorctl provisions a database and container on the Cosmos DB emulator,
bulk-inserts synthetic documents and runs a few filter queries against them.
It can also serve a small notes API, import CSV files and back up containers.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	pf.String("api", database.APISQL, "Database API: sql, mongo or memory")
	pf.String("endpoint", "https://localhost:8081/", "Account endpoint for the sql api")
	pf.String("key", "", "Account key for the sql api (or COSMOS_DB_KEY)")
	pf.String("connection-string", "", "Connection string for the mongo api")
	pf.StringP("database", "d", "SampleDatabase", "Database name")
	pf.StringP("container", "c", "SampleContainer", "Container name")
	pf.Bool("insecure", true, "Skip TLS certificate verification (emulator certificate)")
	pf.Duration("op-timeout", 30*time.Second, "Timeout for a single database operation")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	if err := viper.BindPFlags(pf); err != nil {
		log.Fatalf("failed to bind flags: %v", err)
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(crudCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

// lenientConfig marks commands that may start without a complete
// database configuration.
const lenientConfig = "lenient-config"

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cmd.Annotations[lenientConfig] == "true" {
		cfg, err = config.Read(viper.GetViper(), cfgFile)
	} else {
		cfg, err = config.LoadConfig(viper.GetViper(), cfgFile)
	}
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	return nil
}
