package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/notes"
)

var notesDatabase string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the notes HTTP API",
	Long: `Serve a small notes API backed by the configured database.
Notes are stored in a database and container both named after --notes-database.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&notesDatabase, "notes-database", "notes", "Database and container name for notes")
	serveCmd.Flags().String("host", "0.0.0.0", "Address to listen on")
	serveCmd.Flags().String("port", "3000", "Port to listen on")

	for _, name := range []string{"host", "port"} {
		if err := viper.BindPFlag(name, serveCmd.Flags().Lookup(name)); err != nil {
			log.Fatalf("failed to bind flag %s: %v", name, err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.Database.Options()
	opts.Database = notesDatabase
	opts.Container = notesDatabase

	store, err := database.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer store.Close(context.Background())

	svc := notes.NewService(store)
	if err := svc.Init(ctx); err != nil {
		return fmt.Errorf("failed to provision notes container: %w", err)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           notes.NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Notes API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down notes API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
