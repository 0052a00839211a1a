package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/wardwatch-systems/wardwatch/internal/handlers"
	"github.com/wardwatch-systems/wardwatch/internal/registry"
	"github.com/wardwatch-systems/wardwatch/internal/scheduler"
	"github.com/wardwatch-systems/wardwatch/internal/server"
)

var (
	migrationsPath string
	allowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wardwatch service",
	Long: `Starts the HTTP query surface and the periodic sweep scheduler.
Database migrations run automatically at startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&migrationsPath, "migrations", "migrations", "path to migration files")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "cors-origin", nil, "allowed CORS origins for the dashboard")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Run database migrations
	connString := cfg.Database.Postgres.ConnString()
	m, err := migrate.New("file://"+migrationsPath, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.cleanup()

	// Pre-register sources from file, if configured
	if cfg.Sweep.SourcesFile != "" {
		added, err := registry.Bootstrap(ctx, p.systems, cfg.Sweep.SourcesFile)
		if err != nil {
			return fmt.Errorf("failed to bootstrap sources: %w", err)
		}
		logger.Info("sources bootstrapped", "file", cfg.Sweep.SourcesFile, "added", added)
	}

	// Start sweep scheduler
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	sched := scheduler.New(p.analyzer, cfg.Sweep.Interval, logger.Logger)
	go sched.Start(schedCtx)

	// HTTP server
	handler := handlers.New(p.analyzer, p.alerts, p.systems, p.adapter, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler, allowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wardwatch listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down")
	sched.Stop()
	schedCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
