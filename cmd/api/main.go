package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mattress-store/internal/config"
	"mattress-store/internal/database"
	"mattress-store/internal/logger"
	"mattress-store/internal/server"
	"mattress-store/internal/storage"
	"mattress-store/migrations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "mattress-store",
		Short:         "Mattress store catalog and admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the environment file")

	serveCmd := newServeCmd()
	rootCmd.AddCommand(serveCmd, newMigrateCmd())
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and opens the logger and database
func bootstrap() (*config.Config, *zap.Logger, database.Service, error) {
	cfg := config.Load(envFile)

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Sync()
		return nil, nil, nil, err
	}

	return cfg, log, dbService, nil
}

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, dbService, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			log.Info("Starting mattress store API",
				zap.String("env", cfg.Server.Env),
				zap.String("port", cfg.Server.Port),
			)
			log.Info("Database health check", zap.Any("health", dbService.Health()))

			if !skipMigrations {
				if err := database.RunMigrations(dbService.DB(), migrations.FS, log); err != nil {
					dbService.Close()
					return err
				}
			}

			bucket, err := storage.NewOSBucket(cfg.Storage.Root, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
			if err != nil {
				dbService.Close()
				return err
			}

			srv := server.NewServer(cfg, log, dbService, bucket)
			if err := srv.CheckRedis(cmd.Context()); err != nil {
				log.Warn("Rate limit store unreachable, admin requests will not be limited", zap.Error(err))
			}

			// Create a done channel to signal when the shutdown is complete
			done := make(chan bool, 1)
			go gracefulShutdown(srv, log, done)

			log.Info("Server listening", zap.String("addr", srv.Addr))

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.Close()
				return fmt.Errorf("http server error: %w", err)
			}

			<-done
			log.Info("Graceful shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(apply func(*zap.Logger, database.Service) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			_, log, dbService, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer dbService.Close()

			return apply(log, dbService)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: run(func(log *zap.Logger, db database.Service) error {
			return database.RunMigrations(db.DB(), migrations.FS, log)
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the migration status",
		RunE: run(func(log *zap.Logger, db database.Service) error {
			return database.GetMigrationStatus(db.DB(), migrations.FS)
		}),
	}

	cmd.AddCommand(up, status)
	cmd.RunE = up.RunE
	return cmd
}

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight uploads get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}
