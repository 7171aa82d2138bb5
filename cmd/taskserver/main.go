// Package main runs the reference task service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todosync/internal/config"
	"todosync/internal/lifecycle"
	"todosync/internal/logging"
	"todosync/internal/taskserver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr    string
		storage string
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:           "taskserver",
		Short:         "Serve the task resource over HTTP",
		Long:          "taskserver exposes GET/POST /tasks and PUT/DELETE /tasks/{id} backed by memory or SQLite.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("storage") {
				cfg.Storage = storage
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides TASKSERVER_ADDR)")
	cmd.Flags().StringVar(&storage, "storage", "", "memory or sqlite (overrides TASKSERVER_STORAGE)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides TASKSERVER_DB_PATH)")
	return cmd
}

func run(parent context.Context, cfg *config.ServerConfig) error {
	if parent == nil {
		parent = context.Background()
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding}, os.Stdout)
	defer logger.Sync()

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}

	manager := lifecycle.New(cfg.ShutdownTimeout, logger)
	manager.Register("repository", func(context.Context) error { return repo.Close() })

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           taskserver.New(repo, logger).Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	manager.Register("http", srv.Shutdown)

	ctx, cancel := manager.Listen(parent)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("task server listening", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = manager.Shutdown(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	}

	logger.Info("shutting down")
	return manager.Shutdown(context.Background())
}

func openRepository(cfg *config.ServerConfig, logger *zap.Logger) (taskserver.Repository, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return taskserver.NewMemoryRepository(), nil
	case config.StorageSQLite:
		return taskserver.OpenSQLite(cfg.DBPath, logger)
	default:
		return nil, fmt.Errorf("unknown storage: %q", cfg.Storage)
	}
}
