// Package main is the entry point for the todosync CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"todosync/internal/backend/googletasks"
	"todosync/internal/backend/restapi"
	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/lifecycle"
	"todosync/internal/logging"
	"todosync/internal/service"
)

func main() {
	// Issued round-trips still finish after a signal; the store ignores cancellation.
	ctx, cancel := lifecycle.New(0, nil).Listen(context.Background())
	defer cancel()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	cancel()
	os.Exit(code)
}

// newService builds the backend selected in the config.
func newService(ctx context.Context, cfg *config.Config) (service.TaskService, error) {
	logger := logging.ForCLI(cfg.Debug, os.Stderr)

	switch cfg.Backend {
	case config.BackendREST:
		return restapi.New(cfg, logger), nil
	case config.BackendGoogleTasks:
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("oauth_client.json not found in %s", cfg.Dir)
		}
		if !cfg.HasToken() {
			return nil, fmt.Errorf("token.json not found in %s", cfg.Dir)
		}
		return googletasks.New(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
}
