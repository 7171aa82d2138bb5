// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes returned by todosync.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task).
	UserError = 1

	// ConfigError indicates an unreadable config or missing credentials.
	ConfigError = 2

	// BackendError indicates the task service failed or was unreachable.
	BackendError = 3
)
