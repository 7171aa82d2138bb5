// Package service defines the backend-agnostic contract for remote task operations.
package service

import "context"

// TaskService defines the remote round-trips the task store drives.
// Backends never leak SDK or transport types through this interface.
type TaskService interface {
	// List returns every task in server order.
	List(ctx context.Context) ([]Task, error)

	// Create creates a task. The server assigns the id.
	Create(ctx context.Context, draft Draft) (Task, error)

	// Update replaces the mutable fields of a task and returns the
	// server's canonical post-update state.
	Update(ctx context.Context, id string, draft Draft) (Task, error)

	// Delete removes a task. It reports true iff the server confirmed removal.
	Delete(ctx context.Context, id string) (bool, error)
}
