// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"todosync/internal/service"
)

// FakeService is an in-memory implementation of service.TaskService for testing.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int
	calls  map[string]int

	// Error injection for testing
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// DeleteRejects makes Delete report false without removing anything.
	DeleteRejects bool

	// Normalize, if set, rewrites drafts before they are stored, the way a
	// real server canonicalizes input.
	Normalize func(service.Draft) service.Draft

	// Gates, if set, block the matching call until a value is received or
	// the channel is closed. Used to hold a round-trip in flight.
	ListGate   chan struct{}
	CreateGate chan struct{}
	UpdateGate chan struct{}
	DeleteGate chan struct{}
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{calls: make(map[string]int)}
}

// AddTask seeds a task on the fake server.
func (f *FakeService) AddTask(id, title string, done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, service.Task{ID: id, Title: title, Done: done})
}

// ServerTasks returns a copy of the server-side tasks.
func (f *FakeService) ServerTasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns how many times op ("list", "create", "update", "delete") ran.
func (f *FakeService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeService) enter(ctx context.Context, op string, gate chan struct{}) error {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeService) normalize(d service.Draft) service.Draft {
	if f.Normalize != nil {
		return f.Normalize(d)
	}
	return d
}

// List implements service.TaskService.
func (f *FakeService) List(ctx context.Context) ([]service.Task, error) {
	if err := f.enter(ctx, "list", f.ListGate); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.ServerTasks(), nil
}

// Create implements service.TaskService.
func (f *FakeService) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	if err := f.enter(ctx, "create", f.CreateGate); err != nil {
		return service.Task{}, err
	}
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	draft = f.normalize(draft)
	f.nextID++
	task := service.Task{ID: fmt.Sprintf("srv-%d", f.nextID), Title: draft.Title, Done: draft.Done}
	f.tasks = append(f.tasks, task)
	return task, nil
}

// Update implements service.TaskService.
func (f *FakeService) Update(ctx context.Context, id string, draft service.Draft) (service.Task, error) {
	if err := f.enter(ctx, "update", f.UpdateGate); err != nil {
		return service.Task{}, err
	}
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	draft = f.normalize(draft)
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i].Title = draft.Title
			f.tasks[i].Done = draft.Done
			return f.tasks[i], nil
		}
	}
	return service.Task{}, service.NewRemoteFailure(service.KindNotFound, "update", nil)
}

// Delete implements service.TaskService.
func (f *FakeService) Delete(ctx context.Context, id string) (bool, error) {
	if err := f.enter(ctx, "delete", f.DeleteGate); err != nil {
		return false, err
	}
	if f.DeleteErr != nil {
		return false, f.DeleteErr
	}
	if f.DeleteRejects {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return true, nil
		}
	}
	return false, service.NewRemoteFailure(service.KindNotFound, "delete", nil)
}
