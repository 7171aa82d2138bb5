package taskserver

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"todosync/internal/service"
)

// ErrNotFound is returned when no task has the requested id.
var ErrNotFound = errors.New("task not found")

// Patch names the fields an update changes. Nil fields keep their stored value.
type Patch struct {
	Title *string
	Done  *bool
}

// Repository persists tasks for the server. Input reaches it already normalized.
type Repository interface {
	List(ctx context.Context) ([]service.Task, error)
	Get(ctx context.Context, id string) (service.Task, error)
	Create(ctx context.Context, draft service.Draft) (service.Task, error)
	// Update merges patch into the stored task in one atomic step.
	Update(ctx context.Context, id string, patch Patch) (service.Task, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryRepository keeps tasks in insertion order in memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks []service.Task
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) List(ctx context.Context) ([]service.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]service.Task, len(r.tasks))
	copy(out, r.tasks)
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (service.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.tasks[i], nil
	}
	return service.Task{}, ErrNotFound
}

func (r *MemoryRepository) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := service.Task{ID: uuid.NewString(), Title: draft.Title, Done: draft.Done}
	r.tasks = append(r.tasks, task)
	return task, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, patch Patch) (service.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return service.Task{}, ErrNotFound
	}
	if patch.Title != nil {
		r.tasks[i].Title = *patch.Title
	}
	if patch.Done != nil {
		r.tasks[i].Done = *patch.Done
	}
	return r.tasks[i], nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	return nil
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) index(id string) int {
	for i, t := range r.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
