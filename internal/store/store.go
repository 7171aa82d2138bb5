// Package store holds the local view of the task collection and keeps it in
// step with a remote service.TaskService.
//
// Every mutation is fire-and-forget: the call validates its input, records
// any optimistic change, starts the round-trip on its own goroutine and
// returns. Callers observe the outcome through Snapshot, Subscribe or Wait.
// All state transitions happen under one mutex, so concurrent round-trips
// can finish in any order without interleaving partial writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"todosync/internal/service"
)

var (
	// ErrBlankTitle is returned when a create or rename carries an empty title.
	ErrBlankTitle = errors.New("title required")

	// ErrTaskNotFound is returned when an update targets an id absent from local state.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDeleteRejected is recorded when the service answers a delete without confirming it.
	ErrDeleteRejected = errors.New("delete not confirmed by service")

	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("store closed")
)

// Store owns the local task list and the loading flags.
type Store struct {
	svc    service.TaskService
	logger *zap.Logger
	ctx    context.Context

	mu       sync.Mutex
	idle     *sync.Cond
	tasks    []service.Task
	listOps  int // in-flight refresh/delete round-trips
	formOps  int // in-flight create/update round-trips
	inflight int
	err      error
	closed   bool
	subs     map[int]chan State
	nextSub  int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithContext sets the context whose values are passed to every round-trip.
// Its cancellation is ignored: an issued round-trip always runs to completion.
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		if ctx != nil {
			s.ctx = context.WithoutCancel(ctx)
		}
	}
}

// New creates a Store backed by svc. The local task list starts empty.
func New(svc service.TaskService, opts ...Option) *Store {
	s := &Store{
		svc:    svc,
		logger: zap.NewNop(),
		ctx:    context.Background(),
		subs:   make(map[int]chan State),
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the local task list with the service's list.
// On failure the local list is kept and the error is recorded.
func (s *Store) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginLocked(); err != nil {
		return err
	}
	s.listOps++
	s.notifyLocked()
	s.logger.Debug("refresh started")

	go s.run(func(ctx context.Context) {
		tasks, err := s.svc.List(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.listOps--
		if err != nil {
			s.failLocked("refresh", err)
		} else {
			s.tasks = dedupe(tasks)
			s.err = nil
			s.logger.Debug("refresh committed", zap.Int("tasks", len(s.tasks)))
		}
		s.notifyLocked()
	})
	return nil
}

// AddTask creates a task with the given title and appends the server's
// version of it once the service confirms. Blank titles are rejected.
func (s *Store) AddTask(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrBlankTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginLocked(); err != nil {
		return err
	}
	s.formOps++
	s.notifyLocked()
	s.logger.Debug("create started", zap.String("title", title))

	draft := service.Draft{Title: title}
	go s.run(func(ctx context.Context) {
		task, err := s.svc.Create(ctx, draft)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.formOps--
		if err != nil {
			s.failLocked("create", err)
		} else {
			s.upsertLocked(task)
			s.logger.Debug("create committed", zap.String("id", task.ID))
		}
		s.notifyLocked()
	})
	return nil
}

// DeleteTask removes a task from the service and, once the service confirms,
// from the local list.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginLocked(); err != nil {
		return err
	}
	s.listOps++
	s.notifyLocked()
	s.logger.Debug("delete started", zap.String("id", id))

	go s.run(func(ctx context.Context) {
		ok, err := s.svc.Delete(ctx, id)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.listOps--
		switch {
		case err != nil:
			s.failLocked("delete", err)
		case !ok:
			s.failLocked("delete", fmt.Errorf("%w: %s", ErrDeleteRejected, id))
		default:
			s.removeLocked(id)
			s.logger.Debug("delete committed", zap.String("id", id))
		}
		s.notifyLocked()
	})
	return nil
}

// UpdateTask applies a partial update to a task.
//
// The merged values are written to the local entry before the round-trip
// starts. When the service answers, the entry is overwritten with the
// server's canonical fields; when it fails, the fields this update changed
// are restored. If the entry was removed in the meantime nothing is written.
//
// An id absent from the local list yields ErrTaskNotFound and no round-trip.
// An empty update is a no-op.
func (s *Store) UpdateTask(id string, u Update) error {
	if title, ok := u.Title(); ok && title == "" {
		return ErrBlankTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, u)
}

// ToggleTask flips the completion flag of a task.
func (s *Store) ToggleTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		if s.closed {
			return ErrClosed
		}
		return ErrTaskNotFound
	}
	return s.updateLocked(id, SetDone(!s.tasks[i].Done))
}

func (s *Store) updateLocked(id string, u Update) error {
	if s.closed {
		return ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	if u.IsEmpty() {
		return nil
	}
	if err := s.beginLocked(); err != nil {
		return err
	}

	prior := s.tasks[i]
	optimistic := u.apply(prior)
	s.tasks[i] = optimistic
	s.formOps++
	s.notifyLocked()
	s.logger.Debug("update started", zap.String("id", id))

	go s.run(func(ctx context.Context) {
		task, err := s.svc.Update(ctx, id, optimistic.Draft())

		s.mu.Lock()
		defer s.mu.Unlock()
		s.formOps--

		j := s.indexLocked(id)
		switch {
		case err != nil:
			s.failLocked("update", err)
			if j >= 0 {
				s.tasks[j] = u.rollback(s.tasks[j], optimistic, prior)
			}
		case j < 0:
			s.logger.Debug("update reconciled against a removed task", zap.String("id", id))
		default:
			s.tasks[j].Title = task.Title
			s.tasks[j].Done = task.Done
			s.logger.Debug("update committed", zap.String("id", id))
		}
		s.notifyLocked()
	})
	return nil
}

// Wait blocks until no round-trip is in flight.
func (s *Store) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// Close stops accepting operations, waits for in-flight round-trips to
// finish and closes all subscriptions. If ctx ends first, Close returns its
// error and leaves the subscriptions open; calling Close again resumes the wait.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	return nil
}

func (s *Store) beginLocked() error {
	if s.closed {
		return ErrClosed
	}
	s.inflight++
	return nil
}

// run executes one unit of work and marks it finished.
func (s *Store) run(fn func(ctx context.Context)) {
	defer func() {
		s.mu.Lock()
		s.inflight--
		if s.inflight == 0 {
			s.idle.Broadcast()
		}
		s.mu.Unlock()
	}()
	fn(s.ctx)
}

func (s *Store) failLocked(op string, err error) {
	s.err = fmt.Errorf("%s: %w", op, err)
	s.logger.Warn("task operation failed", zap.String("operation", op), zap.Error(err))
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) upsertLocked(task service.Task) {
	if i := s.indexLocked(task.ID); i >= 0 {
		s.tasks[i] = task
		return
	}
	s.tasks = append(s.tasks, task)
}

func (s *Store) removeLocked(id string) {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
}

// dedupe keeps the first occurrence of every id, preserving order.
func dedupe(tasks []service.Task) []service.Task {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
