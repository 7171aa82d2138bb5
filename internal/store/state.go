package store

import "todosync/internal/service"

// State is a point-in-time view of the store for the presentation layer.
type State struct {
	Tasks         []service.Task
	IsLoading     bool // a refresh or delete is in flight
	FormIsLoading bool // a create or update is in flight
	Err           error
}

// Snapshot returns the current state. Tasks is a copy.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Tasks returns a copy of the local task list.
func (s *Store) Tasks() []service.Task {
	return s.Snapshot().Tasks
}

// IsLoading reports whether a refresh or delete round-trip is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listOps > 0
}

// FormIsLoading reports whether a create or update round-trip is in flight.
func (s *Store) FormIsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formOps > 0
}

// Err returns the most recent failure, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearErr resets the error indicator.
func (s *Store) ClearErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return
	}
	s.err = nil
	s.notifyLocked()
}

// Subscribe returns a channel that receives the latest state after every
// change, starting with the current one. Slow readers only miss intermediate
// states, never the latest. The channel is closed by cancel or Close.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Store) snapshotLocked() State {
	tasks := make([]service.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return State{
		Tasks:         tasks,
		IsLoading:     s.listOps > 0,
		FormIsLoading: s.formOps > 0,
		Err:           s.err,
	}
}

// notifyLocked pushes the current state to every subscriber, replacing any
// state the subscriber has not read yet.
func (s *Store) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}
	st := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
