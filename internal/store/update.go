package store

import (
	"strings"

	"todosync/internal/service"
)

// Update is a partial task update. Each field is either present with a value
// or absent, so "set done to false" and "leave done alone" stay distinct.
type Update struct {
	title    string
	hasTitle bool
	done     bool
	hasDone  bool
}

// SetTitle returns an Update that sets the title. Surrounding whitespace is trimmed.
func SetTitle(title string) Update {
	return Update{}.SetTitle(title)
}

// SetDone returns an Update that sets the completion flag.
func SetDone(done bool) Update {
	return Update{}.SetDone(done)
}

// SetTitle adds a title to u.
func (u Update) SetTitle(title string) Update {
	u.title = strings.TrimSpace(title)
	u.hasTitle = true
	return u
}

// SetDone adds a completion flag to u.
func (u Update) SetDone(done bool) Update {
	u.done = done
	u.hasDone = true
	return u
}

// Title returns the new title and whether one is present.
func (u Update) Title() (string, bool) { return u.title, u.hasTitle }

// Done returns the new completion flag and whether one is present.
func (u Update) Done() (bool, bool) { return u.done, u.hasDone }

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool { return !u.hasTitle && !u.hasDone }

// apply merges u over t.
func (u Update) apply(t service.Task) service.Task {
	if u.hasTitle {
		t.Title = u.title
	}
	if u.hasDone {
		t.Done = u.done
	}
	return t
}

// rollback restores the fields u changed from optimistic back to prior, but
// only where current still holds the optimistic value. A field rewritten by a
// later operation is left alone.
func (u Update) rollback(current, optimistic, prior service.Task) service.Task {
	if u.hasTitle && current.Title == optimistic.Title {
		current.Title = prior.Title
	}
	if u.hasDone && current.Done == optimistic.Done {
		current.Done = prior.Done
	}
	return current
}
