// Package service defines the backend-agnostic contract for remote task operations.
package service

// Task is one to-do item as known to the remote service.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// Draft is the payload sent to create or update a task.
// The id is path-addressed for updates and absent for creates.
type Draft struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// Draft returns the task's mutable fields.
func (t Task) Draft() Draft {
	return Draft{Title: t.Title, Done: t.Done}
}
