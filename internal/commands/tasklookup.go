package commands

import (
	"errors"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
	"todosync/internal/store"
)

// loadTasks refreshes st and returns the task list once the refresh has settled.
func loadTasks(st *store.Store, errOut io.Writer) ([]service.Task, int) {
	if err := st.Refresh(); err != nil {
		return nil, reportFailure(errOut, err)
	}
	st.Wait()
	if err := st.Err(); err != nil {
		return nil, reportFailure(errOut, err)
	}
	return st.Tasks(), exitcode.Success
}

// findTaskByNumber returns the task at 1-based position num.
func findTaskByNumber(tasks []service.Task, num int) (service.Task, error) {
	if num < 1 || num > len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", num)
	}
	return tasks[num-1], nil
}

// resolveTask parses the task reference in args and looks it up in a fresh list.
func resolveTask(st *store.Store, args []string, errOut io.Writer) (service.Task, int) {
	num, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	tasks, code := loadTasks(st, errOut)
	if code != exitcode.Success {
		return service.Task{}, code
	}

	task, err := findTaskByNumber(tasks, num)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}

// settle waits for st to finish the issued mutation and reports its outcome.
func settle(cfg *config.Config, st *store.Store, out, errOut io.Writer) int {
	st.Wait()
	if err := st.Err(); err != nil {
		return reportFailure(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// reportFailure prints err and maps it to an exit code.
func reportFailure(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, store.ErrBlankTitle):
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	case errors.Is(err, store.ErrTaskNotFound), errors.Is(err, service.ErrNotFound):
		fmt.Fprintf(errOut, "error: task not found: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
