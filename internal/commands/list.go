package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct {
	openOnly bool
}

// SetOpenOnly hides completed tasks (for testing).
func (c *ListCmd) SetOpenOnly(v bool) {
	c.openOnly = v
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "todosync list [--open]" }
func (c *ListCmd) NeedsStore() bool  { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.openOnly, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	tasks, code := loadTasks(st, errOut)
	if code != exitcode.Success {
		return code
	}

	if !c.openOnly {
		output.FormatTasks(out, tasks)
		return exitcode.Success
	}

	// Open tasks keep their position so the numbers stay valid references.
	shown := 0
	for i, t := range tasks {
		if t.Done {
			continue
		}
		output.FormatTask(out, i+1, t)
		shown++
	}
	if shown == 0 {
		output.FormatTasks(out, nil)
	}
	return exitcode.Success
}
