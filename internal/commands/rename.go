package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/store"
)

func init() {
	Register(&RenameCmd{})
}

// RenameCmd implements the rename command.
type RenameCmd struct{}

func (c *RenameCmd) Name() string      { return "rename" }
func (c *RenameCmd) Aliases() []string { return []string{"mv"} }
func (c *RenameCmd) Synopsis() string  { return "Change a task's title" }
func (c *RenameCmd) Usage() string     { return "todosync rename <n> <title...>" }
func (c *RenameCmd) NeedsStore() bool  { return true }

func (c *RenameCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RenameCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	if len(args) < 2 || strings.TrimSpace(strings.Join(args[1:], " ")) == "" {
		if _, err := ParseTaskRef(args); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	task, code := resolveTask(st, args, errOut)
	if code != exitcode.Success {
		return code
	}
	if err := st.UpdateTask(task.ID, store.SetTitle(strings.Join(args[1:], " "))); err != nil {
		return reportFailure(errOut, err)
	}
	return settle(cfg, st, out, errOut)
}
