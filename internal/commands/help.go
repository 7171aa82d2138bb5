package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/store"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todosync help" }
func (c *HelpCmd) NeedsStore() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, st *store.Store, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todosync                                    List all tasks
  todosync list [common flags] [--open]       List tasks, optionally only open ones
  todosync add [common flags] <title...>      Create a task (alias: create)
  todosync done [common flags] <n>            Mark task n completed
  todosync undo [common flags] <n>            Mark task n open (alias: reopen)
  todosync toggle [common flags] <n>          Flip task n between open and completed
  todosync rename [common flags] <n> <title...>
  todosync rm [common flags] <n>              Delete task n (alias: delete)
  todosync help
  todosync version

Tasks are numbered by their position in "todosync list".

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Configuration:
  <config dir>/config.yaml, .env and TODOSYNC_* environment variables
  (backend, base_url, timeout, task_list).
`
