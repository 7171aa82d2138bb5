package output

import (
	"bytes"
	"testing"

	"todosync/internal/service"
)

func TestFormatTask(t *testing.T) {
	tests := []struct {
		name string
		num  int
		task service.Task
		want string
	}{
		{"open", 1, service.Task{Title: "buy milk"}, "   1  [ ] buy milk\n"},
		{"done", 12, service.Task{Title: "call mom", Done: true}, "  12  [x] call mom\n"},
		{"blank", 3, service.Task{Title: "  "}, "   3  [ ] (untitled)\n"},
		{"newline", 4, service.Task{Title: "a\nb"}, "   4  [ ] a b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatTask(&buf, tt.num, tt.task)
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTasks_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatTasks(&buf, nil)
	if got := buf.String(); got != "No tasks.\n" {
		t.Errorf("got %q", got)
	}
}
