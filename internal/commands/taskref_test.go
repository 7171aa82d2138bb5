package commands

import (
	"errors"
	"testing"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr string
	}{
		{name: "single digit", args: []string{"5"}, want: 5},
		{name: "multi digit", args: []string{"123"}, want: 123},
		{name: "leading zero", args: []string{"007"}, want: 7},
		{name: "extra args ignored", args: []string{"2", "rest"}, want: 2},
		{name: "zero", args: []string{"0"}, wantErr: "task number out of range: 0"},
		{name: "letter", args: []string{"a1"}, wantErr: "invalid task reference: a1"},
		{name: "negative", args: []string{"-1"}, wantErr: "invalid task reference: -1"},
		{name: "non-ascii digit", args: []string{"١"}, wantErr: "invalid task reference: ١"},
		{name: "empty string", args: []string{""}, wantErr: "invalid task reference: "},
		{name: "overflow", args: []string{"99999999999999999999999"}, wantErr: "invalid task reference: 99999999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskRef(tt.args)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTaskRef_NoArgs(t *testing.T) {
	if _, err := ParseTaskRef(nil); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("err = %v, want ErrTaskRefRequired", err)
	}
}
