package command

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr bool
	}{
		{line: "sync", want: Command{Name: "sync"}},
		{line: "refresh", want: Command{Name: "sync"}},
		{line: "q", want: Command{Name: "quit"}},
		{line: "queue Reply", want: Command{Name: "queue", Args: []string{"reply"}}},
		{line: "bucket Active Projects", want: Command{Name: "bucket", Args: []string{"Active Projects"}}},
		{line: "route ana@client.com Waiting on Others", want: Command{Name: "route", Args: []string{"ana@client.com", "Waiting on Others"}}},
		{line: "  clear  ", want: Command{Name: "clear"}},
		{line: "", wantErr: true},
		{line: "queue", wantErr: true},
		{line: "route ana@client.com", wantErr: true},
		{line: "launch", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.line, err)
			}
			if got.Name != tt.want.Name || !slices.Equal(got.Args, tt.want.Args) {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
