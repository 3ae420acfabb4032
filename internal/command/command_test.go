package command

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  Command
		fails bool
	}{
		{name: "insert", line: "insert a 5", want: Command{Op: OpInsert, Key: "a", Value: 5}},
		{name: "insert negative value", line: "insert a -17", want: Command{Op: OpInsert, Key: "a", Value: -17}},
		{name: "delete", line: "delete a 5", want: Command{Op: OpDelete, Key: "a", Value: 5}},
		{name: "find", line: "find a", want: Command{Op: OpFind, Key: "a"}},
		{name: "uppercase op", line: "FIND a", want: Command{Op: OpFind, Key: "a"}},
		{name: "quoted key with space", line: `insert "new york" 1`, want: Command{Op: OpInsert, Key: "new york", Value: 1}},
		{name: "exists", line: "exists a", want: Command{Op: OpExists, Key: "a"}},
		{name: "count", line: "count", want: Command{Op: OpCount}},
		{name: "keys", line: "keys", want: Command{Op: OpKeys}},
		{name: "help", line: "help", want: Command{Op: OpHelp}},
		{name: "empty line", line: "", fails: true},
		{name: "unknown op", line: "upsert a 5", fails: true},
		{name: "bare count header", line: "7", fails: true},
		{name: "missing value", line: "insert a", fails: true},
		{name: "extra argument", line: "find a b", fails: true},
		{name: "value not a number", line: "insert a five", fails: true},
		{name: "value overflows int32", line: "insert a 2147483648", fails: true},
		{name: "unbalanced quote", line: `find "a`, fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.fails {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tt.line, got)
				}
				return
			}

			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.line, err)
			}
			if *got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.line, *got, tt.want)
			}
		})
	}
}

func TestFormatValues(t *testing.T) {
	if got := FormatValues(nil); got != NoData {
		t.Fatalf("expected %q for empty result, got %q", NoData, got)
	}
	if got := FormatValues([]int32{3}); got != "3" {
		t.Fatalf("expected %q, got %q", "3", got)
	}
	if got := FormatValues([]int32{-2, 3, 9}); got != "-2 3 9" {
		t.Fatalf("expected %q, got %q", "-2 3 9", got)
	}
}
