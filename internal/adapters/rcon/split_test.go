package rcon

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "", 10, nil},
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "0123456789", 10, []string{"0123456789"}},
		{"split", "0123456789abc", 5, []string{"01234", "56789", "abc"}},
		{"default size", strings.Repeat("a", 151), 0, []string{strings.Repeat("a", 150), "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitText() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("piece %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
