package console

import "testing"

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "status", "status"},
		{"color", "\x1b[32mServer started\x1b[0m", "Server started"},
		{"carriage return", "map: ut4_casa\r", "map: ut4_casa"},
		{"cursor forward", "a\x1b[3Cb", "a   b"},
		{"erase line", "\x1b[2K\x1b[1Gloading", "loading"},
		{"c1 escape", "\x1bMsaved", "saved"},
		{"bell and backspace", "ding\x07\x08", "ding"},
		{"tab kept", "a\tb", "a\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.in); got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
