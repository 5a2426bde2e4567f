package gameserver

import "testing"

func TestCommandFormatting(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{sayCommand("hello"), `say "hello"`},
		{sayCommand(`he said "hi"`), `say "he said 'hi'"`},
		{sayCommand("two\nlines"), `say "two lines"`},
		{tellCommand(3, "psst"), `tell 3 "psst"`},
		{bigTextCommand("Round 2"), `bigtext "Round 2"`},
		{setCommand("g_gravity", "400"), `set g_gravity "400"`},
		{mapCommand("ut4_casa"), "map ut4_casa"},
		{kickCommand(2, ""), "kick 2"},
		{kickCommand(2, "spam"), `kick 2 "spam"`},
		{banCommand(4, "cheating"), `ban 4 "cheating"`},
		{muteCommand(1, 60), "mute 1 60"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("command = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestValidVarName(t *testing.T) {
	valid := []string{"g_gravity", "sv_hostname", "ut4_casa"}
	invalid := []string{"", "a b", "x;quit", `a"b`, "a\nb"}

	for _, name := range valid {
		if !validVarName(name) {
			t.Errorf("validVarName(%q) = false", name)
		}
	}
	for _, name := range invalid {
		if validVarName(name) {
			t.Errorf("validVarName(%q) = true", name)
		}
	}
}
