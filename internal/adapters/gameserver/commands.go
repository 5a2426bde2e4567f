package gameserver

import (
	"strconv"
	"strings"
)

var quoteReplacer = strings.NewReplacer(`"`, `'`, "\n", " ", "\r", " ")

// quote wraps s for the server's tokenizer, which has no escape for '"'.
func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

func sayCommand(msg string) string {
	return "say " + quote(msg)
}

func tellCommand(slot int, msg string) string {
	return "tell " + strconv.Itoa(slot) + " " + quote(msg)
}

func bigTextCommand(msg string) string {
	return "bigtext " + quote(msg)
}

func setCommand(name, value string) string {
	return "set " + name + " " + quote(value)
}

func mapCommand(name string) string {
	return "map " + name
}

func kickCommand(slot int, reason string) string {
	return withReason("kick "+strconv.Itoa(slot), reason)
}

func banCommand(slot int, reason string) string {
	return withReason("ban "+strconv.Itoa(slot), reason)
}

func muteCommand(slot, seconds int) string {
	return "mute " + strconv.Itoa(slot) + " " + strconv.Itoa(seconds)
}

func withReason(cmd, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return cmd
	}
	return cmd + " " + quote(reason)
}

// validVarName rejects names that would smuggle extra commands.
func validVarName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\r\n;\"")
}
