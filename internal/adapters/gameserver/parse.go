package gameserver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/brianly1003/warden/internal/domain/ports"
)

// cvarValuePattern matches `"name" is:"value^7"`, optionally followed by
// a default clause.
var cvarValuePattern = regexp.MustCompile(`^"([^"]+)" is:"(.*?)(?:\^7)?"`)

// ParseCvarValue extracts the value of name from a cvar query reply.
func ParseCvarValue(name, response string) (string, bool) {
	for _, line := range strings.Split(response, "\n") {
		m := cvarValuePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil && strings.EqualFold(m[1], name) {
			return m[2], true
		}
	}
	return "", false
}

// ParseCvarList parses a cvarlist dump. Flag columns and the trailing
// summary lines are ignored.
func ParseCvarList(response string) map[string]string {
	vars := make(map[string]string)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimRight(line, "\r")
		open := strings.Index(line, ` "`)
		if open < 0 || !strings.HasSuffix(line, `"`) || len(line) < open+3 {
			continue
		}
		fields := strings.Fields(line[:open])
		if len(fields) == 0 {
			continue
		}
		vars[fields[len(fields)-1]] = line[open+2 : len(line)-1]
	}
	return vars
}

// defaultStatusColumns is the layout printed after the name column by
// servers whose header is missing from the reply.
var defaultStatusColumns = []string{"lastmsg", "address", "qport", "rate"}

// ParseStatus parses a status reply. It returns nil when the reply has no
// map line, which means the server did not answer.
func ParseStatus(response string) *ports.ServerStatus {
	var status *ports.ServerStatus
	trailing := defaultStatusColumns

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "map:"):
			status = &ports.ServerStatus{
				Map:     strings.TrimSpace(strings.TrimPrefix(trimmed, "map:")),
				Players: []ports.Player{},
			}
			continue
		case status == nil, trimmed == "", strings.HasPrefix(trimmed, "---"):
			continue
		}

		fields := strings.Fields(trimmed)
		if fields[0] == "num" || fields[0] == "cl" {
			if len(fields) > 4 {
				trailing = fields[4:]
			}
			continue
		}

		if p, ok := parsePlayer(fields, trailing); ok {
			status.Players = append(status.Players, p)
		}
	}
	return status
}

func parsePlayer(fields, trailing []string) (ports.Player, bool) {
	if len(fields) < 4+len(trailing) {
		return ports.Player{}, false
	}
	slot, err := strconv.Atoi(fields[0])
	if err != nil {
		return ports.Player{}, false
	}
	score, err := strconv.Atoi(fields[1])
	if err != nil {
		return ports.Player{}, false
	}
	ping, err := strconv.Atoi(fields[2])
	if err != nil {
		// CNCT and ZMBI for connecting and zombie clients.
		ping = -1
	}

	nameEnd := len(fields) - len(trailing)
	p := ports.Player{
		Slot:  slot,
		Score: score,
		Ping:  ping,
		Name:  strings.TrimSuffix(strings.Join(fields[3:nameEnd], " "), "^7"),
	}
	for i, col := range trailing {
		if col == "address" {
			p.Address = fields[nameEnd+i]
		}
	}
	if p.Address == "bot" {
		p.IsBot = true
		p.Address = ""
	}
	return p, true
}

var userInfoPattern = regexp.MustCompile(`^([^:\s]+):\s*(.*)$`)

// ParseUserInfo parses a dumpuser reply: a "userinfo" header, a rule, then
// one key per line. Replies without the header (bad slot, unknown
// command) yield an empty map.
func ParseUserInfo(response string) map[string]string {
	lines := strings.Split(response, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "userinfo" {
			return parseRecord(lines[i+1:])
		}
	}
	return map[string]string{}
}

// parseRecord reads "key: value" or column-aligned "key   value" lines.
func parseRecord(lines []string) map[string]string {
	info := make(map[string]string)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "---") {
			continue
		}
		if m := userInfoPattern.FindStringSubmatch(line); m != nil {
			info[strings.TrimSpace(m[1])] = m[2]
			continue
		}
		key, value, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		info[key] = strings.TrimSpace(value)
	}
	return info
}
