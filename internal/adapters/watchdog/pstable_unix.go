//go:build !windows

package watchdog

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

func listCommand(string) []string {
	return []string{"ps", "-eo", "pid=,comm="}
}

// parseListing scans "pid comm" rows and returns the lowest matching pid.
func parseListing(out []byte, image string) (int, bool) {
	best, found := 0, false

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		if !imageMatches(strings.Join(fields[1:], " "), image) {
			continue
		}
		if !found || pid < best {
			best, found = pid, true
		}
	}
	return best, found
}
