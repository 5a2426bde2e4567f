//go:build windows

package watchdog

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"
)

func listCommand(image string) []string {
	return []string{"tasklist", "/FO", "CSV", "/NH", "/FI", "IMAGENAME eq " + filepath.Base(image)}
}

// parseListing reads tasklist CSV rows ("image","pid",...) and returns the
// lowest matching pid. The "no tasks" notice is not CSV and is skipped.
func parseListing(out []byte, image string) (int, bool) {
	best, found := 0, false

	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return 0, false
	}
	for _, rec := range records {
		if len(rec) < 2 || !imageMatches(rec[0], image) {
			continue
		}
		pid, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		if !found || pid < best {
			best, found = pid, true
		}
	}
	return best, found
}
