package console

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// Cursor forward (CSI n C) stands in for spaces in some server consoles.
	cursorForwardPattern = regexp.MustCompile(`\x1b\[(\d*)C`)

	// 7-bit C1 introducers (ESC @ to ESC _) left after stripping.
	c1Pattern = regexp.MustCompile(`\x1b[@-Z\\\]^_]`)

	// C0 controls other than tab, newline and carriage return, plus DEL.
	controlPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// StripANSI removes escape sequences (7-bit C1 and CSI forms) and stray
// control characters from a console line. A trailing carriage return is
// dropped.
func StripANSI(text string) string {
	if strings.IndexByte(text, '\x1b') >= 0 {
		text = cursorForwardPattern.ReplaceAllStringFunc(text, func(match string) string {
			count := 1
			sub := cursorForwardPattern.FindStringSubmatch(match)
			if len(sub) > 1 && sub[1] != "" {
				if n, err := strconv.Atoi(sub[1]); err == nil && n > 0 {
					count = min(n, 200)
				}
			}
			return strings.Repeat(" ", count)
		})
		text = ansi.Strip(text)
		text = c1Pattern.ReplaceAllString(text, "")
	}
	text = controlPattern.ReplaceAllString(text, "")
	return strings.TrimRight(text, "\r")
}
