package cadence

import "strings"

// ParseCommand extracts a cadence directive from a free-text message body.
//
// Lines are scanned in order. Blank lines and quoted lines (starting with
// ">") are skipped. The first remaining line decides the outcome: if it
// matches one of the cadence keywords case-insensitively the cadence is
// returned, otherwise no command is found. Later lines are never inspected,
// so a reply of "weekly" above a quoted report body parses cleanly.
func ParseCommand(body string) (Cadence, bool) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}

		c, err := Parse(line)
		if err != nil {
			return "", false
		}
		return c, true
	}

	return "", false
}
