// Package cadence implements the reporting cadence: the persisted setting,
// the reply-driven command parser that changes it, and the should-send
// decision made once per run.
package cadence

import (
	"fmt"
	"strings"
)

// Cadence is the configured reporting interval.
type Cadence string

const (
	Daily       Cadence = "DAILY"
	Weekly      Cadence = "WEEKLY"
	Fortnightly Cadence = "FORTNIGHTLY"
)

// Default is used whenever no cadence has been stored yet.
const Default = Daily

// Parse converts free text into a Cadence, case-insensitively.
func Parse(s string) (Cadence, error) {
	switch Cadence(strings.ToUpper(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Fortnightly:
		return Fortnightly, nil
	default:
		return "", fmt.Errorf("unrecognized cadence %q", s)
	}
}

// IsValid reports whether c is one of the three recognized values.
func (c Cadence) IsValid() bool {
	switch c {
	case Daily, Weekly, Fortnightly:
		return true
	}
	return false
}

func (c Cadence) String() string {
	return string(c)
}
