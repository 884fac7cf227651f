package timeservice

import "strings"

// Status is the state of the time service as reported by its status query.
type Status int

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusStopped
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ParseStatus classifies status query output by the first marker found, in
// the order RUNNING, STOPPED, DISABLED.
func ParseStatus(output string) Status {
	switch {
	case strings.Contains(output, "RUNNING"):
		return StatusRunning
	case strings.Contains(output, "STOPPED"):
		return StatusStopped
	case strings.Contains(output, "DISABLED"):
		return StatusDisabled
	default:
		return StatusUnknown
	}
}

// HasMarker reports whether output contains any marker, ignoring case.
func HasMarker(output string, markers []string) bool {
	lower := strings.ToLower(output)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// FilterLines returns the trimmed lines of output that mention any key.
func FilterLines(output string, keys []string) []string {
	var out []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, k := range keys {
			if strings.Contains(line, k) {
				out = append(out, line)
				break
			}
		}
	}
	return out
}
