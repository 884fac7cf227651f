package timeutil

import "fmt"

// Layouts used by the clock display.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// FormatOffset renders a signed offset in seconds as ±HH:MM:SS. The sign is
// always present and the hours field grows past two digits when needed.
func FormatOffset(seconds int64) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
	}
	abs := uint64(seconds)
	if seconds < 0 {
		abs = uint64(-(seconds + 1)) + 1
	}
	hours := abs / 3600
	minutes := (abs % 3600) / 60
	secs := abs % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, secs)
}

// FormatDelta renders an adjustment step with an explicit sign, e.g. "+600" or "-60".
func FormatDelta(seconds int64) string {
	return fmt.Sprintf("%+d", seconds)
}
