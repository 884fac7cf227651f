// Package status is the logging/status channel shared by the core and the
// presentation layer: an append-only, ordered sequence of leveled,
// timestamped entries, mirrored into the durable zap sink.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/tnicklin/time_sync/timeutil"
)

// Level is the severity of an entry.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Entry is a single status line.
type Entry struct {
	Seq     uint64
	Time    time.Time
	Level   Level
	Message string
	Fields  []any
}

// String renders the entry as "2006-01-02 15:04:05 - LEVEL - message k=v".
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Time.Format(timeutil.DateTimeLayout))
	b.WriteString(" - ")
	b.WriteString(e.Level.String())
	b.WriteString(" - ")
	b.WriteString(e.Message)
	for i := 0; i < len(e.Fields); i += 2 {
		if i+1 >= len(e.Fields) {
			fmt.Fprintf(&b, " %v", e.Fields[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", e.Fields[i], e.Fields[i+1])
	}
	return b.String()
}

// Field returns the value logged under key, or nil.
func (e Entry) Field(key string) any {
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if k, ok := e.Fields[i].(string); ok && k == key {
			return e.Fields[i+1]
		}
	}
	return nil
}
