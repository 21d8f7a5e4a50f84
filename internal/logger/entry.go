package logger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Level is the severity of a log entry.
type Level int8

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Entry is a line of the log.
type Entry struct {
	Time    time.Time
	Level   Level
	Scope   string
	Message string
	Extra   map[string]interface{}
}

// MarshalJSON makes a single JSON object.
// Extra values are placed next to the fixed keys, and never overwrite them.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(e.Extra)+4)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["time"] = e.Time.Format(time.RFC3339)
	m["level"] = e.Level.String()
	m["scope"] = e.Scope
	m["message"] = e.Message

	return json.Marshal(m)
}

// String makes a tab separated line for human.
func (e Entry) String() string {
	ss := []string{
		e.Time.Format(time.RFC3339),
		e.Level.String(),
		e.Scope,
		strings.ReplaceAll(e.Message, "\n", `\n`),
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ss = append(ss, fmt.Sprintf("%s=%v", k, e.Extra[k]))
	}

	return strings.Join(ss, "\t")
}
