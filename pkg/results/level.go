package results

import (
	"fmt"
	"strings"
)

// Level ranks the importance of a result. Lower values are more important.
type Level int

const (
	// LevelImportant marks results that are always reported.
	LevelImportant Level = 1
	// LevelNormal marks results reported at the default verbosity.
	LevelNormal Level = 2
	// LevelDebug marks results only reported when debugging.
	LevelDebug Level = 3
)

// Valid reports whether l is one of the defined levels. Derived data levels
// (level + 1) can fall outside the defined range; such a level is never
// surfaced because every valid threshold is more important than it.
func (l Level) Valid() bool {
	return l >= LevelImportant && l <= LevelDebug
}

// Next returns the level one step less important than l. The result is not
// clamped to LevelDebug.
func (l Level) Next() Level {
	return l + 1
}

// Visible reports whether a record at level l is shown for threshold.
func (l Level) Visible(threshold Level) bool {
	return l <= threshold
}

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelImportant:
		return "important"
	case LevelNormal:
		return "normal"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a level name as accepted in configuration.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "important":
		return LevelImportant, nil
	case "normal":
		return LevelNormal, nil
	case "debug":
		return LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown result level %q", s)
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
