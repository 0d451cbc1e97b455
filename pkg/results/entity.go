package results

import (
	"fmt"
	"strconv"
	"strings"
)

// Job is the view of a test job that job results read from. Records keep a
// reference to the job and read it on every access, so a finished job's
// outcome is visible through results created before it finished.
type Job interface {
	fmt.Stringer
	Level() Level
	Passed() bool
	Result() any
}

// Device is the view of a configured network device that device
// configuration results read from.
type Device interface {
	HostID() string
	// Netns returns the network namespace name, or "" for the root namespace.
	Netns() string
	ID() string
	ClassName() string
	// CreateArgs returns the arguments the device was constructed with.
	CreateArgs() Args
}

// KeywordArg is a single named argument.
type KeywordArg struct {
	Name  string
	Value any
}

// Args holds positional and keyword arguments in call order.
type Args struct {
	Positional []any
	Keyword    []KeywordArg
}

// String renders the arguments as they appear inside a call expression.
func (a Args) String() string {
	var sb strings.Builder

	for i, v := range a.Positional {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(formatArg(v))
	}

	if len(a.Positional) > 0 && len(a.Keyword) > 0 {
		sb.WriteString(", ")
	}

	for i, kw := range a.Keyword {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(kw.Name)
		sb.WriteByte('=')
		sb.WriteString(formatArg(kw.Value))
	}

	return sb.String()
}

// formatArg renders an argument value, quoting strings.
func formatArg(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// devicePath renders host[.netns].device.
func devicePath(d Device) string {
	if ns := d.Netns(); ns != "" {
		return d.HostID() + "." + ns + "." + d.ID()
	}

	return d.HostID() + "." + d.ID()
}
