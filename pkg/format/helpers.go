package format

import "time"

// Title prefixes for tool log entries.
const (
	TitleToolUse    = "Tool Use"
	TitleToolResult = "Tool Result"
)

// State is a lifecycle status shown next to an entry.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StatePending   State = "pending"
	StateSuccess   State = "success"
	StateError     State = "error"
	StateWarning   State = "warning"
)

var stateRoles = map[State]Role{
	StateRunning:   RoleRunning,
	StateCompleted: RoleCompleted,
	StateFailed:    RoleFailed,
	StatePending:   RolePending,
	StateSuccess:   RoleSuccess,
	StateError:     RoleError,
	StateWarning:   RoleWarning,
}

// Title is the entry heading, e.g. "Tool Use: search_project".
func Title(prefix, toolName string) Node {
	return Fragment(Span(RoleTitle, prefix+": "), Span(RoleToolName, toolName))
}

func Subtitle(s string) Node {
	return Span(RoleSubtitle, s)
}

// Status styles text according to state. Unknown states render muted.
func Status(state State, text string) Node {
	role, ok := stateRoles[state]
	if !ok {
		role = RoleMuted
	}
	return Span(role, text)
}

func Error(text string) Node   { return Span(RoleError, text) }
func Success(text string) Node { return Span(RoleSuccess, text) }
func Warning(text string) Node { return Span(RoleWarning, text) }
func Muted(text string) Node   { return Span(RoleMuted, text) }

func Filename(path string) Node {
	return Span(RoleFilename, path)
}

// URL renders a link; rich output makes it clickable.
func URL(u string) Node {
	n := Span(RoleURL, u)
	n.Attrs = map[string]string{"href": u}
	return n
}

func Date(t time.Time) Node {
	return Span(RoleDate, FormatDate(t))
}

func Size(bytes int64) Node {
	return Span(RoleSize, FormatSize(bytes))
}

func Bool(value bool, format string) Node {
	return Span(RoleBoolean, FormatBool(value, format))
}

func Regex(pattern string) Node {
	return Span(RoleRegex, pattern)
}

// Duration renders milliseconds, see FormatDuration.
func Duration(ms int64) Node {
	return Span(RoleDuration, FormatDuration(ms))
}

func TimeAgo(t, now time.Time) Node {
	return Span(RoleTimeAgo, FormatTimeAgo(t, now))
}

func Percentage(value float64, decimals int) Node {
	return Span(RolePercentage, FormatPercentage(value, decimals))
}

func Rate(bytesPerSecond float64) Node {
	return Span(RoleRate, FormatRate(bytesPerSecond))
}

func Number(n int64) Node {
	return Span(RoleNumber, FormatNumber(n))
}
