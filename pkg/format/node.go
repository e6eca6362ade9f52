// Package format builds destination-agnostic log fragments for tool use and
// tool result entries and renders them for a terminal or a rich (HTML) view.
//
// Tools compose Nodes with the helpers in this package. Nothing here reads
// global state: styling comes from the ConsoleTheme or RichTheme handed to
// the renderer, and every function is total.
package format

import "strings"

// Destination selects how a log entry is rendered.
type Destination string

const (
	Console Destination = "console"
	Rich    Destination = "rich"
)

// Kind is the structural type of a Node.
type Kind string

const (
	KindText     Kind = "text"
	KindSpan     Kind = "span"
	KindLabel    Kind = "label"
	KindList     Kind = "list"
	KindBox      Kind = "box"
	KindCode     Kind = "code"
	KindFragment Kind = "fragment"
)

// Role names the semantic style applied to a span. Themes map roles to
// concrete styles.
type Role string

const (
	RoleTitle      Role = "title"
	RoleSubtitle   Role = "subtitle"
	RoleToolName   Role = "tool-name"
	RoleFilename   Role = "filename"
	RoleURL        Role = "url"
	RoleDate       Role = "date"
	RoleSize       Role = "size"
	RoleBoolean    Role = "boolean"
	RoleRegex      Role = "regex"
	RoleDuration   Role = "duration"
	RoleTimeAgo    Role = "time-ago"
	RolePercentage Role = "percentage"
	RoleRate       Role = "rate"
	RoleNumber     Role = "number"
	RoleLabel      Role = "label"
	RoleCode       Role = "code"
	RoleBox        Role = "box"
	RoleMuted      Role = "muted"
	RoleError      Role = "error"
	RoleSuccess    Role = "success"
	RoleWarning    Role = "warning"
	RoleRunning    Role = "running"
	RoleCompleted  Role = "completed"
	RoleFailed     Role = "failed"
	RolePending    Role = "pending"
)

// Node is one fragment of formatted output.
type Node struct {
	Kind     Kind
	Role     Role
	Text     string
	Attrs    map[string]string
	Children []Node
}

// IsZero reports whether n carries nothing to render.
func (n Node) IsZero() bool {
	return n.Kind == "" && n.Text == "" && len(n.Children) == 0
}

// PlainText flattens n to unstyled text, ignoring destination concerns.
func (n Node) PlainText() string {
	var b strings.Builder
	writePlain(&b, n)
	return b.String()
}

func writePlain(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindLabel:
		b.WriteString(n.Text)
		b.WriteString(": ")
		for _, c := range n.Children {
			writePlain(b, c)
		}
	case KindList:
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte('\n')
			}
			writePlain(b, c)
		}
	default:
		b.WriteString(n.Text)
		for _, c := range n.Children {
			writePlain(b, c)
		}
	}
}

// Text is an unstyled string.
func Text(s string) Node {
	return Node{Kind: KindText, Text: s}
}

// Span is s styled with role.
func Span(role Role, s string) Node {
	return Node{Kind: KindSpan, Role: role, Text: s}
}

// Label pairs a name with a value, as in "Pattern: foo".
func Label(name string, value ...Node) Node {
	return Node{Kind: KindLabel, Role: RoleLabel, Text: name, Children: value}
}

// List renders items one per line.
func List(items ...Node) Node {
	return Node{Kind: KindList, Children: items}
}

// Box frames its children and wraps long lines.
func Box(children ...Node) Node {
	return Node{Kind: KindBox, Role: RoleBox, Children: children}
}

// Code is a preformatted block. language is advisory.
func Code(text, language string) Node {
	n := Node{Kind: KindCode, Role: RoleCode, Text: text}
	if language != "" {
		n.Attrs = map[string]string{"language": language}
	}
	return n
}

// Fragment groups nodes without adding structure.
func Fragment(children ...Node) Node {
	return Node{Kind: KindFragment, Children: children}
}

// Join places sep between the non-zero nodes.
func Join(sep string, nodes ...Node) Node {
	out := make([]Node, 0, len(nodes)*2)
	for _, n := range nodes {
		if n.IsZero() {
			continue
		}
		if len(out) > 0 && sep != "" {
			out = append(out, Text(sep))
		}
		out = append(out, n)
	}
	return Fragment(out...)
}

// Lines joins nodes with newlines.
func Lines(nodes ...Node) Node {
	return Join("\n", nodes...)
}
