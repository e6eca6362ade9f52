package format

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-wordwrap"
)

// ConsoleTheme maps roles to terminal styles. A role missing from Styles
// renders as plain text.
type ConsoleTheme struct {
	Styles map[Role]lipgloss.Style
	// Width is the wrap column for box content; zero disables wrapping.
	Width  uint
	Bullet string
}

// DefaultConsoleTheme is the colored terminal theme.
func DefaultConsoleTheme() ConsoleTheme {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return ConsoleTheme{
		Width:  100,
		Bullet: "• ",
		Styles: map[Role]lipgloss.Style{
			RoleTitle:      fg("12").Bold(true),
			RoleSubtitle:   fg("8").Italic(true),
			RoleToolName:   fg("14").Bold(true),
			RoleFilename:   fg("11"),
			RoleURL:        fg("12").Underline(true),
			RoleDate:       fg("13"),
			RoleSize:       fg("10"),
			RoleBoolean:    fg("13"),
			RoleRegex:      fg("11").Italic(true),
			RoleDuration:   fg("14"),
			RoleTimeAgo:    fg("8"),
			RolePercentage: fg("10"),
			RoleRate:       fg("10"),
			RoleNumber:     fg("14"),
			RoleLabel:      lipgloss.NewStyle().Bold(true),
			RoleCode:       fg("7"),
			RoleBox:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
			RoleMuted:      fg("8"),
			RoleError:      fg("9").Bold(true),
			RoleSuccess:    fg("10"),
			RoleWarning:    fg("11"),
			RoleRunning:    fg("12"),
			RoleCompleted:  fg("10"),
			RoleFailed:     fg("9"),
			RolePending:    fg("8"),
		},
	}
}

// PlainConsoleTheme renders without escape sequences or borders.
func PlainConsoleTheme() ConsoleTheme {
	return ConsoleTheme{Width: 80, Bullet: "• "}
}

func (t ConsoleTheme) apply(role Role, s string) string {
	style, ok := t.Styles[role]
	if !ok || s == "" {
		return s
	}
	return style.Render(s)
}

// RenderConsole renders n for a terminal.
func RenderConsole(n Node, theme ConsoleTheme) string {
	var b strings.Builder
	theme.write(&b, n)
	return b.String()
}

func (t ConsoleTheme) write(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindSpan:
		b.WriteString(t.apply(n.Role, n.Text))
	case KindLabel:
		b.WriteString(t.apply(RoleLabel, n.Text+":"))
		if len(n.Children) > 0 {
			b.WriteByte(' ')
		}
		t.writeChildren(b, n.Children)
	case KindList:
		for i, item := range n.Children {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(t.Bullet)
			t.write(b, item)
		}
	case KindBox:
		var inner strings.Builder
		t.writeChildren(&inner, n.Children)
		content := inner.String()
		if t.Width > 0 {
			content = wordwrap.WrapString(content, t.Width)
		}
		b.WriteString(t.apply(RoleBox, content))
	case KindCode:
		lines := strings.Split(strings.TrimRight(n.Text, "\n"), "\n")
		for i, line := range lines {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(t.apply(RoleCode, "  "+line))
		}
	default:
		b.WriteString(n.Text)
		t.writeChildren(b, n.Children)
	}
}

func (t ConsoleTheme) writeChildren(b *strings.Builder, children []Node) {
	for _, c := range children {
		t.write(b, c)
	}
}
