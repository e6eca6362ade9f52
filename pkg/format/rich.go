package format

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RichTheme maps roles to CSS class names for HTML output.
type RichTheme struct {
	Classes map[Role]string
}

// DefaultRichTheme prefixes every role with "tool-".
func DefaultRichTheme() RichTheme {
	roles := []Role{
		RoleTitle, RoleSubtitle, RoleToolName, RoleFilename, RoleURL, RoleDate,
		RoleSize, RoleBoolean, RoleRegex, RoleDuration, RoleTimeAgo, RolePercentage,
		RoleRate, RoleNumber, RoleLabel, RoleCode, RoleBox, RoleMuted, RoleError,
		RoleSuccess, RoleWarning, RoleRunning, RoleCompleted, RoleFailed, RolePending,
	}
	classes := make(map[Role]string, len(roles))
	for _, r := range roles {
		classes[r] = "tool-" + string(r)
	}
	return RichTheme{Classes: classes}
}

// RenderRich converts n into HTML nodes. The result may hold several
// siblings; callers append them to a container of their choice.
func RenderRich(n Node, theme RichTheme) []*html.Node {
	return theme.build(n)
}

// RenderHTML renders n as an HTML fragment string.
func RenderHTML(n Node, theme RichTheme) string {
	var buf bytes.Buffer
	for _, node := range RenderRich(n, theme) {
		if err := html.Render(&buf, node); err != nil {
			return html.EscapeString(n.PlainText())
		}
	}
	return buf.String()
}

func (t RichTheme) build(n Node) []*html.Node {
	switch n.Kind {
	case KindSpan:
		if href := n.Attrs["href"]; href != "" {
			a := t.element(atom.A, n.Role, text(n.Text))
			a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: href})
			return []*html.Node{a}
		}
		return []*html.Node{t.element(atom.Span, n.Role, text(n.Text))}
	case KindLabel:
		div := t.element(atom.Div, "", nil)
		div.AppendChild(t.element(atom.Span, RoleLabel, text(n.Text+":")))
		if len(n.Children) > 0 {
			div.AppendChild(text(" "))
		}
		t.appendAll(div, n.Children)
		return []*html.Node{div}
	case KindList:
		ul := t.element(atom.Ul, "", nil)
		for _, item := range n.Children {
			li := t.element(atom.Li, "", nil)
			t.appendAll(li, []Node{item})
			ul.AppendChild(li)
		}
		return []*html.Node{ul}
	case KindBox:
		div := t.element(atom.Div, RoleBox, nil)
		t.appendAll(div, n.Children)
		return []*html.Node{div}
	case KindCode:
		code := t.element(atom.Code, "", text(n.Text))
		if lang := n.Attrs["language"]; lang != "" {
			code.Attr = append(code.Attr, html.Attribute{Key: "class", Val: "language-" + lang})
		}
		pre := t.element(atom.Pre, RoleCode, nil)
		pre.AppendChild(code)
		return []*html.Node{pre}
	default:
		out := make([]*html.Node, 0, len(n.Children)+1)
		if n.Text != "" {
			out = append(out, textWithBreaks(n.Text)...)
		}
		for _, c := range n.Children {
			out = append(out, t.build(c)...)
		}
		return out
	}
}

func (t RichTheme) appendAll(parent *html.Node, children []Node) {
	for _, c := range children {
		for _, node := range t.build(c) {
			parent.AppendChild(node)
		}
	}
}

func (t RichTheme) element(a atom.Atom, role Role, child *html.Node) *html.Node {
	el := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if role != "" {
		if class := t.Classes[role]; class != "" {
			el.Attr = append(el.Attr, html.Attribute{Key: "class", Val: class})
		}
	}
	if child != nil {
		el.AppendChild(child)
	}
	return el
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// textWithBreaks turns newlines in plain text into <br> elements.
func textWithBreaks(s string) []*html.Node {
	parts := strings.Split(s, "\n")
	out := make([]*html.Node, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, &html.Node{Type: html.ElementNode, DataAtom: atom.Br, Data: "br"})
		}
		if p != "" {
			out = append(out, text(p))
		}
	}
	return out
}
