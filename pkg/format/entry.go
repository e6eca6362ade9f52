package format

// Entry is a formatted log entry for one tool use or tool result. Preview is
// a short one-line summary; Content holds the full body.
type Entry struct {
	Title    Node
	Subtitle Node
	Content  Node
	Preview  Node
}

// RenderedEntry is an Entry rendered for one destination. Rich fields hold
// HTML fragments.
type RenderedEntry struct {
	Destination Destination `json:"destination"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle,omitempty"`
	Content     string      `json:"content"`
	Preview     string      `json:"preview,omitempty"`
}

// Renderer renders entries with a fixed pair of themes.
type Renderer struct {
	Console ConsoleTheme
	Rich    RichTheme
}

// NewRenderer returns a renderer with the default themes.
func NewRenderer() Renderer {
	return Renderer{Console: DefaultConsoleTheme(), Rich: DefaultRichTheme()}
}

// Node renders a single node for dest. Unknown destinations fall back to
// plain text.
func (r Renderer) Node(n Node, dest Destination) string {
	switch dest {
	case Console:
		return RenderConsole(n, r.Console)
	case Rich:
		return RenderHTML(n, r.Rich)
	default:
		return n.PlainText()
	}
}

// Entry renders every field of e for dest.
func (r Renderer) Entry(e Entry, dest Destination) RenderedEntry {
	return RenderedEntry{
		Destination: dest,
		Title:       r.Node(e.Title, dest),
		Subtitle:    r.Node(e.Subtitle, dest),
		Content:     r.Node(e.Content, dest),
		Preview:     r.Node(e.Preview, dest),
	}
}

// ErrorEntry is the fallback shown when a tool's formatter fails.
func ErrorEntry(titlePrefix, toolName, reason string) Entry {
	return Entry{
		Title:    Title(titlePrefix, toolName),
		Subtitle: Status(StateError, "formatting failed"),
		Content:  Error(reason),
		Preview:  Error("Unable to format entry"),
	}
}
