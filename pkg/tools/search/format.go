package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

const previewFiles = 3

// FormatUse lists the criteria that were given. Unknown or mistyped fields
// are ignored.
func (t *Tool) FormatUse(input map[string]any, _ format.Destination) format.Entry {
	in, err := decodeInput(input)
	if err != nil {
		in = Input{}
	}
	var labels []format.Node
	if in.ContentPattern != "" {
		labels = append(labels,
			format.Label("Content pattern", format.Regex(in.ContentPattern)),
			format.Label("Case sensitive", format.Bool(in.CaseSensitive, format.FormatYesNo)))
	}
	if in.FilePattern != "" {
		var globs []format.Node
		for _, p := range SplitPatterns(in.FilePattern) {
			globs = append(globs, format.Regex(p))
		}
		labels = append(labels, format.Label("File pattern", format.Join(" | ", globs...)))
	}
	if in.DateAfter != "" {
		labels = append(labels, format.Label("Modified after", format.Text(in.DateAfter)))
	}
	if in.DateBefore != "" {
		labels = append(labels, format.Label("Modified before", format.Text(in.DateBefore)))
	}
	if in.SizeMin != nil {
		labels = append(labels, format.Label("Minimum size", format.Size(*in.SizeMin)))
	}
	if in.SizeMax != nil {
		labels = append(labels, format.Label("Maximum size", format.Size(*in.SizeMax)))
	}
	if len(labels) == 0 {
		labels = append(labels, format.Muted("No criteria, listing all files"))
	}
	return format.Entry{
		Title:   format.Title(format.TitleToolUse, Name),
		Content: format.Lines(labels...),
		Preview: format.Text("Searching project: " + DescribeCriteria(in)),
	}
}

// FormatResult lists matched files. Content without a structured payload is
// shown as plain text.
func (t *Tool) FormatResult(content tool.ResultContent, _ format.Destination) format.Entry {
	entry := format.Entry{Title: format.Title(format.TitleToolResult, Name)}

	out, ok := outputFrom(content.Data)
	if !ok {
		text := content.Text()
		entry.Content = format.Text(text)
		entry.Preview = format.Text(firstLine(text))
		return entry
	}

	n := len(out.Matches)
	entry.Subtitle = format.Status(format.StateCompleted, fmt.Sprintf("%d %s", n, pluralFiles(n)))
	if n == 0 {
		entry.Content = format.Muted("No files matched")
		entry.Preview = format.Text("No matching files")
		return entry
	}

	items := make([]format.Node, 0, n)
	names := make([]format.Node, 0, previewFiles)
	for i, m := range out.Matches {
		items = append(items, format.Fragment(
			format.Filename(m.Path),
			format.Muted(" ("),
			format.Size(m.Size),
			format.Muted(", "),
			format.Date(m.ModTime),
			format.Muted(")"),
		))
		if i < previewFiles {
			names = append(names, format.Filename(m.Path))
		}
	}
	preview := []format.Node{format.Text(fmt.Sprintf("Found %d %s: ", n, pluralFiles(n))), format.Join(", ", names...)}
	if n > previewFiles {
		preview = append(preview, format.Muted(fmt.Sprintf(" and %d more", n-previewFiles)))
	}

	entry.Content = format.Lines(
		format.Label("Criteria", format.Text(DescribeCriteria(out.Criteria))),
		format.List(items...),
	)
	entry.Preview = format.Fragment(preview...)
	return entry
}

func outputFrom(data any) (Output, bool) {
	switch v := data.(type) {
	case Output:
		return v, true
	case *Output:
		if v != nil {
			return *v, true
		}
		return Output{}, false
	case nil:
		return Output{}, false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Output{}, false
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return Output{}, false
	}
	return out, true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
