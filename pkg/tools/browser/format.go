package browser

import (
	"encoding/json"
	"fmt"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

func (t *Tool) FormatUse(input map[string]any, _ format.Destination) format.Entry {
	in, err := decodeInput(input)
	if err != nil {
		in = Input{}
	}
	browser := in.Browser
	if browser == "" {
		browser = t.cfg.Browser
	}

	urls := make([]format.Node, 0, len(in.URLs))
	for _, u := range in.URLs {
		if isAbsoluteURL(u) {
			urls = append(urls, format.URL(u))
		} else {
			urls = append(urls, format.Filename(u))
		}
	}
	content := format.Lines(
		format.Label("Browser", format.Text(string(browser))),
		format.List(urls...),
	)
	if len(urls) == 0 {
		content = format.Muted("No URLs given")
	}
	return format.Entry{
		Title:   format.Title(format.TitleToolUse, Name),
		Content: content,
		Preview: format.Text(fmt.Sprintf("Opening %d %s", len(in.URLs), plural(len(in.URLs), "URL"))),
	}
}

func (t *Tool) FormatResult(content tool.ResultContent, _ format.Destination) format.Entry {
	entry := format.Entry{Title: format.Title(format.TitleToolResult, Name)}
	out, ok := outputFrom(content.Data)
	if !ok {
		entry.Content = format.Text(content.Text())
		entry.Preview = format.Text(content.Text())
		return entry
	}

	failed := out.Failed()
	state := format.StateSuccess
	switch {
	case failed == len(out.Results):
		state = format.StateError
	case failed > 0:
		state = format.StateWarning
	}
	summary := Summarize(out)
	entry.Subtitle = format.Status(state, summary)

	items := make([]format.Node, 0, len(out.Results))
	for _, r := range out.Results {
		if r.OK {
			items = append(items, format.Fragment(format.Success("opened "), format.URL(r.URL)))
			continue
		}
		items = append(items, format.Fragment(format.Error("failed "), format.URL(r.URL), format.Muted(": "+r.Error)))
	}
	entry.Content = format.List(items...)
	entry.Preview = format.Text(summary)
	return entry
}

func outputFrom(data any) (Output, bool) {
	switch v := data.(type) {
	case Output:
		return v, true
	case *Output:
		if v == nil {
			return Output{}, false
		}
		return *v, true
	case nil:
		return Output{}, false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Output{}, false
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil || out.Results == nil {
		return Output{}, false
	}
	return out, true
}
