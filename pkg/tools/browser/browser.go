// Package browser implements the open_in_browser tool, which opens web URLs
// and project files in a local browser.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

const (
	Name = "open_in_browser"

	// MaxURLs caps a single call.
	MaxURLs = 6

	failOp = "opening URLs"
)

// Input is the accepted input.
type Input struct {
	URLs    []string `json:"urls" jsonschema:"minItems=1,maxItems=6"`
	Browser Browser  `json:"browser,omitempty" jsonschema:"enum=default,enum=chrome,enum=firefox,enum=safari,enum=edge,default=default"`
}

// Opened is the outcome for one requested entry.
type Opened struct {
	Input string `json:"input"`
	URL   string `json:"url"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Output is the structured result payload. Results keep the request order.
type Output struct {
	Browser Browser  `json:"browser"`
	Results []Opened `json:"results"`
}

// Failed counts the entries that could not be opened.
func (o Output) Failed() int {
	n := 0
	for _, r := range o.Results {
		if !r.OK {
			n++
		}
	}
	return n
}

// Config tunes the tool.
type Config struct {
	// Browser is used when a call does not name one.
	Browser Browser `json:"browser,omitempty" yaml:"browser"`
}

// Tool is the open_in_browser tool.
type Tool struct {
	*tool.Base
	cfg    Config
	opener Opener
}

var _ tool.Tool = (*Tool)(nil)

func inputSchema() *schema.Schema {
	return schema.Describe(schema.MustReflect[Input](), map[string]string{
		"urls":    "URLs or project-relative file paths to open (at most 6)",
		"browser": "Browser to use; default uses the system handler",
	})
}

// New builds the tool. A nil opener uses the platform's URL handler.
func New(cfg Config, opener Opener) *Tool {
	if cfg.Browser == "" {
		cfg.Browser = Default
	}
	if opener == nil {
		opener = SystemOpener{}
	}
	return &Tool{
		Base: tool.NewBase(tool.Descriptor{
			Name: Name,
			Description: "Open up to 6 URLs or project files in a web browser. Relative paths " +
				"are resolved against the project root and opened as file:// URLs.",
			Configuration: map[string]any{"browser": string(cfg.Browser), "maxUrls": MaxURLs},
			Features:      tool.Features{RequiresNetwork: true},
		}, inputSchema()),
		cfg:    cfg,
		opener: opener,
	}
}

func decodeInput(raw map[string]any) (Input, error) {
	var in Input
	data, err := json.Marshal(raw)
	if err != nil {
		return in, err
	}
	err = json.Unmarshal(data, &in)
	return in, err
}

// isAbsoluteURL rejects single letter schemes so Windows drive paths stay
// paths.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || len(u.Scheme) < 2 {
		return false
	}
	return u.Host != "" || u.Opaque != "" || u.Scheme == "file"
}

// FileURL converts an absolute path to a file:// URL.
func FileURL(abs string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// resolve maps an entry to the URL that is opened. Containment is checked
// before the file is touched.
func resolve(ctx context.Context, editor project.Editor, entry string) (string, error) {
	if isAbsoluteURL(entry) {
		return entry, nil
	}
	if editor == nil {
		return "", fmt.Errorf("%s is not a URL and no project is open", entry)
	}
	abs, err := editor.ResolveProjectFilePath(ctx, entry)
	if err != nil {
		return "", err
	}
	info, err := editor.FS().Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", tool.ErrNotFound, entry)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", entry)
	}
	return FileURL(abs), nil
}

// Execute resolves every entry before opening any. Resolution failures fail
// the call; open failures are reported per entry in a successful result.
func (t *Tool) Execute(ctx context.Context, _ interaction.Interaction, inv tool.Invocation, editor project.Editor) (*tool.Result, error) {
	in, err := decodeInput(inv.Input)
	if err != nil {
		return nil, tool.Fail(failOp, fmt.Errorf("%w: %v", tool.ErrInvalidInput, err))
	}
	if len(in.URLs) > MaxURLs {
		return nil, tool.Fail(failOp, fmt.Errorf("%w: Too many URLs (%d given, at most %d)", tool.ErrTooManyItems, len(in.URLs), MaxURLs))
	}
	if len(in.URLs) == 0 {
		return nil, tool.Fail(failOp, fmt.Errorf("%w: no URLs given", tool.ErrInvalidInput))
	}
	browser := in.Browser
	if browser == "" {
		browser = t.cfg.Browser
	}

	out := Output{Browser: browser, Results: make([]Opened, len(in.URLs))}
	for i, entry := range in.URLs {
		target, err := resolve(ctx, editor, entry)
		if err != nil {
			return nil, tool.Fail(failOp, err)
		}
		out.Results[i] = Opened{Input: entry, URL: target}
	}

	var g errgroup.Group
	for i := range out.Results {
		g.Go(func() error {
			r := &out.Results[i]
			if err := t.opener.Open(ctx, r.URL, browser); err != nil {
				r.Error = err.Error()
				return nil
			}
			r.OK = true
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(out)
	return &tool.Result{
		Content:  tool.TextContent(describe(out, summary), out),
		Response: summary,
	}, nil
}

// Summarize is the one-line outcome of a call.
func Summarize(out Output) string {
	total := len(out.Results)
	failed := out.Failed()
	if failed == 0 {
		return fmt.Sprintf("Opened %d %s in %s browser", total, plural(total, "URL"), out.Browser)
	}
	return fmt.Sprintf("Encountered %d %s while opening URLs; opened %d of %d",
		failed, plural(failed, "error"), total-failed, total)
}

func describe(out Output, summary string) string {
	var b strings.Builder
	b.WriteString(summary)
	for _, r := range out.Results {
		b.WriteString("\n")
		if r.OK {
			b.WriteString("opened " + r.URL)
			continue
		}
		b.WriteString("failed " + r.URL + ": " + r.Error)
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
