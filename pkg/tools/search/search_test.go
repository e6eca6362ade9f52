package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

const root = "/work/app"

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newProject(t *testing.T) *project.LocalEditor {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := []struct {
		path    string
		content string
		mod     time.Time
	}{
		{"src/main.go", "package main\n\n// TODO: handle flags\n", day("2024-03-10 09:00")},
		{"src/util.go", "package main\n\nfunc helper() {}\n", day("2024-01-05 12:00")},
		{"README.md", "A short todo list\n", day("2024-03-15 00:00")},
		{"docs/guide/setup.md", "Setup steps\n", day("2024-02-01 08:30")},
		{"build/out.js", "// TODO generated\n", day("2024-03-11 10:00")},
		{"debug.log", "TODO in a log\n", day("2024-03-12 10:00")},
		{".git/config", "[core] TODO\n", day("2024-03-12 10:00")},
		{".gitignore", "build/\n*.log\n", day("2023-12-01 10:00")},
		{"assets/blob.bin", "TODO\x00\x01binary", day("2024-03-10 09:00")},
	}
	for _, f := range files {
		p := root + "/" + f.path
		require.NoError(t, afero.WriteFile(fs, p, []byte(f.content), 0o644))
		require.NoError(t, fs.Chtimes(p, f.mod, f.mod))
	}
	e, err := project.NewLocalEditor(root, project.Options{Fs: fs})
	require.NoError(t, err)
	return e
}

func run(t *testing.T, tl *Tool, input map[string]any) (*tool.Result, error) {
	t.Helper()
	require.True(t, tl.Validate(input), "input should pass the schema: %v", input)
	return tl.Execute(context.Background(), nil, tool.Invocation{ID: "inv-1", ToolName: Name, Input: input}, newProject(t))
}

func matchedPaths(t *testing.T, res *tool.Result) []string {
	t.Helper()
	out, ok := res.Content.Data.(Output)
	require.True(t, ok)
	paths := make([]string, 0, len(out.Matches))
	for _, m := range out.Matches {
		paths = append(paths, m.Path)
	}
	return paths
}

func TestDescriptor(t *testing.T) {
	d := New(Config{}).Descriptor()
	assert.Equal(t, Name, d.Name)
	assert.True(t, d.Features.IsIdempotent)
	assert.True(t, d.Features.IsResourceIntensive)
	assert.False(t, d.Features.MutatesResources)
	assert.EqualValues(t, defaultMaxFileSize, d.Configuration["maxFileSize"])
}

func TestValidate(t *testing.T) {
	tl := New(Config{})
	cases := []struct {
		name  string
		input any
		want  bool
	}{
		{"empty", map[string]any{}, true},
		{"everything", map[string]any{
			"contentPattern": "TODO", "caseSensitive": true, "filePattern": "*.go",
			"dateAfter": "2024-01-01", "dateBefore": "2024-12-31",
			"sizeMin": float64(0), "sizeMax": float64(100),
		}, true},
		{"bad date format", map[string]any{"dateAfter": "yesterday"}, false},
		{"negative size", map[string]any{"sizeMin": float64(-1)}, false},
		{"wrong type", map[string]any{"caseSensitive": "yes"}, false},
		{"not an object", []any{"TODO"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tl.Validate(tc.input))
		})
	}
}

func TestSearchContentIsCaseInsensitiveByDefault(t *testing.T) {
	res, err := run(t, New(Config{}), map[string]any{"contentPattern": "todo"})
	require.NoError(t, err)

	// build/ and *.log are ignored, .git is never searched and binaries are skipped.
	assert.Equal(t, []string{"README.md", "src/main.go"}, matchedPaths(t, res))
	assert.Contains(t, res.Content.Text(), "Found 2 files matching the search criteria:")
	assert.Contains(t, res.Content.Text(), "\nREADME.md\nsrc/main.go")
	assert.Equal(t, `Found 2 files matching the search criteria: content pattern "todo" (case-insensitive)`, res.Response)
	assert.Nil(t, res.Finalization)
}

func TestSearchContentCaseSensitive(t *testing.T) {
	res, err := run(t, New(Config{}), map[string]any{"contentPattern": "TODO", "caseSensitive": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, matchedPaths(t, res))
	assert.Contains(t, res.Response, "Found 1 files matching")
}

func TestSearchResponseWordingIsStableForOneMatch(t *testing.T) {
	res, err := run(t, New(Config{}), map[string]any{"filePattern": "util.go", "contentPattern": "func"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/util.go"}, matchedPaths(t, res))
	assert.Equal(t, `Found 1 files matching the search criteria: content pattern "func" (case-insensitive), file pattern "util.go"`, res.Response)
	assert.True(t, strings.HasPrefix(res.Content.Text(), res.Response))

	// The display keeps the singular.
	e := New(Config{}).FormatResult(res.Content, format.Console)
	assert.Equal(t, "1 file", e.Subtitle.PlainText())
}

func TestSearchFilePatterns(t *testing.T) {
	tl := New(Config{})

	res, err := run(t, tl, map[string]any{"filePattern": "*.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go", "src/util.go"}, matchedPaths(t, res))

	res, err = run(t, tl, map[string]any{"filePattern": "docs/**/*.md | *.bin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/blob.bin", "docs/guide/setup.md"}, matchedPaths(t, res))

	_, err = run(t, tl, map[string]any{"filePattern": "src/[.go"})
	require.ErrorIs(t, err, tool.ErrInvalidInput)
}

func TestSearchWithoutCriteriaListsVisibleFiles(t *testing.T) {
	res, err := run(t, New(Config{}), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		".gitignore",
		"README.md",
		"assets/blob.bin",
		"docs/guide/setup.md",
		"src/main.go",
		"src/util.go",
	}, matchedPaths(t, res))
	assert.Contains(t, res.Response, "all files")
}

func TestSearchExtraIgnorePatterns(t *testing.T) {
	res, err := run(t, New(Config{Ignore: []string{"docs/", "*.bin"}}), map[string]any{"filePattern": "*.md|*.bin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, matchedPaths(t, res))
}

func TestSearchDateRange(t *testing.T) {
	tl := New(Config{})

	res, err := run(t, tl, map[string]any{"dateAfter": "2024-03-10", "dateBefore": "2024-03-15", "filePattern": "*.go|*.md"})
	require.NoError(t, err)
	// dateAfter includes its day, dateBefore excludes its day.
	assert.Equal(t, []string{"src/main.go"}, matchedPaths(t, res))

	res, err = run(t, tl, map[string]any{"dateBefore": "2024-02-01", "filePattern": "*.go|*.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/util.go"}, matchedPaths(t, res))
}

func TestSearchDateBoundsAreUTC(t *testing.T) {
	fs := afero.NewMemMapFs()
	east := time.FixedZone("UTC+5", 5*60*60)
	// 01:00 on the 10th at UTC+5 is still the 9th in UTC.
	early := time.Date(2024, 3, 10, 1, 0, 0, 0, east)
	late := time.Date(2024, 3, 10, 6, 0, 0, 0, east)
	for name, mod := range map[string]time.Time{"early.go": early, "late.go": late} {
		p := root + "/" + name
		require.NoError(t, afero.WriteFile(fs, p, []byte("package main\n"), 0o644))
		require.NoError(t, fs.Chtimes(p, mod, mod))
	}
	editor, err := project.NewLocalEditor(root, project.Options{Fs: fs})
	require.NoError(t, err)

	tl := New(Config{})
	exec := func(input map[string]any) []string {
		res, err := tl.Execute(context.Background(), nil, tool.Invocation{ToolName: Name, Input: input}, editor)
		require.NoError(t, err)
		return matchedPaths(t, res)
	}
	assert.Equal(t, []string{"late.go"}, exec(map[string]any{"dateAfter": "2024-03-10"}))
	assert.Equal(t, []string{"early.go"}, exec(map[string]any{"dateBefore": "2024-03-10"}))
}

func TestSearchSizeRange(t *testing.T) {
	res, err := run(t, New(Config{}), map[string]any{"sizeMin": float64(18), "sizeMax": float64(30), "filePattern": "*.go|*.md"})
	require.NoError(t, err)
	// main.go is 36 bytes, util.go 31, README.md 18, setup.md 12.
	assert.Equal(t, []string{"README.md"}, matchedPaths(t, res))

	out := res.Content.Data.(Output)
	require.Len(t, out.Matches, 1)
	assert.EqualValues(t, 18, out.Matches[0].Size)
	assert.Equal(t, day("2024-03-15 00:00"), out.Matches[0].ModTime.UTC())
}

func TestSearchMaxFileSizeSkipsContent(t *testing.T) {
	res, err := run(t, New(Config{MaxFileSize: 20}), map[string]any{"contentPattern": "todo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, matchedPaths(t, res))
}

func TestSearchRejectsImpossibleDate(t *testing.T) {
	_, err := run(t, New(Config{}), map[string]any{"dateAfter": "2024-02-30"})
	require.Error(t, err)
	assert.ErrorIs(t, err, tool.ErrInvalidInput)

	var execErr *tool.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "searching project", execErr.Op)
	assert.Contains(t, err.Error(), "Error searching project: ")
	assert.Contains(t, err.Error(), "2024-02-30")
}

func TestSearchRejectsInvalidRegex(t *testing.T) {
	_, err := run(t, New(Config{}), map[string]any{"contentPattern": "("})
	require.ErrorIs(t, err, tool.ErrInvalidInput)
	assert.Contains(t, err.Error(), "invalid content pattern")
}

func TestSearchHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Execute(ctx, nil, tool.Invocation{Input: map[string]any{}}, newProject(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSearchRequiresProject(t *testing.T) {
	_, err := New(Config{}).Execute(context.Background(), nil, tool.Invocation{Input: map[string]any{}}, nil)
	require.Error(t, err)
}

func TestFormatUse(t *testing.T) {
	tl := New(Config{})
	e := tl.FormatUse(map[string]any{
		"contentPattern": "TODO",
		"filePattern":    "*.go|*.md",
		"sizeMin":        float64(2048),
	}, format.Console)

	assert.Equal(t, "Tool Use: search_project", e.Title.PlainText())
	content := format.RenderConsole(e.Content, format.PlainConsoleTheme())
	assert.Equal(t, "Content pattern: TODO\nCase sensitive: No\nFile pattern: *.go | *.md\nMinimum size: 2.0 KB", content)

	empty := tl.FormatUse(map[string]any{"sizeMin": "not a number"}, format.Rich)
	assert.Equal(t, "No criteria, listing all files", empty.Content.PlainText())
	assert.Equal(t, "Searching project: all files", empty.Preview.PlainText())

	assert.NotPanics(t, func() { tl.FormatUse(nil, format.Console) })
}

func TestFormatResult(t *testing.T) {
	tl := New(Config{})
	res, err := run(t, tl, map[string]any{})
	require.NoError(t, err)

	e := tl.FormatResult(res.Content, format.Console)
	assert.Equal(t, "Tool Result: search_project", e.Title.PlainText())
	assert.Equal(t, "6 files", e.Subtitle.PlainText())
	assert.Equal(t, "Found 6 files: .gitignore, README.md, assets/blob.bin and 3 more", e.Preview.PlainText())
	assert.Contains(t, e.Content.PlainText(), "src/util.go (31 B, 2024-01-05 12:00:00)")

	// Payloads that went through JSON still format.
	asMap := map[string]any{"criteria": map[string]any{}, "matches": []any{
		map[string]any{"path": "a.go", "size": 10, "modTime": "2024-01-01T00:00:00Z"},
	}}
	e = tl.FormatResult(tool.ResultContent{Data: asMap}, format.Rich)
	assert.Equal(t, "Found 1 file: a.go", e.Preview.PlainText())

	e = tl.FormatResult(tool.TextContent("plain\nbody", nil), format.Console)
	assert.Equal(t, "plain", e.Preview.PlainText())

	e = tl.FormatResult(tool.ResultContent{Data: Output{}}, format.Console)
	assert.Equal(t, "No matching files", e.Preview.PlainText())
}

func TestFormattingIsIdempotent(t *testing.T) {
	tl := New(Config{})
	res, err := run(t, tl, map[string]any{"contentPattern": "todo"})
	require.NoError(t, err)
	input := map[string]any{"contentPattern": "todo", "filePattern": "*.go|*.md", "dateAfter": "2024-01-01"}
	renderer := format.NewRenderer()

	for _, dest := range []format.Destination{format.Console, format.Rich, "plain"} {
		use := tl.FormatUse(input, dest)
		if diff := cmp.Diff(use, tl.FormatUse(input, dest)); diff != "" {
			t.Errorf("FormatUse(%s) changed between calls (-first +second):\n%s", dest, diff)
		}
		result := tl.FormatResult(res.Content, dest)
		if diff := cmp.Diff(result, tl.FormatResult(res.Content, dest)); diff != "" {
			t.Errorf("FormatResult(%s) changed between calls (-first +second):\n%s", dest, diff)
		}
		if diff := cmp.Diff(renderer.Entry(result, dest), renderer.Entry(tl.FormatResult(res.Content, dest), dest)); diff != "" {
			t.Errorf("rendered result (%s) changed between calls (-first +second):\n%s", dest, diff)
		}
	}
}

func TestSplitPatterns(t *testing.T) {
	assert.Equal(t, []string{"*.ts", "src/**/*.go"}, SplitPatterns(" *.ts || src/**/*.go |"))
	assert.Empty(t, SplitPatterns(""))
}
