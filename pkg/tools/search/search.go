// Package search implements the search_project tool: find project files by
// name pattern, modification date, size and content.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

const (
	Name = "search_project"

	dateLayout         = "2006-01-02"
	defaultMaxFileSize = 10 << 20
	binarySniffBytes   = 8000
	failOp             = "searching project"
)

// Input is the accepted input. Every criterion is optional; an empty input
// lists every non-ignored file.
type Input struct {
	ContentPattern string `json:"contentPattern,omitempty"`
	CaseSensitive  bool   `json:"caseSensitive,omitempty" jsonschema:"default=false"`
	FilePattern    string `json:"filePattern,omitempty"`
	DateAfter      string `json:"dateAfter,omitempty" jsonschema:"pattern=^[0-9]{4}-[0-9]{2}-[0-9]{2}$"`
	DateBefore     string `json:"dateBefore,omitempty" jsonschema:"pattern=^[0-9]{4}-[0-9]{2}-[0-9]{2}$"`
	SizeMin        *int64 `json:"sizeMin,omitempty" jsonschema:"minimum=0"`
	SizeMax        *int64 `json:"sizeMax,omitempty" jsonschema:"minimum=0"`
}

// Match is one file that satisfied every criterion.
type Match struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Output is the structured result payload.
type Output struct {
	Criteria Input   `json:"criteria"`
	Matches  []Match `json:"matches"`
}

// Config tunes the tool. Zero values select defaults.
type Config struct {
	// MaxFileSize bounds the files whose content is scanned.
	MaxFileSize int64 `json:"maxFileSize,omitempty" yaml:"maxFileSize"`
	// Ignore adds gitignore-style patterns to the project's .gitignore.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore"`
}

// Tool is the search_project tool.
type Tool struct {
	*tool.Base
	cfg Config
}

var _ tool.Tool = (*Tool)(nil)

const description = `Search project files by content (regular expression), file name patterns,
modification date and size. File name patterns are globs separated by "|"; a
pattern without "/" matches the base name anywhere in the tree. Dates use
YYYY-MM-DD in UTC: dateAfter includes that day, dateBefore excludes it. Files ignored
by .gitignore are skipped.`

func inputSchema() *schema.Schema {
	return schema.Describe(schema.MustReflect[Input](), map[string]string{
		"contentPattern": "Regular expression matched against file contents",
		"caseSensitive":  "Match contentPattern case-sensitively (default false)",
		"filePattern":    "Glob patterns separated by |, e.g. *.ts|src/**/*.go",
		"dateAfter":      "Only files modified on or after this date (YYYY-MM-DD, UTC)",
		"dateBefore":     "Only files modified before this date (YYYY-MM-DD, UTC)",
		"sizeMin":        "Minimum file size in bytes",
		"sizeMax":        "Maximum file size in bytes",
	})
}

// New builds the tool.
func New(cfg Config) *Tool {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	configuration := map[string]any{"maxFileSize": cfg.MaxFileSize}
	if len(cfg.Ignore) > 0 {
		configuration["ignore"] = append([]string(nil), cfg.Ignore...)
	}
	return &Tool{
		Base: tool.NewBase(tool.Descriptor{
			Name:          Name,
			Description:   description,
			Configuration: configuration,
			Features: tool.Features{
				IsIdempotent:        true,
				IsResourceIntensive: true,
			},
		}, inputSchema()),
		cfg: cfg,
	}
}

// criteria is Input after parsing.
type criteria struct {
	content  *regexp.Regexp
	patterns []string
	after    time.Time
	before   time.Time
	sizeMin  *int64
	sizeMax  *int64
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

func parseCriteria(in Input) (*criteria, error) {
	c := &criteria{sizeMin: in.SizeMin, sizeMax: in.SizeMax}

	if in.ContentPattern != "" {
		expr := in.ContentPattern
		if !in.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid content pattern: %v", tool.ErrInvalidInput, err)
		}
		c.content = re
	}

	for _, p := range SplitPatterns(in.FilePattern) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: invalid file pattern %q", tool.ErrInvalidInput, p)
		}
		c.patterns = append(c.patterns, p)
	}

	var err error
	if in.DateAfter != "" {
		if c.after, err = time.Parse(dateLayout, in.DateAfter); err != nil {
			return nil, fmt.Errorf("%w: invalid dateAfter %q", tool.ErrInvalidInput, in.DateAfter)
		}
	}
	if in.DateBefore != "" {
		if c.before, err = time.Parse(dateLayout, in.DateBefore); err != nil {
			return nil, fmt.Errorf("%w: invalid dateBefore %q", tool.ErrInvalidInput, in.DateBefore)
		}
	}
	return c, nil
}

// SplitPatterns splits a "|" separated pattern list, dropping blanks.
func SplitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *criteria) matchName(rel string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	base := path.Base(rel)
	for _, p := range c.patterns {
		target := rel
		if !strings.Contains(p, "/") {
			target = base
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// matchStat compares modification times in UTC; date bounds are UTC midnights.
func (c *criteria) matchStat(info os.FileInfo) bool {
	mod := info.ModTime().UTC()
	if !c.after.IsZero() && mod.Before(c.after) {
		return false
	}
	if !c.before.IsZero() && !mod.Before(c.before) {
		return false
	}
	if c.sizeMin != nil && info.Size() < *c.sizeMin {
		return false
	}
	if c.sizeMax != nil && info.Size() > *c.sizeMax {
		return false
	}
	return true
}

// Execute walks the project. Name and stat filters run first; file contents
// are only read for files that pass them.
func (t *Tool) Execute(ctx context.Context, _ interaction.Interaction, inv tool.Invocation, editor project.Editor) (*tool.Result, error) {
	if editor == nil {
		return nil, tool.Fail(failOp, errors.New("no project"))
	}
	in, err := decodeInput(inv.Input)
	if err != nil {
		return nil, tool.Fail(failOp, fmt.Errorf("%w: %v", tool.ErrInvalidInput, err))
	}
	crit, err := parseCriteria(in)
	if err != nil {
		return nil, tool.Fail(failOp, err)
	}

	matches, err := t.walk(ctx, editor.FS(), editor.ProjectRoot(), crit)
	if err != nil {
		return nil, tool.Fail(failOp, err)
	}

	out := Output{Criteria: in, Matches: matches}
	summary := fmt.Sprintf("Found %d files matching the search criteria: %s",
		len(matches), DescribeCriteria(in))

	var body strings.Builder
	body.WriteString(summary)
	for _, m := range matches {
		body.WriteString("\n")
		body.WriteString(m.Path)
	}
	return &tool.Result{
		Content:  tool.TextContent(body.String(), out),
		Response: summary,
	}, nil
}

func pluralFiles(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}

func (t *Tool) loadIgnore(fsys afero.Fs, root string) *ignore.GitIgnore {
	lines := append([]string(nil), t.cfg.Ignore...)
	if data, err := afero.ReadFile(fsys, filepath.Join(root, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

func (t *Tool) walk(ctx context.Context, fsys afero.Fs, root string, crit *criteria) ([]Match, error) {
	gi := t.loadIgnore(fsys, root)
	var matches []Match

	err := afero.Walk(fsys, root, func(p string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			// Unreadable entries are skipped rather than failing the search.
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if info.Name() == ".git" || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !crit.matchName(rel) || !crit.matchStat(info) {
			return nil
		}
		if crit.content != nil {
			ok, err := t.contentMatches(fsys, p, info, crit.content)
			if err != nil || !ok {
				return nil
			}
		}
		matches = append(matches, Match{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}

func (t *Tool) contentMatches(fsys afero.Fs, p string, info os.FileInfo, re *regexp.Regexp) (bool, error) {
	if info.Size() > t.cfg.MaxFileSize {
		return false, nil
	}
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		return false, err
	}
	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return false, nil
	}
	return re.Match(data), nil
}

// DescribeCriteria summarises the criteria in a single line.
func DescribeCriteria(in Input) string {
	var parts []string
	if in.ContentPattern != "" {
		sensitivity := "case-insensitive"
		if in.CaseSensitive {
			sensitivity = "case-sensitive"
		}
		parts = append(parts, fmt.Sprintf("content pattern %q (%s)", in.ContentPattern, sensitivity))
	}
	if in.FilePattern != "" {
		parts = append(parts, fmt.Sprintf("file pattern %q", in.FilePattern))
	}
	if in.DateAfter != "" {
		parts = append(parts, "modified on or after "+in.DateAfter)
	}
	if in.DateBefore != "" {
		parts = append(parts, "modified before "+in.DateBefore)
	}
	if in.SizeMin != nil {
		parts = append(parts, fmt.Sprintf("at least %d bytes", *in.SizeMin))
	}
	if in.SizeMax != nil {
		parts = append(parts, fmt.Sprintf("at most %d bytes", *in.SizeMax))
	}
	if len(parts) == 0 {
		return "all files"
	}
	return strings.Join(parts, ", ")
}
