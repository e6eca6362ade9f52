// Package toolconfig loads per-tool settings from TOOL.md files: YAML
// frontmatter holding settings followed by free-form notes.
package toolconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const FileName = "TOOL.md"

var errInvalidYAML = errors.New("invalid tool YAML frontmatter")

type frontmatter struct {
	Tool     string    `yaml:"tool"`
	Enabled  *bool     `yaml:"enabled"`
	Tags     []string  `yaml:"tags"`
	Settings yaml.Node `yaml:"settings"`
}

// Entry is the configuration of one tool.
type Entry struct {
	Tool    string
	Enabled bool
	Tags    []string
	// Notes is the markdown body after the frontmatter.
	Notes      string
	SourcePath string

	settings yaml.Node
}

// Decode unmarshals the settings block into out, typically a tool's Config
// struct with yaml tags. A missing block leaves out untouched.
func (e Entry) Decode(out any) error {
	if e.settings.Kind == 0 {
		return nil
	}
	if err := e.settings.Decode(out); err != nil {
		return fmt.Errorf("decode settings for %s: %w", e.Tool, err)
	}
	return nil
}

// Set maps tool names to their entries.
type Set map[string]Entry

// Enabled reports whether tool may be registered. Tools without an entry
// are enabled.
func (s Set) Enabled(tool string) bool {
	e, ok := s[tool]
	return !ok || e.Enabled
}

// Decode fills out from tool's settings when it has an entry.
func (s Set) Decode(tool string, out any) error {
	e, ok := s[tool]
	if !ok {
		return nil
	}
	return e.Decode(out)
}

// Load reads <dir>/<name>/TOOL.md for every subdirectory, in name order. A
// missing dir is an empty set. Files with malformed YAML are skipped with a
// warning; duplicate tool names are an error.
func Load(dir string, logger zerolog.Logger) (Set, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return Set{}, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("stat tool config dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tool config path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tool config dir %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	set := make(Set, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), FileName)
		e, skip, err := parseFile(path, logger)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if prev, exists := seen[e.Tool]; exists {
			return nil, fmt.Errorf("duplicate tool config %q in %s (already in %s)", e.Tool, path, prev)
		}
		seen[e.Tool] = path
		set[e.Tool] = e
	}
	return set, nil
}

func parseFile(path string, logger zerolog.Logger) (Entry, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, true, nil
		}
		return Entry{}, false, fmt.Errorf("read tool config %q: %w", path, err)
	}

	meta, body, err := parseFrontmatter(content)
	if err != nil {
		if errors.Is(err, errInvalidYAML) {
			logger.Warn().Err(err).Str("path", path).Msg("skipping tool config with invalid YAML")
			return Entry{}, true, nil
		}
		return Entry{}, false, fmt.Errorf("parse tool config %q: %w", path, err)
	}
	name := strings.TrimSpace(meta.Tool)
	if name == "" {
		return Entry{}, false, fmt.Errorf("parse tool config %q: missing tool name", path)
	}

	enabled := true
	if meta.Enabled != nil {
		enabled = *meta.Enabled
	}
	return Entry{
		Tool:       name,
		Enabled:    enabled,
		Tags:       sanitizeTags(meta.Tags),
		Notes:      strings.TrimSpace(body),
		SourcePath: path,
		settings:   meta.Settings,
	}, false, nil
}

func parseFrontmatter(content []byte) (frontmatter, string, error) {
	text := strings.TrimPrefix(string(content), "\uFEFF")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return frontmatter{}, "", errors.New("missing YAML frontmatter")
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return frontmatter{}, "", errors.New("missing closing frontmatter separator")
	}

	var meta frontmatter
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &meta); err != nil {
		return frontmatter{}, "", fmt.Errorf("%w: %v", errInvalidYAML, err)
	}
	return meta, strings.Join(lines[end+1:], "\n"), nil
}

func sanitizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
