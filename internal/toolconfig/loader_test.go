package toolconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stellarlinkco/toolsdk/pkg/tools/browser"
	"github.com/stellarlinkco/toolsdk/pkg/tools/search"
)

func writeToolFile(t *testing.T, root, dir, content string) {
	t.Helper()
	path := filepath.Join(root, dir, FileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoad_DecodesSettings(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeToolFile(t, root, "search", "---\ntool: search_project\ntags: [Files, search, files]\nsettings:\n  maxFileSize: 4096\n  ignore:\n    - vendor/\n---\n# Search\nPrefer narrow file patterns.\n")
	writeToolFile(t, root, "browser", "---\ntool: open_in_browser\nenabled: false\nsettings:\n  browser: firefox\n---\n")

	set, err := Load(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("entries = %d, want 2", len(set))
	}

	entry := set[search.Name]
	if entry.Notes != "# Search\nPrefer narrow file patterns." {
		t.Fatalf("notes = %q", entry.Notes)
	}
	if strings.Join(entry.Tags, ",") != "files,search" {
		t.Fatalf("tags = %v", entry.Tags)
	}

	var cfg search.Config
	if err := set.Decode(search.Name, &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.MaxFileSize != 4096 || len(cfg.Ignore) != 1 || cfg.Ignore[0] != "vendor/" {
		t.Fatalf("search config = %+v", cfg)
	}

	var bcfg browser.Config
	if err := set.Decode(browser.Name, &bcfg); err != nil {
		t.Fatalf("decode browser: %v", err)
	}
	if bcfg.Browser != browser.Firefox {
		t.Fatalf("browser = %q", bcfg.Browser)
	}
	if set.Enabled(browser.Name) {
		t.Fatal("browser should be disabled")
	}
	if !set.Enabled(search.Name) || !set.Enabled("unknown_tool") {
		t.Fatal("tools without enabled: false should be enabled")
	}
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	set, err := Load(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("entries = %d, want 0", len(set))
	}
	if set, err = Load("  ", zerolog.Nop()); err != nil || len(set) != 0 {
		t.Fatalf("blank dir: %v %v", set, err)
	}
}

func TestLoad_SkipsInvalidYAML(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeToolFile(t, root, "broken", "---\ntool: [unterminated\n---\n")
	writeToolFile(t, root, "ok", "---\ntool: search_project\n---\n")

	var logs bytes.Buffer
	set, err := Load(root, zerolog.New(&logs))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := set[search.Name]; !ok || len(set) != 1 {
		t.Fatalf("set = %v", set)
	}
	if !strings.Contains(logs.String(), "invalid YAML") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"duplicate": {
			"---\ntool: search_project\n---\n",
			"---\ntool: search_project\n---\n",
		},
		"missing name":        {"---\nenabled: true\n---\n"},
		"missing frontmatter": {"just text\n"},
		"unclosed":            {"---\ntool: x\n"},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			for i, content := range files {
				writeToolFile(t, root, string(rune('a'+i)), content)
			}
			if _, err := Load(root, zerolog.Nop()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoad_FileInsteadOfDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for a file path")
	}
}
