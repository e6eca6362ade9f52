package project

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// within reports whether path equals root or lies beneath it. Both must be
// clean absolute paths.
func within(path, root string) bool {
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// lexical joins p onto root when relative and cleans the result.
func lexical(root, p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	return filepath.Clean(p), nil
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-attaches the missing tail, so paths to files not yet created still
// resolve against their real parent directory.
func evalExisting(p string) (string, error) {
	var tail []string
	current := p
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", current, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return p, nil
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
	}
}
